package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/state"
)

const (
	TopicAnalyticsSaved = "analytics/saved"
	TopicRouteDeleted   = "routes/deleted"
)

// AnalyticsSaved is published after a route and its analytics are saved.
type AnalyticsSaved struct {
	ID           int64      `json:"id"`
	RouteID      int64      `json:"routeId"`
	Name         string     `json:"name"`
	Emission     float64    `json:"emission"`
	Distance     float64    `json:"distance"`
	Cost         float64    `json:"cost"`
	SegmentCount int        `json:"segmentCount"`
	CreatedAt    *time.Time `json:"createdAt"`
}

// RouteDeleted is published after a route is deleted.
type RouteDeleted struct {
	ID               int64   `json:"id"`
	RemovedAnalytics []int64 `json:"removedAnalytics"`
}

// QueueSize is how many events may wait for the publisher before new ones
// are dropped.
const QueueSize = 64

// Notifier turns dashboard events into published messages. Publishing runs
// on its own goroutine, off the writer's path. Failures are logged and
// dropped.
type Notifier struct {
	pub     Publisher
	prefix  string
	timeout time.Duration
	log     *logrus.Logger

	mu     sync.RWMutex
	queue  chan state.Event
	closed bool
	done   chan struct{}
}

// NewNotifier creates a notifier publishing under the topic prefix.
func NewNotifier(pub Publisher, prefix string, log *logrus.Logger) *Notifier {
	return &Notifier{
		pub:     pub,
		prefix:  strings.TrimSuffix(prefix, "/"),
		timeout: 5 * time.Second,
		log:     log,
		queue:   make(chan state.Event, QueueSize),
		done:    make(chan struct{}),
	}
}

// Attach subscribes the notifier to d and starts publishing. The returned
// function detaches it and waits until queued events are published. A
// notifier can be attached once.
func (n *Notifier) Attach(d *state.Dashboard) func() {
	unsubscribe := d.Subscribe(n.Handle)
	go n.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			n.mu.Lock()
			n.closed = true
			close(n.queue)
			n.mu.Unlock()
			<-n.done
		})
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for e := range n.queue {
		n.publish(e)
	}
}

func (n *Notifier) topic(name string) string {
	if n.prefix == "" {
		return name
	}
	return n.prefix + "/" + name
}

// Handle queues e for publishing and returns at once. Events are dropped
// when the queue is full or the notifier is detached.
func (n *Notifier) Handle(e state.Event) {
	if e.Kind != state.EventAnalyticsSaved && e.Kind != state.EventRouteDeleted {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- e:
	default:
		n.log.WithField("event", e.Kind).Warn("Event queue full, dropping event")
	}
}

// publish sends the message for e, if it has one.
func (n *Notifier) publish(e state.Event) {
	var (
		topic   string
		payload any
	)
	switch e.Kind {
	case state.EventAnalyticsSaved:
		if e.Analytics == nil {
			return
		}
		a := e.Analytics
		topic = n.topic(TopicAnalyticsSaved)
		payload = AnalyticsSaved{
			ID:           a.ID,
			RouteID:      a.RouteID,
			Name:         a.Name,
			Emission:     a.Emission,
			Distance:     a.Distance,
			Cost:         a.Cost,
			SegmentCount: len(a.SegmentAnalytics),
			CreatedAt:    a.CreatedAt,
		}
	case state.EventRouteDeleted:
		topic = n.topic(TopicRouteDeleted)
		removed := e.RemovedAnalytics
		if removed == nil {
			removed = []int64{}
		}
		payload = RouteDeleted{ID: e.RouteID, RemovedAnalytics: removed}
	default:
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.WithError(err).WithField("topic", topic).Error("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, topic, body); err != nil {
		n.log.WithError(err).WithField("topic", topic).Warn("Failed to publish event")
	}
}
