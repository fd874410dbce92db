// Package events announces dashboard changes to other systems.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Publisher delivers a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// MQTTPublisher publishes events to an MQTT broker. Messages are never
// retained.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
	log    *logrus.Logger
}

// NewMQTTPublisher connects to the broker described by opts.
func NewMQTTPublisher(opts MQTTOptions, log *logrus.Logger) (*MQTTPublisher, error) {
	if opts.BrokerURL == "" {
		return nil, errors.New("mqtt broker url is empty")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out after %s", opts.BrokerURL, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.BrokerURL, err)
	}

	log.WithField("broker", opts.BrokerURL).Info("Connected to MQTT broker")
	return newMQTTPublisher(client, opts.QoS, log), nil
}

func newMQTTPublisher(client mqtt.Client, qos byte, log *logrus.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, qos: qos, log: log}
}

// Publish sends payload and waits for the broker to acknowledge it.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish to %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish to %s: %w", topic, ctx.Err())
	}
}

// Close disconnects from the broker, allowing in-flight work 250ms.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	log *logrus.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event at debug level.
func (p *LogPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.log.WithFields(logrus.Fields{
		"topic":   topic,
		"payload": string(payload),
	}).Debug("Event published")
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() {}
