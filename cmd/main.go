package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/auth"
	"github.com/ukydev/supply-chain-analytics/internal/config"
	"github.com/ukydev/supply-chain-analytics/internal/db"
	"github.com/ukydev/supply-chain-analytics/internal/events"
	"github.com/ukydev/supply-chain-analytics/internal/geocode"
	"github.com/ukydev/supply-chain-analytics/internal/handlers"
	"github.com/ukydev/supply-chain-analytics/internal/logger"
	"github.com/ukydev/supply-chain-analytics/internal/middleware"
	"github.com/ukydev/supply-chain-analytics/internal/service"
	"github.com/ukydev/supply-chain-analytics/internal/state"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closer, err := logger.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Server stopped with error")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()
	log.WithField("driver", cfg.Store.Driver).Info("Store opened")

	dashboard := state.New()
	svc := service.New(store, dashboard, log)
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("load dashboard: %w", err)
	}

	publisher, err := newPublisher(cfg.MQTT, log)
	if err != nil {
		return err
	}
	defer publisher.Close()
	detach := events.NewNotifier(publisher, cfg.MQTT.TopicPrefix, log).Attach(dashboard)
	defer detach()

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if !cfg.Auth.LoginEnabled() {
		log.Warn("No operator credentials configured; write endpoints are unavailable")
	}

	limiter := middleware.NewRateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.TrustProxy = cfg.RateLimit.TrustProxy

	deps := handlers.Deps{
		Service:     svc,
		Auth:        authService,
		RateLimiter: limiter,
		Log:         log,
	}
	if cfg.Loc.APIKey != "" {
		client, err := geocode.NewClient(cfg.Loc.AutocompleteURL, cfg.Loc.APIKey, cfg.Loc.Timeout)
		if err != nil {
			return fmt.Errorf("geocode client: %w", err)
		}
		deps.Lookup = client
	} else {
		log.Warn("LOC_API_KEY is not set; autocomplete is disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlers.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore opens the store selected by cfg.Store.Driver.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return db.NewMemoryStore(), nil
	case config.DriverSQLite:
		store, err := db.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return db.NewMongoStore(client, cfg.Mongo.Database), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newPublisher connects to MQTT when enabled and otherwise logs events.
func newPublisher(cfg config.MQTTConfig, log *logrus.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NewLogPublisher(log), nil
	}
	pub, err := events.NewMQTTPublisher(events.MQTTOptions{
		BrokerURL: cfg.BrokerURL,
		ClientID:  cfg.ClientID,
		Username:  cfg.Username,
		Password:  cfg.Password,
		QoS:       byte(cfg.QoS),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}
	return pub, nil
}
