// webhookd receives lifecycle notifications from the licensing
// authority, authenticates them and routes them to event handlers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"lcgate/internal/config"
	"lcgate/internal/infrastructure"
	transport "lcgate/internal/transport/http"
	"lcgate/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webhookd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	if cfg.Webhook.Secret == "" {
		return fmt.Errorf("webhook secret is required (LCGATE_WEBHOOK_SECRET)")
	}

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	verifier := webhook.NewVerifier(cfg.Webhook.Secret,
		webhook.WithTolerance(cfg.Webhook.Tolerance))

	dispatcher := webhook.NewDispatcher(logger)
	registerHandlers(dispatcher, logger)

	router := transport.NewRouter(cfg.Server, transport.RouterDeps{
		Webhook: transport.NewWebhookHandler(verifier, dispatcher, metrics, cfg.Server.MaxBodyBytes, logger),
		Health:  transport.NewHealthHandler(nil),
		Metrics: providers.PrometheusHTTP,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("Webhook receiver listening",
			slog.Int("port", cfg.Server.Port),
			slog.Duration("tolerance", cfg.Webhook.Tolerance),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("Shutting down webhook receiver")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return providers.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// registerHandlers wires the default event handlers. They log the
// payload; embedding applications replace them with real side effects.
// All handlers must stay idempotent: delivery is at-least-once.
func registerHandlers(d *webhook.Dispatcher, logger *slog.Logger) {
	logEvent := func(ctx context.Context, env *webhook.Envelope) error {
		var data map[string]interface{}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", env.Event, err)
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "Webhook event received",
			slog.String("event", env.Event),
			slog.String("event_id", env.ID),
			slog.Int("fields", len(data)),
		)
		return nil
	}

	for _, event := range []string{
		webhook.EventLicenseCreated,
		webhook.EventLicenseUpdated,
		webhook.EventLicenseRevoked,
		webhook.EventLicenseExpired,
		webhook.EventUserCreated,
		webhook.EventUserUpdated,
		webhook.EventUserDeleted,
		webhook.EventPaymentCompleted,
		webhook.EventPaymentFailed,
		webhook.EventPaymentRefunded,
	} {
		d.On(event, logEvent)
	}
}
