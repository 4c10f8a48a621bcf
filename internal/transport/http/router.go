// Package http is the webhook receiver edge: routing, delivery
// authentication and response rendering. It contains no decision logic
// of its own; verification and dispatch live in internal/webhook.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lcgate/internal/config"
)

// RouterDeps carries the collaborators the router mounts.
type RouterDeps struct {
	Webhook *WebhookHandler
	Health  *HealthHandler
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the chi router for the webhook receiver.
func NewRouter(cfg config.ServerConfig, deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestTracing)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	if cfg.RateLimit.Enabled {
		r.Use(RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks", deps.Webhook.Receive)
		r.Get("/health", deps.Health.Health)
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	return r
}
