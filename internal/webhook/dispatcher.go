package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event catalog. The authority's catalog may grow ahead of a deployed
// client; unknown events are logged and ignored, never fatal.
const (
	EventLicenseCreated = "license.created"
	EventLicenseUpdated = "license.updated"
	EventLicenseRevoked = "license.revoked"
	EventLicenseExpired = "license.expired"

	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// Handler processes one verified envelope. Delivery is at-least-once
// from the authority's perspective and the dispatcher performs no
// deduplication, so handlers must tolerate repeated delivery of the same
// event id.
type Handler func(ctx context.Context, env *Envelope) error

// Dispatcher routes verified envelopes to typed handlers by event name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger.With(slog.String("component", "webhook_dispatcher")),
	}
}

// On registers the handler for an event type, replacing any previous
// registration.
func (d *Dispatcher) On(eventType string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = handler
}

// Handles reports whether a handler is registered for the event type.
func (d *Dispatcher) Handles(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[eventType]
	return ok
}

// Dispatch routes one verified envelope to its handler. An unregistered
// event type is logged at warn and dropped without error so a deployed
// client keeps working when the authority's catalog grows.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope) error {
	d.mu.RLock()
	handler, ok := d.handlers[env.Event]
	d.mu.RUnlock()

	if !ok {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Unhandled webhook event ignored",
			slog.String("event", env.Event),
			slog.String("event_id", env.ID),
		)
		return nil
	}

	if err := handler(ctx, env); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Webhook handler failed",
			slog.String("event", env.Event),
			slog.String("event_id", env.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("handler for %s: %w", env.Event, err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "Webhook event dispatched",
		slog.String("event", env.Event),
		slog.String("event_id", env.ID),
	)
	return nil
}
