package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lcgate/internal/infrastructure"
	"lcgate/internal/webhook"
)

// SignatureHeader is the transport header carrying the payload
// signature. Deliveries may alternatively carry it in-body.
const SignatureHeader = "X-Signature"

// WebhookHandler receives lifecycle notifications from the licensing
// authority, authenticates them and hands them to the dispatcher.
type WebhookHandler struct {
	verifier   *webhook.Verifier
	dispatcher *webhook.Dispatcher
	metrics    *infrastructure.BusinessMetrics
	maxBody    int64
	logger     *slog.Logger
}

// NewWebhookHandler creates a webhook delivery handler.
func NewWebhookHandler(verifier *webhook.Verifier, dispatcher *webhook.Dispatcher, metrics *infrastructure.BusinessMetrics, maxBody int64, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		metrics:    metrics,
		maxBody:    maxBody,
		logger:     logger.With(slog.String("handler", "webhook")),
	}
}

// Receive handles POST /api/webhooks. The body bytes are read verbatim
// and authenticated before any structural parsing. Verification failures
// are terminal (the authority must not retry a payload that will never
// verify); handler failures return 500 so the authority's at-least-once
// delivery retries.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.countDelivery(ctx, "body_too_large")
		render.Render(w, r, ErrBodyTooLarge(h.maxBody))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		signature = webhook.ExtractBodySignature(body)
	}

	env, err := h.verifier.ParseAndVerify(body, signature)
	if err != nil {
		h.rejectDelivery(w, r, err)
		return
	}

	if err := h.dispatcher.Dispatch(ctx, env); err != nil {
		h.countDelivery(ctx, "dispatch_failed")
		render.Render(w, r, ErrDispatch(err))
		return
	}

	h.countDelivery(ctx, "accepted")
	if h.metrics != nil {
		h.metrics.WebhookDispatchDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("event", env.Event)))
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"received": true,
		"event":    env.Event,
	})
}

// rejectDelivery maps a verification failure to its HTTP response.
func (h *WebhookHandler) rejectDelivery(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var ve *webhook.VerificationError
	if !errors.As(err, &ve) {
		h.countDelivery(ctx, "rejected")
		render.Render(w, r, ErrPayloadMalformed)
		return
	}

	h.countDelivery(ctx, ve.Reason)
	if h.metrics != nil {
		h.metrics.WebhookVerificationErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", ve.Reason)))
	}

	h.logger.LogAttrs(ctx, slog.LevelWarn, "Webhook delivery rejected",
		slog.String("reason", ve.Reason),
		slog.String("detail", ve.Message),
		slog.String("remote_addr", r.RemoteAddr),
	)

	switch ve.Reason {
	case webhook.ReasonInvalidSignature:
		render.Render(w, r, ErrSignatureRejected)
	case webhook.ReasonStaleTimestamp:
		render.Render(w, r, ErrTimestampStale)
	default:
		render.Render(w, r, ErrPayloadMalformed)
	}
}

func (h *WebhookHandler) countDelivery(ctx context.Context, result string) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebhookDeliveries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
}
