package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcgate/internal/webhook"
)

const handlerTestSecret = "whsec_handler_test"

func newTestHandler(t *testing.T, now time.Time, register func(*webhook.Dispatcher)) *WebhookHandler {
	t.Helper()

	verifier := webhook.NewVerifier(handlerTestSecret,
		webhook.WithClock(func() time.Time { return now }))

	dispatcher := webhook.NewDispatcher(nil)
	if register != nil {
		register(dispatcher)
	}

	return NewWebhookHandler(verifier, dispatcher, nil, 1<<20, nil)
}

func signBody(body []byte) string {
	return webhook.NewVerifier(handlerTestSecret).CreateSignature(body)
}

func deliveryBody(t *testing.T, event string, ts time.Time) []byte {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"id":        "evt_http",
		"event":     event,
		"data":      map[string]string{"licenseId": "lic_123"},
		"timestamp": ts.Format(time.RFC3339),
	})
	require.NoError(t, err)
	return body
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestReceiveAcceptsValidDelivery(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	var dispatched *webhook.Envelope
	h := newTestHandler(t, now, func(d *webhook.Dispatcher) {
		d.On(webhook.EventLicenseUpdated, func(ctx context.Context, env *webhook.Envelope) error {
			dispatched = env
			return nil
		})
	})

	body := deliveryBody(t, webhook.EventLicenseUpdated, now)
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, dispatched)
	assert.Equal(t, "evt_http", dispatched.ID)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["received"])
	assert.Equal(t, webhook.EventLicenseUpdated, resp["event"])
}

func TestReceiveFallsBackToBodySignature(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(t, now, nil)

	// No header: the handler falls back to the in-body signature field.
	// The embedded value is wrong for these bytes, so the delivery is
	// rejected as a signature mismatch rather than as unsigned.
	body := []byte(fmt.Sprintf(
		`{"event":%q,"data":{},"timestamp":%q,"signature":"sha256=%s"}`,
		webhook.EventLicenseCreated, now.Format(time.RFC3339), strings.Repeat("ab", 32)))

	rec := postWebhook(h, body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInvalidSignature, resp["code"])
}

func TestReceiveRejectsBadSignature(t *testing.T) {
	now := time.Now()
	h := newTestHandler(t, now, nil)

	body := deliveryBody(t, webhook.EventLicenseUpdated, now)
	rec := postWebhook(h, body, "sha256="+strings.Repeat("00", 32))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInvalidSignature, resp["code"])
}

func TestReceiveRejectsMissingSignature(t *testing.T) {
	now := time.Now()
	h := newTestHandler(t, now, nil)

	body := deliveryBody(t, webhook.EventLicenseUpdated, now)
	rec := postWebhook(h, body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReceiveRejectsStaleDelivery(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(t, now, nil)

	body := deliveryBody(t, webhook.EventLicenseUpdated, now.Add(-time.Hour))
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeStaleTimestamp, resp["code"])
}

func TestReceiveRejectsMalformedEnvelope(t *testing.T) {
	now := time.Now()
	h := newTestHandler(t, now, nil)

	// Authenticated but structurally invalid: required fields missing.
	body := []byte(`{"event":"license.updated"}`)
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeMalformedPayload, resp["code"])
}

func TestReceiveUnknownEventStillAccepted(t *testing.T) {
	now := time.Now()
	h := newTestHandler(t, now, nil)

	body := deliveryBody(t, "subscription.renewed", now)
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReceiveHandlerFailureReturns500(t *testing.T) {
	now := time.Now()
	h := newTestHandler(t, now, func(d *webhook.Dispatcher) {
		d.On(webhook.EventPaymentFailed, func(ctx context.Context, env *webhook.Envelope) error {
			return errors.New("downstream store unavailable")
		})
	})

	body := deliveryBody(t, webhook.EventPaymentFailed, now)
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeDispatchFailed, resp["code"])
}

func TestReceiveRejectsOversizedBody(t *testing.T) {
	now := time.Now()
	verifier := webhook.NewVerifier(handlerTestSecret,
		webhook.WithClock(func() time.Time { return now }))
	h := NewWebhookHandler(verifier, webhook.NewDispatcher(nil), nil, 64, nil)

	body := bytes.Repeat([]byte("a"), 256)
	rec := postWebhook(h, body, "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
