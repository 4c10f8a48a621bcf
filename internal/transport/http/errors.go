package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse implements the render.Renderer interface for API errors
type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	AppCode        string `json:"code,omitempty"`
	ErrorText      string `json:"error,omitempty"`
}

// Render implements the render.Renderer interface
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// Error codes surfaced by the webhook receiver edge
const (
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	ErrCodeStaleTimestamp   = "STALE_TIMESTAMP"
	ErrCodeMalformedPayload = "MALFORMED_WEBHOOK_PAYLOAD"
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeDispatchFailed   = "DISPATCH_FAILED"
)

// Common error responses
var (
	ErrSignatureRejected = &ErrResponse{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Signature rejected",
		AppCode:        ErrCodeInvalidSignature,
		ErrorText:      "The payload signature did not match",
	}

	ErrTimestampStale = &ErrResponse{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Timestamp stale",
		AppCode:        ErrCodeStaleTimestamp,
		ErrorText:      "The payload timestamp is outside the accepted tolerance window",
	}

	ErrPayloadMalformed = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Malformed payload",
		AppCode:        ErrCodeMalformedPayload,
		ErrorText:      "The payload is not a well-formed webhook envelope",
	}

	ErrTooManyRequests = &ErrResponse{
		HTTPStatusCode: http.StatusTooManyRequests,
		StatusText:     "Too many requests",
		AppCode:        ErrCodeRateLimited,
		ErrorText:      "Delivery rate limit exceeded. Please back off",
	}
)

// ErrDispatch wraps a handler failure so the authority retries delivery
func ErrDispatch(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Dispatch failed",
		AppCode:        ErrCodeDispatchFailed,
		ErrorText:      "The event handler failed; the delivery should be retried",
	}
}

// ErrBodyTooLarge reports an oversized delivery body
func ErrBodyTooLarge(limit int64) *ErrResponse {
	return &ErrResponse{
		HTTPStatusCode: http.StatusRequestEntityTooLarge,
		StatusText:     "Payload too large",
		AppCode:        ErrCodePayloadTooLarge,
		ErrorText:      "The delivery body exceeds the accepted size limit",
	}
}
