package webhook

import (
	"fmt"
	"time"
)

// Verification failure reasons.
const (
	ReasonInvalidSignature = "invalid_signature"
	ReasonStaleTimestamp   = "stale_timestamp"
	ReasonMalformedPayload = "malformed_payload"
)

// VerificationError is a fatal webhook authentication failure. A
// delivery that produces one must be rejected; the core never retries.
type VerificationError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("webhook verification failed (%s): %s", e.Reason, e.Message)
}

// Is makes errors.Is match verification errors by reason.
func (e *VerificationError) Is(target error) bool {
	ve, ok := target.(*VerificationError)
	return ok && ve.Reason == e.Reason
}

var errInvalidSignature = &VerificationError{
	Reason:  ReasonInvalidSignature,
	Message: "signature does not authenticate the payload",
}

// ErrInvalidSignature is the sentinel for signature mismatches, for use
// with errors.Is.
var ErrInvalidSignature = errInvalidSignature

// ErrStaleTimestamp is the sentinel for timestamps outside the tolerance
// window.
var ErrStaleTimestamp = &VerificationError{
	Reason:  ReasonStaleTimestamp,
	Message: "timestamp is outside the tolerance window",
}

// ErrMalformedPayload is the sentinel for structurally invalid payloads.
var ErrMalformedPayload = &VerificationError{
	Reason:  ReasonMalformedPayload,
	Message: "payload is not a well-formed webhook envelope",
}

func malformedPayload(detail string) *VerificationError {
	return &VerificationError{Reason: ReasonMalformedPayload, Message: detail}
}

func staleTimestamp(signed, now time.Time) *VerificationError {
	return &VerificationError{
		Reason:  ReasonStaleTimestamp,
		Message: fmt.Sprintf("payload signed at %s, received at %s", signed.Format(time.RFC3339), now.Format(time.RFC3339)),
	}
}
