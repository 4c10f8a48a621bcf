package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SignaturePrefix is the convention prepended to every signature this
// package creates. Verification accepts both prefixed and bare hex forms.
const SignaturePrefix = "sha256="

// DefaultTolerance is the maximum age of a webhook timestamp still
// accepted as fresh.
const DefaultTolerance = 5 * time.Minute

// Envelope is one lifecycle notification from the licensing authority.
// Data stays opaque; each handler decodes it for its own event type.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event" validate:"required"`
	Data      json.RawMessage `json:"data" validate:"required"`
	Timestamp time.Time       `json:"timestamp" validate:"required"`
	Signature string          `json:"signature,omitempty"`
}

// envelopeValidator checks required envelope fields after the signature
// has been authenticated.
var envelopeValidator = validator.New()

// Verifier authenticates webhook payloads with HMAC-SHA256 over the
// exact serialized body bytes and enforces timestamp freshness. It holds
// no mutable state; the clock is injectable for deterministic tests.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	clock     func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTolerance overrides the freshness window.
func WithTolerance(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.tolerance = d }
}

// WithClock overrides the verifier's time source.
func WithClock(clock func() time.Time) VerifierOption {
	return func(v *Verifier) { v.clock = clock }
}

// NewVerifier creates a Verifier for the shared secret.
func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secret:    []byte(secret),
		tolerance: DefaultTolerance,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CreateSignature computes the canonical signature for a payload:
// "sha256=" + hex(HMAC-SHA256(secret, payload)).
func (v *Verifier) CreateSignature(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether a candidate signature authenticates the payload.
// The candidate may carry the "sha256=" prefix or be bare hex. Signatures
// of the wrong length are rejected up front; length is not secret, so the
// fast path leaks nothing. Equal-length candidates are compared in
// constant time.
func (v *Verifier) Verify(payload []byte, signature string) bool {
	candidate := strings.TrimPrefix(signature, SignaturePrefix)
	expected := strings.TrimPrefix(v.CreateSignature(payload), SignaturePrefix)

	if len(candidate) != len(expected) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}

// IsFresh reports whether a signing timestamp falls within the tolerance
// window in either direction. Freshness only defends against replay of a
// captured payload after the window lapses; replay within the window is
// an accepted limitation.
func (v *Verifier) IsFresh(timestamp time.Time) bool {
	age := v.clock().Sub(timestamp)
	if age < 0 {
		age = -age
	}
	return age <= v.tolerance
}

// Tolerance returns the configured freshness window.
func (v *Verifier) Tolerance() time.Duration {
	return v.tolerance
}

// ParseAndVerify authenticates and decodes one raw webhook delivery. The
// signature is checked over the raw body bytes strictly before any
// structural parsing, so unauthenticated content is never processed.
// After decoding, required fields are validated and the timestamp is
// checked for freshness.
func (v *Verifier) ParseAndVerify(payload []byte, signature string) (*Envelope, error) {
	if signature == "" || !v.Verify(payload, signature) {
		return nil, errInvalidSignature
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, malformedPayload(fmt.Sprintf("payload is not well-formed JSON: %v", err))
	}

	if env.Timestamp.IsZero() {
		return nil, malformedPayload("missing required field: timestamp")
	}
	if err := envelopeValidator.Struct(&env); err != nil {
		return nil, malformedPayload(fmt.Sprintf("missing required envelope fields: %v", err))
	}

	if !v.IsFresh(env.Timestamp) {
		return nil, staleTimestamp(env.Timestamp, v.clock())
	}

	return &env, nil
}

// ExtractBodySignature pulls the signature field out of a raw payload for
// callers whose transport does not carry an X-Signature header. Only the
// top-level signature field is read; the envelope structure itself is not
// trusted until ParseAndVerify has authenticated the bytes.
func ExtractBodySignature(payload []byte) string {
	var probe struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.Signature
}
