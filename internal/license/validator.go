package license

import (
	"context"
	"log/slog"
	"regexp"
	"time"
)

// keyPattern is the structural format of a raw license key: three groups
// of eight uppercase alphanumerics, e.g. LC-ABCDEFGH-12345678-ZZZZZZZZ.
var keyPattern = regexp.MustCompile(`^LC-[A-Z0-9]{8}-[A-Z0-9]{8}-[A-Z0-9]{8}$`)

// ValidKeyFormat reports whether a raw license key matches the
// LC-XXXXXXXX-XXXXXXXX-XXXXXXXX structural pattern.
func ValidKeyFormat(key string) bool {
	return keyPattern.MatchString(key)
}

// Clock supplies the current instant. Injected so the engine is
// deterministic under test.
type Clock func() time.Time

// Validator is the client-side validation engine. It turns a license
// record snapshot plus an optional device fingerprint into an
// authoritative verdict. It holds no mutable shared state; all state
// lives in the caller-owned record passed in.
type Validator struct {
	clock       Clock
	hardwareCap int
	logger      *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the engine's time source.
func WithClock(clock Clock) ValidatorOption {
	return func(v *Validator) { v.clock = clock }
}

// WithHardwareCap sets the bound-device limit enforced during validation.
func WithHardwareCap(cap int) ValidatorOption {
	return func(v *Validator) { v.hardwareCap = cap }
}

// WithLogger sets the structured logger used for validation audit events.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = logger }
}

// NewValidator creates a validation engine with the default clock and
// hardware cap unless overridden.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		clock:       time.Now,
		hardwareCap: DefaultHardwareCap,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// HardwareCap returns the configured bound-device limit.
func (v *Validator) HardwareCap() int {
	return v.hardwareCap
}

// Validate evaluates a license record snapshot against the ordered rule
// sequence: existence, suspended, cancelled, expiry, hardware binding,
// quota. The first applicable rule short-circuits the rest.
//
// Expected invalid states ("not found", "cancelled") come back as a
// soft-invalid Verdict with a nil error; policy violations (suspended,
// expired, hardware limit, quota limit) come back as a *PolicyError with
// a zero Verdict. The two channels are never conflated.
//
// On success the returned record is a clone of the input carrying the
// usage/hardware side effect; the caller decides whether and how to
// persist it. A persist failure must not invalidate the verdict.
func (v *Validator) Validate(ctx context.Context, rec *Record, fingerprint string) (Verdict, *Record, error) {
	start := v.clock()

	if rec == nil {
		v.logOutcome(ctx, nil, "not_found", start, nil)
		return invalidVerdict("License not found"), nil, nil
	}

	// Suspended is checked ahead of expiry: a record that is both
	// suspended and expired must surface the suspension.
	if rec.Status == StatusSuspended {
		v.logOutcome(ctx, rec, "suspended", start, ErrLicenseSuspended)
		return Verdict{}, nil, ErrLicenseSuspended
	}

	if rec.Status == StatusCancelled {
		v.logOutcome(ctx, rec, "cancelled", start, nil)
		return invalidVerdict("License has been cancelled"), nil, nil
	}

	now := v.clock()
	if rec.Status == StatusExpired || (rec.ExpiresAt != nil && now.After(*rec.ExpiresAt)) {
		v.logOutcome(ctx, rec, "expired", start, ErrLicenseExpired)
		return Verdict{}, nil, ErrLicenseExpired
	}

	updated := rec.Clone()

	if fingerprint != "" {
		bind := CheckAndBind(updated.Hardware, fingerprint, "", v.hardwareCap, now)
		if !bind.Allowed {
			v.logOutcome(ctx, rec, "hardware_limit", start, ErrHardwareLimitExceeded)
			return Verdict{}, nil, ErrHardwareLimitExceeded
		}
		updated.Hardware = bind.Hardware
	}

	if !updated.Usage.Unlimited() && updated.Usage.TotalValidations >= updated.Usage.MaxValidations {
		v.logOutcome(ctx, rec, "quota_limit", start, ErrValidationLimitExceeded)
		return Verdict{}, nil, ErrValidationLimitExceeded
	}

	updated.Usage.TotalValidations++
	updated.Usage.LastValidated = now

	verdict := Verdict{
		Valid:     true,
		Message:   "License is valid",
		LicenseID: updated.ID,
		ExpiresAt: updated.ExpiresAt,
		Features:  updated.Features,
		Usage:     &updated.Usage,
	}

	v.logOutcome(ctx, rec, "valid", start, nil)
	return verdict, updated, nil
}
