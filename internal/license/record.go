package license

import (
	"time"
)

// Status is the authority-controlled lifecycle state of a license.
// The client never changes it; only the usage/hardware side effect of a
// successful validation mutates a record locally.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// UnlimitedValidations is the sentinel MaxValidations value for licenses
// without a validation quota.
const UnlimitedValidations = -1

// DefaultHardwareCap is the bound-device limit used when the caller's
// application-level policy does not supply one.
const DefaultHardwareCap = 5

// HardwareBinding is one entry in a license's bound-device list.
type HardwareBinding struct {
	Fingerprint string    `json:"fingerprint"`
	DisplayName string    `json:"displayName,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Usage tracks how often a license has been validated against its quota.
type Usage struct {
	TotalValidations int       `json:"totalValidations"`
	MaxValidations   int       `json:"maxValidations"`
	LastValidated    time.Time `json:"lastValidated"`
}

// Unlimited reports whether the license carries no validation quota.
func (u Usage) Unlimited() bool {
	return u.MaxValidations == UnlimitedValidations
}

// Record is a snapshot of a license as fetched from the licensing
// authority. The validation engine never mutates a Record in place; it
// returns a cloned copy carrying the post-validation state and leaves
// persistence to the caller.
type Record struct {
	ID        string            `json:"id"`
	Key       string            `json:"key"`
	Status    Status            `json:"status"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	Features  []string          `json:"features,omitempty"`
	Usage     Usage             `json:"usage"`
	Hardware  []HardwareBinding `json:"hardware,omitempty"`
}

// Perpetual reports whether the license has no expiry instant.
func (r *Record) Perpetual() bool {
	return r.ExpiresAt == nil
}

// HasFeature reports whether the license carries the given capability tag.
func (r *Record) HasFeature(tag string) bool {
	for _, f := range r.Features {
		if f == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record. Validation side effects are
// applied to a clone so concurrent callers sharing one in-memory snapshot
// never observe hidden aliasing.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExpiresAt != nil {
		exp := *r.ExpiresAt
		out.ExpiresAt = &exp
	}
	if r.Features != nil {
		out.Features = make([]string, len(r.Features))
		copy(out.Features, r.Features)
	}
	if r.Hardware != nil {
		out.Hardware = make([]HardwareBinding, len(r.Hardware))
		copy(out.Hardware, r.Hardware)
	}
	return &out
}

// Verdict is the outcome of one validation call. Soft-invalid states
// ("not found", "cancelled", bad key format) are expressed as a Verdict
// with Valid=false; policy violations are raised as *PolicyError instead
// and never appear here.
type Verdict struct {
	Valid     bool       `json:"valid"`
	Message   string     `json:"message"`
	LicenseID string     `json:"licenseId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Features  []string   `json:"features,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
}

// invalidVerdict builds a soft-invalid verdict with a caller-facing reason.
func invalidVerdict(message string) Verdict {
	return Verdict{Valid: false, Message: message}
}
