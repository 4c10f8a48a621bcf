package license

import "time"

// BindResult is the outcome of a hardware binding check.
type BindResult struct {
	Allowed  bool
	Hardware []HardwareBinding
}

// CheckAndBind enforces the device-binding policy over a license's
// bound-device list. A fingerprint that is already bound refreshes its
// LastSeen and is always allowed, regardless of the cap: re-validation
// from a known device is idempotent and never consumes a slot. An unknown
// fingerprint is appended when the list is below cap and denied once the
// cap is reached. The input list is never mutated.
func CheckAndBind(hardware []HardwareBinding, fingerprint, displayName string, cap int, now time.Time) BindResult {
	if cap <= 0 {
		cap = DefaultHardwareCap
	}

	updated := make([]HardwareBinding, len(hardware))
	copy(updated, hardware)

	for i := range updated {
		if updated[i].Fingerprint == fingerprint {
			updated[i].LastSeen = now
			return BindResult{Allowed: true, Hardware: updated}
		}
	}

	if len(updated) >= cap {
		return BindResult{Allowed: false, Hardware: hardware}
	}

	updated = append(updated, HardwareBinding{
		Fingerprint: fingerprint,
		DisplayName: displayName,
		LastSeen:    now,
	})
	return BindResult{Allowed: true, Hardware: updated}
}
