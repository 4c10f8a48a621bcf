package license

import "fmt"

// Error codes for fatal policy violations. These mirror the authority's
// error catalog so callers can branch on them for billing/support flows.
const (
	ErrCodeSuspended       = "LICENSE_SUSPENDED"
	ErrCodeExpired         = "LICENSE_EXPIRED"
	ErrCodeHardwareLimit   = "HARDWARE_LIMIT_EXCEEDED"
	ErrCodeValidationLimit = "VALIDATION_LIMIT_EXCEEDED"
)

// PolicyError is a fatal validation condition. Unlike a soft-invalid
// Verdict, a PolicyError interrupts the caller's flow and must be handled
// explicitly. The core never retries these.
type PolicyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is match policy errors by code, so callers can compare
// against the package sentinels.
func (e *PolicyError) Is(target error) bool {
	pe, ok := target.(*PolicyError)
	return ok && pe.Code == e.Code
}

// Sentinel policy errors raised by the validation engine.
var (
	ErrLicenseSuspended = &PolicyError{
		Code:    ErrCodeSuspended,
		Message: "License has been suspended. Please contact support",
	}

	ErrLicenseExpired = &PolicyError{
		Code:    ErrCodeExpired,
		Message: "License has expired. Please renew to continue",
	}

	ErrHardwareLimitExceeded = &PolicyError{
		Code:    ErrCodeHardwareLimit,
		Message: "Maximum number of bound devices reached for this license",
	}

	ErrValidationLimitExceeded = &PolicyError{
		Code:    ErrCodeValidationLimit,
		Message: "Validation limit reached for this license",
	}
)
