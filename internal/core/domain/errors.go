package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the failure taxonomy of the subsystem. Callers
// branch on these with errors.Is; anything else is an opaque store or
// transport failure.
var (
	// ErrSubdomainUnavailable means the candidate is claimed by a live
	// reservation. Non-fatal: retry with another candidate.
	ErrSubdomainUnavailable = errors.New("subdomain unavailable")

	// ErrDomainConflict means the custom domain is registered to another
	// project at the hosting provider. Terminal for this attempt.
	ErrDomainConflict = errors.New("custom domain already in use elsewhere")

	// ErrProviderUnreachable is a transient provider transport failure;
	// the next poll tick retries.
	ErrProviderUnreachable = errors.New("hosting provider unreachable")

	// ErrVerificationRequired blocks publishing until the bound domain
	// passes DNS + SSL verification.
	ErrVerificationRequired = errors.New("domain verification required")

	// ErrNotFound covers stale reservation, domain, or business ids; the
	// caller should restart the flow.
	ErrNotFound = errors.New("not found")
)

// ProviderError carries the hosting provider's own error code and message
// so user-visible failures can quote the provider rather than a generic
// retry hint.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d (%s)", e.StatusCode, e.Code)
}

// Is maps the provider's domain_already_in_use code onto ErrDomainConflict
// so callers need only one check.
func (e *ProviderError) Is(target error) bool {
	return target == ErrDomainConflict && e.Code == "domain_already_in_use"
}
