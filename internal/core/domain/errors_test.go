package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestProviderErrorConflictMapping(t *testing.T) {
	conflict := &ProviderError{StatusCode: 409, Code: "domain_already_in_use", Message: "domain is already in use"}
	if !errors.Is(conflict, ErrDomainConflict) {
		t.Error("domain_already_in_use must map to ErrDomainConflict")
	}

	other := &ProviderError{StatusCode: 400, Code: "invalid_domain"}
	if errors.Is(other, ErrDomainConflict) {
		t.Error("unrelated provider codes must not map to ErrDomainConflict")
	}

	wrapped := fmt.Errorf("attach failed: %w", conflict)
	if !errors.Is(wrapped, ErrDomainConflict) {
		t.Error("mapping must survive wrapping")
	}
}
