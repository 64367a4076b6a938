package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin" // Full access to every business
	RoleOwner Role = "owner" // Scoped to the key's own businesses
)

// APIKey authenticates calls to the management API. Only the SHA-256 hash
// of the raw key is ever stored.
type APIKey struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`       // Human-readable label, e.g. "dashboard-key"
	KeyHash   string     `json:"-"`
	KeyPrefix string     `json:"key_prefix"` // First 8 chars for identification
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
