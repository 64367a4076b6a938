// Package domain contains the core business entities for Locasite's
// domain allocation and site publishing subsystem.
package domain

import (
	"time"
)

// ReservationStatus represents the lifecycle state of a subdomain reservation.
type ReservationStatus string

const (
	// StatusReserved marks a temporary claim pending confirmation. It carries
	// an expiry and is logically absent once that expiry passes.
	StatusReserved ReservationStatus = "reserved"
	// StatusActive marks a reservation permanently bound to a domain record.
	// Active reservations never expire.
	StatusActive ReservationStatus = "active"
)

// ReservationTTL is how long a temporary claim holds a subdomain before an
// abandoned creation flow releases it implicitly.
const ReservationTTL = 5 * time.Minute

// SubdomainReservation claims exclusive right to a subdomain string.
// At most one row may exist per subdomain value at any time; an expired
// reserved row must be treated as absent by every reader.
type SubdomainReservation struct {
	ID        string            `json:"id"`
	Subdomain string            `json:"subdomain"`
	Status    ReservationStatus `json:"status"`
	DomainID  *string           `json:"domain_id,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Expired reports whether a temporary reservation has lapsed. Active
// reservations never expire regardless of age.
func (r *SubdomainReservation) Expired(now time.Time) bool {
	if r.Status != StatusReserved || r.ExpiresAt == nil {
		return false
	}
	return r.ExpiresAt.Before(now)
}
