package ports

import (
	"context"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
)

// ReservationRepository persists subdomain reservations. Claim is the one
// operation with a hard atomicity requirement: the check-and-insert for a
// candidate must be a single store operation so two concurrent claims of
// the same string cannot both succeed.
type ReservationRepository interface {
	// Claim inserts a reservation for res.Subdomain if no live row exists,
	// replacing an expired temporary row in the same atomic statement.
	// Returns domain.ErrSubdomainUnavailable when the name is held.
	Claim(ctx context.Context, res *domain.SubdomainReservation) error
	// Confirm flips reserved -> active, attaches domainID and clears the
	// expiry. Idempotent per domainID; domain.ErrNotFound once reaped.
	Confirm(ctx context.Context, reservationID string, domainID string) error
	DeleteReservation(ctx context.Context, reservationID string) error
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.SubdomainReservation, error)
	// DeleteExpired batch-deletes temporary rows past their expiry and
	// returns the subdomains that were removed so callers can drop any
	// cached verdicts for them.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
	Ping(ctx context.Context) error
}

// DomainRepository persists domain records binding businesses to hostnames.
type DomainRepository interface {
	CreateDomain(ctx context.Context, d *domain.Domain) error
	GetDomain(ctx context.Context, id string) (*domain.Domain, error)
	GetDomainByBusiness(ctx context.Context, businessID string) (*domain.Domain, error)
	UpdateDomain(ctx context.Context, d *domain.Domain) error
	DeleteDomain(ctx context.Context, id string) error
}

// BusinessRepository persists businesses and their draft/published content.
type BusinessRepository interface {
	CreateBusiness(ctx context.Context, b *domain.Business) error
	GetBusiness(ctx context.Context, id string) (*domain.Business, error)
	// SaveDraft persists the draft snapshot only, leaving published fields
	// and the publish flag untouched.
	SaveDraft(ctx context.Context, businessID string, draft domain.SiteContent) error
	// Publish copies draft -> published, sets is_published and published_at
	// in a single store-side statement so edits are never partially visible.
	Publish(ctx context.Context, businessID string, at time.Time) error
	SetPublished(ctx context.Context, businessID string, published bool) error
}

// APIKeyRepository backs the management API's bearer-key auth.
type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// ProviderDomain is the hosting provider's view of a registered domain.
type ProviderDomain struct {
	ID       string
	Name     string
	ApexName string
	Verified bool
	SSL      bool
}

// DomainProvider is the external hosting provider's domain API. Implementations
// must apply a conservative request timeout and never retry internally;
// verification is caller-polled.
type DomainProvider interface {
	// AddDomain registers a domain with the provider. A provider-side
	// "already in use" conflict surfaces as domain.ErrDomainConflict.
	AddDomain(ctx context.Context, name string) (*ProviderDomain, error)
	// GetDomain reports the provider's verified/ssl flags for a domain.
	GetDomain(ctx context.Context, name string) (*ProviderDomain, error)
	// RemoveDomain deletes the provider-side record; a 404 counts as
	// success since the record may already be gone.
	RemoveDomain(ctx context.Context, name string) error
	// Configured reports whether provider credentials are present. When
	// false, status checks degrade to the HTTPS-probe fallback.
	Configured() bool
}

// AvailabilityCache is a short-TTL cache of taken subdomains consulted by
// read-only availability checks. Reserve never consults it; correctness
// stays at the store.
type AvailabilityCache interface {
	IsTaken(ctx context.Context, subdomain string) (bool, bool)
	MarkTaken(ctx context.Context, subdomain string, ttl time.Duration)
	Forget(ctx context.Context, subdomain string)
}

// ReservationService claims, confirms, releases and expires subdomains.
type ReservationService interface {
	Reserve(ctx context.Context, candidate string, temporary bool) (*domain.SubdomainReservation, error)
	Confirm(ctx context.Context, reservationID string, domainID string) error
	// Release rolls back a failed creation and drops any cached "taken"
	// verdict for the subdomain. Best-effort: failures are logged, not
	// returned, since temporary reservations self-expire.
	Release(ctx context.Context, reservationID string, subdomain string)
	IsAvailable(ctx context.Context, candidate string) (bool, error)
	// GenerateAndReserve normalizes base and claims the first free
	// candidate: verbatim, then numbered, then timestamp-suffixed.
	GenerateAndReserve(ctx context.Context, base string) (*domain.SubdomainReservation, error)
	CleanupExpired(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context) error
}

// DomainService walks a domain through provisioning and custom-domain
// verification.
type DomainService interface {
	// ProvisionSite runs the creation saga: claim a subdomain, create the
	// domain record, confirm the claim. A failure after the claim releases it.
	ProvisionSite(ctx context.Context, businessID string, base string) (*domain.Domain, error)
	AttachCustomDomain(ctx context.Context, domainID string, customDomain string) (*domain.Domain, error)
	Instructions(ctx context.Context, domainID string) (*domain.DNSInstructions, error)
	CheckStatus(ctx context.Context, domainID string) (domain.VerificationStatus, string, error)
	DetachCustomDomain(ctx context.Context, domainID string) error
	GetForBusiness(ctx context.Context, businessID string) (*domain.Domain, error)
	GetDomainByID(ctx context.Context, domainID string) (*domain.Domain, error)
}

// PublishingService governs the draft -> published transition.
type PublishingService interface {
	UpdateDraft(ctx context.Context, businessID string, patch domain.ContentPatch) (*domain.Business, error)
	SaveDraft(ctx context.Context, businessID string, draft domain.SiteContent) error
	Publish(ctx context.Context, businessID string) (*domain.Business, error)
	Unpublish(ctx context.Context, businessID string) error
	DiscardDraft(ctx context.Context, businessID string) (*domain.Business, error)
	CanPublish(ctx context.Context, businessID string) (*domain.PublishEligibility, error)
}
