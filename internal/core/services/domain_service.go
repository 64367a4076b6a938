package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/infrastructure/metrics"
)

const (
	// EdgeHost is the provider edge the user's CNAME must point at.
	EdgeHost = "cname.vercel-dns.com"
	// verifyRecordPrefix names the TXT ownership record.
	verifyRecordPrefix = "_locasite-verify"
	// probeTimeout bounds the credential-less HTTPS fallback check.
	probeTimeout = 5 * time.Second
)

type domainService struct {
	domains      ports.DomainRepository
	reservations ports.ReservationService
	provider     ports.DomainProvider
	probe        *http.Client
	baseDomain   string
	logger       *slog.Logger
	now          func() time.Time
}

// NewDomainService builds the domain provisioning and verification service.
// baseDomain is the zone subdomain sites live under, e.g. "locasite.site".
func NewDomainService(domains ports.DomainRepository, reservations ports.ReservationService, provider ports.DomainProvider, baseDomain string, logger *slog.Logger) ports.DomainService {
	return &domainService{
		domains:      domains,
		reservations: reservations,
		provider:     provider,
		probe:        &http.Client{Timeout: probeTimeout},
		baseDomain:   baseDomain,
		logger:       logger,
		now:          time.Now,
	}
}

// ProvisionSite is the site-creation saga: claim a subdomain, create the
// domain record referencing it, then confirm the claim. Any failure after
// the claim releases it; the temporary reservation self-expires anyway.
func (s *domainService) ProvisionSite(ctx context.Context, businessID string, base string) (*domain.Domain, error) {
	if existing, err := s.domains.GetDomainByBusiness(ctx, businessID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("business %s already has a domain", businessID)
	}

	res, err := s.reservations.GenerateAndReserve(ctx, base)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.Domain{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		Subdomain:  res.Subdomain,
		// Subdomains under the base zone are auto-verified on creation.
		IsVerified:        true,
		VerificationToken: newVerificationToken(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.domains.CreateDomain(ctx, d); err != nil {
		s.reservations.Release(ctx, res.ID, res.Subdomain)
		return nil, err
	}
	if err := s.reservations.Confirm(ctx, res.ID, d.ID); err != nil {
		s.reservations.Release(ctx, res.ID, res.Subdomain)
		if delErr := s.domains.DeleteDomain(ctx, d.ID); delErr != nil {
			s.logger.Warn("failed to roll back domain record",
				"domain_id", d.ID, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("provisioned site",
		"business_id", businessID, "hostname", s.hostname(res.Subdomain))
	return d, nil
}

// hostname is the full serving name for a subdomain under the base zone.
func (s *domainService) hostname(subdomain string) string {
	return subdomain + "." + s.baseDomain
}

// AttachCustomDomain registers the custom domain with the hosting provider
// and moves the record into the pending-DNS state. A provider-side conflict
// ("domain taken elsewhere") surfaces as domain.ErrDomainConflict, distinct
// from generic failure.
func (s *domainService) AttachCustomDomain(ctx context.Context, domainID string, customDomain string) (*domain.Domain, error) {
	if err := domain.ValidateCustomDomain(customDomain); err != nil {
		return nil, err
	}

	d, err := s.get(ctx, domainID)
	if err != nil {
		return nil, err
	}

	pd, err := s.provider.AddDomain(ctx, customDomain)
	if err != nil {
		if errors.Is(err, domain.ErrDomainConflict) {
			return nil, err
		}
		s.logger.Error("provider rejected domain registration",
			"domain", customDomain, "business_id", d.BusinessID, "error", err)
		return nil, err
	}

	sslPending := domain.SSLPending
	d.CustomDomain = &customDomain
	d.IsVerified = false
	d.SSLStatus = &sslPending
	if pd != nil {
		if pd.ID != "" {
			d.ProviderDomainID = &pd.ID
		}
		apex := pd.ApexName
		if apex == "" {
			apex = domain.ApexName(customDomain)
		}
		d.ApexName = &apex
	}
	if d.VerificationToken == "" {
		d.VerificationToken = newVerificationToken()
	}
	d.UpdatedAt = s.now()

	if err := s.domains.UpdateDomain(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Instructions produces the exact records the user must publish: one CNAME
// to the provider edge and one TXT ownership token. Pure read; safe to call
// repeatedly.
func (s *domainService) Instructions(ctx context.Context, domainID string) (*domain.DNSInstructions, error) {
	d, err := s.get(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.CustomDomain == nil {
		return nil, fmt.Errorf("domain %s has no custom domain attached", domainID)
	}

	name := *d.CustomDomain
	return &domain.DNSInstructions{
		Domain: name,
		Records: []domain.DNSRecord{
			{Type: "CNAME", Name: name, Value: EdgeHost, TTL: 3600},
			{Type: "TXT", Name: verifyRecordPrefix + "." + name, Value: d.VerificationToken, TTL: 3600},
		},
		HowTo: "Add both records at your DNS provider, then use \"check now\". " +
			"Propagation can take up to 48 hours depending on the registrar.",
	}, nil
}

// CheckStatus is the polling step of the verification state machine. The
// provider path maps verified/ssl flags; without credentials it degrades to
// an HTTPS probe of the domain, which proves reachability but inspects no
// certificate chain and must be treated as lower confidence.
func (s *domainService) CheckStatus(ctx context.Context, domainID string) (domain.VerificationStatus, string, error) {
	d, err := s.get(ctx, domainID)
	if err != nil {
		return "", "", err
	}
	if d.CustomDomain == nil {
		// Subdomain-only sites are auto-verified.
		return domain.VerifyActive, fmt.Sprintf("%s is active.", s.hostname(d.Subdomain)), nil
	}
	name := *d.CustomDomain

	var status domain.VerificationStatus
	var message string
	if s.provider.Configured() {
		status, message, err = s.checkViaProvider(ctx, name)
	} else {
		status, message = s.checkViaProbe(ctx, name)
	}
	if err != nil {
		metrics.VerificationChecksTotal.WithLabelValues("error").Inc()
		return "", "", err
	}
	metrics.VerificationChecksTotal.WithLabelValues(string(status)).Inc()

	if err := s.applyStatus(ctx, d, status); err != nil {
		return "", "", err
	}
	return status, message, nil
}

func (s *domainService) checkViaProvider(ctx context.Context, name string) (domain.VerificationStatus, string, error) {
	pd, err := s.provider.GetDomain(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnreachable) {
			// Transient: the next poll tick retries.
			return "", "", err
		}
		return "", "", err
	}
	switch {
	case pd.Verified && pd.SSL:
		return domain.VerifyActive, "Domain is verified and serving over HTTPS.", nil
	case pd.Verified:
		return domain.VerifyPending, "DNS is verified; the SSL certificate is being provisioned.", nil
	default:
		return domain.VerifyFailed, "DNS records not found. Check the CNAME and TXT records and try again.", nil
	}
}

// checkViaProbe is the heuristic fallback used when no provider credentials
// are configured: a successful HTTPS response means the domain is serving,
// anything else stays pending. Not a certificate check.
func (s *domainService) checkViaProbe(ctx context.Context, name string) (domain.VerificationStatus, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://"+name, nil)
	if err != nil {
		return domain.VerifyPending, "Could not probe domain yet."
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return domain.VerifyPending, "Domain is not responding over HTTPS yet."
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			s.logger.Warn("failed to close probe response body", "error", errClose)
		}
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return domain.VerifyActive, "Domain responds over HTTPS (unverified heuristic check)."
	}
	return domain.VerifyPending, fmt.Sprintf("Domain returned HTTP %d; still waiting for DNS.", resp.StatusCode)
}

func (s *domainService) applyStatus(ctx context.Context, d *domain.Domain, status domain.VerificationStatus) error {
	var ssl domain.SSLStatus
	verified := false
	switch status {
	case domain.VerifyActive:
		verified = true
		ssl = domain.SSLActive
	case domain.VerifyPending:
		ssl = domain.SSLPending
	case domain.VerifyFailed:
		ssl = domain.SSLFailed
	}
	if d.IsVerified == verified && d.SSLStatus != nil && *d.SSLStatus == ssl {
		return nil
	}
	d.IsVerified = verified
	d.SSLStatus = &ssl
	d.UpdatedAt = s.now()
	return s.domains.UpdateDomain(ctx, d)
}

// DetachCustomDomain removes the provider-side record (a 404 there counts
// as success) and clears the binding fields, leaving the subdomain intact.
func (s *domainService) DetachCustomDomain(ctx context.Context, domainID string) error {
	d, err := s.get(ctx, domainID)
	if err != nil {
		return err
	}
	if d.CustomDomain == nil {
		return nil
	}

	if err := s.provider.RemoveDomain(ctx, *d.CustomDomain); err != nil {
		return err
	}

	d.CustomDomain = nil
	d.ProviderDomainID = nil
	d.ApexName = nil
	d.SSLStatus = nil
	d.SSLProvider = nil
	// The subdomain remains the serving hostname and is auto-verified.
	d.IsVerified = true
	d.UpdatedAt = s.now()
	return s.domains.UpdateDomain(ctx, d)
}

func (s *domainService) GetForBusiness(ctx context.Context, businessID string) (*domain.Domain, error) {
	d, err := s.domains.GetDomainByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (s *domainService) GetDomainByID(ctx context.Context, domainID string) (*domain.Domain, error) {
	return s.get(ctx, domainID)
}

func (s *domainService) get(ctx context.Context, domainID string) (*domain.Domain, error) {
	d, err := s.domains.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func newVerificationToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for token generation.
		panic(err)
	}
	return "locasite-verify-" + hex.EncodeToString(buf)
}
