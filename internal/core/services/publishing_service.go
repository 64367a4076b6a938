package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/infrastructure/metrics"
)

type publishingService struct {
	businesses ports.BusinessRepository
	domains    ports.DomainRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewPublishingService builds the draft/publish state machine service.
func NewPublishingService(businesses ports.BusinessRepository, domains ports.DomainRepository, logger *slog.Logger) ports.PublishingService {
	return &publishingService{businesses: businesses, domains: domains, logger: logger, now: time.Now}
}

// UpdateDraft merges a typed partial update into the draft fields only and
// persists the result. The published snapshot is never touched.
func (s *publishingService) UpdateDraft(ctx context.Context, businessID string, patch domain.ContentPatch) (*domain.Business, error) {
	b, err := s.get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return b, nil
	}

	patch.Apply(&b.Draft)
	if err := s.businesses.SaveDraft(ctx, businessID, b.Draft); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now()
	return b, nil
}

// SaveDraft persists a full draft snapshot. Invoked both on explicit user
// action and on the editor's inactivity timer; last write wins.
func (s *publishingService) SaveDraft(ctx context.Context, businessID string, draft domain.SiteContent) error {
	if _, err := s.get(ctx, businessID); err != nil {
		return err
	}
	return s.businesses.SaveDraft(ctx, businessID, draft)
}

// Publish copies draft -> published atomically, gated on CanPublish.
// Publishing unchanged content is a no-op that still advances PublishedAt,
// so "publish" always means "confirmed live as of now".
func (s *publishingService) Publish(ctx context.Context, businessID string) (*domain.Business, error) {
	b, err := s.get(ctx, businessID)
	if err != nil {
		return nil, err
	}

	eligibility, err := s.CanPublish(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if !eligibility.CanPublish {
		metrics.PublishesTotal.WithLabelValues("blocked").Inc()
		return nil, domain.ErrVerificationRequired
	}

	at := s.now()
	if err := s.businesses.Publish(ctx, businessID, at); err != nil {
		metrics.PublishesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PublishesTotal.WithLabelValues("published").Inc()

	published := b.Draft.Clone()
	b.Published = &published
	b.IsPublished = true
	b.PublishedAt = &at
	b.UpdatedAt = at
	s.logger.Info("published business", "business_id", businessID)
	return b, nil
}

// Unpublish hides the site but keeps the published snapshot and domain
// binding, so republishing is instant.
func (s *publishingService) Unpublish(ctx context.Context, businessID string) error {
	if _, err := s.get(ctx, businessID); err != nil {
		return err
	}
	return s.businesses.SetPublished(ctx, businessID, false)
}

// DiscardDraft resets the draft to the last published snapshot.
func (s *publishingService) DiscardDraft(ctx context.Context, businessID string) (*domain.Business, error) {
	b, err := s.get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b.Published == nil {
		return nil, errors.New("business has never been published; nothing to revert to")
	}

	b.Draft = b.Published.Clone()
	if err := s.businesses.SaveDraft(ctx, businessID, b.Draft); err != nil {
		return nil, err
	}
	return b, nil
}

// CanPublish reports whether the business may go live: it needs a bound
// domain that is either subdomain-only (auto-verified) or a verified custom
// domain. Fails closed with RequiresVerification when not.
func (s *publishingService) CanPublish(ctx context.Context, businessID string) (*domain.PublishEligibility, error) {
	if _, err := s.get(ctx, businessID); err != nil {
		return nil, err
	}

	d, err := s.domains.GetDomainByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &domain.PublishEligibility{
			RequiresVerification: true,
			Reason:               "no domain is bound to this business",
		}, nil
	}
	if !d.IsVerified {
		return &domain.PublishEligibility{
			RequiresVerification: true,
			Reason:               "custom domain is not verified yet",
		}, nil
	}
	return &domain.PublishEligibility{CanPublish: true}, nil
}

func (s *publishingService) get(ctx context.Context, businessID string) (*domain.Business, error) {
	b, err := s.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}
