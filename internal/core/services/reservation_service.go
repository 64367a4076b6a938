package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/infrastructure/metrics"
)

// maxGenerateAttempts bounds the numbered-suffix search in
// GenerateAndReserve before falling back to a timestamp suffix.
const maxGenerateAttempts = 10

// availabilityCacheTTL is how long a "taken" verdict may be served from
// cache. Short, because a reservation can lapse at any moment.
const availabilityCacheTTL = 30 * time.Second

type reservationService struct {
	repo   ports.ReservationRepository
	cache  ports.AvailabilityCache
	logger *slog.Logger
	now    func() time.Time
}

// NewReservationService builds the subdomain reservation service. cache may
// be nil, in which case availability checks always hit the store.
func NewReservationService(repo ports.ReservationRepository, cache ports.AvailabilityCache, logger *slog.Logger) ports.ReservationService {
	return &reservationService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

func (s *reservationService) Reserve(ctx context.Context, candidate string, temporary bool) (*domain.SubdomainReservation, error) {
	normalized := domain.NormalizeSubdomain(candidate)
	if err := domain.ValidateSubdomain(normalized); err != nil {
		return nil, err
	}

	now := s.now()
	res := &domain.SubdomainReservation{
		ID:        uuid.New().String(),
		Subdomain: normalized,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if temporary {
		res.Status = domain.StatusReserved
		expiresAt := now.Add(domain.ReservationTTL)
		res.ExpiresAt = &expiresAt
	}

	// The claim is a single conditional upsert at the store; no retry here.
	// On Unavailable the caller picks another candidate.
	if err := s.repo.Claim(ctx, res); err != nil {
		metrics.ReservationsTotal.WithLabelValues(claimResult(err)).Inc()
		return nil, err
	}
	metrics.ReservationsTotal.WithLabelValues("claimed").Inc()

	if s.cache != nil {
		s.cache.MarkTaken(ctx, normalized, availabilityCacheTTL)
	}
	return res, nil
}

func (s *reservationService) Confirm(ctx context.Context, reservationID string, domainID string) error {
	if domainID == "" {
		return fmt.Errorf("domain id cannot be empty")
	}
	return s.repo.Confirm(ctx, reservationID, domainID)
}

func (s *reservationService) Release(ctx context.Context, reservationID string, subdomain string) {
	// Cleanup step only: the temporary claim self-expires regardless, so a
	// failed delete is logged and swallowed.
	if err := s.repo.DeleteReservation(ctx, reservationID); err != nil {
		s.logger.Warn("failed to release reservation",
			"reservation_id", reservationID, "error", err)
	}
	// Drop the cached verdict even if the delete failed; the next
	// availability check then reads the store's answer.
	if s.cache != nil && subdomain != "" {
		s.cache.Forget(ctx, subdomain)
	}
}

func (s *reservationService) IsAvailable(ctx context.Context, candidate string) (bool, error) {
	normalized := domain.NormalizeSubdomain(candidate)
	if err := domain.ValidateSubdomain(normalized); err != nil {
		return false, nil //nolint:nilerr // invalid names are simply not available
	}

	if s.cache != nil {
		if taken, ok := s.cache.IsTaken(ctx, normalized); ok && taken {
			return false, nil
		}
	}

	res, err := s.repo.GetBySubdomain(ctx, normalized)
	if err != nil {
		return false, err
	}
	// Same lazy-expiry rule as Claim: an expired temporary row is free.
	if res == nil || res.Expired(s.now()) {
		return true, nil
	}
	if s.cache != nil {
		s.cache.MarkTaken(ctx, normalized, availabilityCacheTTL)
	}
	return false, nil
}

func (s *reservationService) GenerateAndReserve(ctx context.Context, base string) (*domain.SubdomainReservation, error) {
	normalized := domain.NormalizeSubdomain(base)
	if err := domain.ValidateSubdomain(normalized); err != nil {
		return nil, err
	}

	// Deliberate candidate ordering: the human-readable name first, then
	// sequential numbered variants so behavior is deterministic, then a
	// timestamp suffix as the last resort.
	for i := 0; i <= maxGenerateAttempts; i++ {
		candidate := normalized
		if i > 0 {
			candidate = withSuffix(normalized, fmt.Sprintf("-%d", i))
		}
		res, err := s.Reserve(ctx, candidate, true)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrSubdomainUnavailable) {
			return nil, err
		}
	}

	fallback := withSuffix(normalized, fmt.Sprintf("-%d", s.now().Unix()))
	return s.Reserve(ctx, fallback, true)
}

// withSuffix appends suffix to base, trimming base first so the result
// stays within the subdomain length limit. Without the trim a maximum
// length base would re-normalize every candidate back to itself.
func withSuffix(base, suffix string) string {
	if max := domain.MaxSubdomainLength - len(suffix); len(base) > max {
		base = strings.TrimRight(base[:max], "-")
	}
	return base + suffix
}

func (s *reservationService) CleanupExpired(ctx context.Context) (int64, error) {
	reaped, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		for _, subdomain := range reaped {
			s.cache.Forget(ctx, subdomain)
		}
	}
	count := int64(len(reaped))
	if count > 0 {
		metrics.ReservationsExpiredTotal.Add(float64(count))
		s.logger.Info("reaped expired reservations", "count", count)
	}
	return count, nil
}

func (s *reservationService) HealthCheck(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func claimResult(err error) string {
	if errors.Is(err, domain.ErrSubdomainUnavailable) {
		return "unavailable"
	}
	return "error"
}
