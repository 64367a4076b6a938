package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/testutil"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func claimMatcher(subdomain string) interface{} {
	return mock.MatchedBy(func(r *domain.SubdomainReservation) bool {
		return r.Subdomain == subdomain
	})
}

func TestReserve_TemporaryClaim(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("Claim", claimMatcher("joes-diner")).Return(nil).Once()

	svc := NewReservationService(repo, nil, testLogger())

	res, err := svc.Reserve(context.Background(), "Joe's Diner!", true)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if res.Subdomain != "joes-diner" {
		t.Errorf("expected normalized subdomain joes-diner, got %s", res.Subdomain)
	}
	if res.Status != domain.StatusReserved {
		t.Errorf("expected status reserved, got %s", res.Status)
	}
	if res.ExpiresAt == nil {
		t.Fatal("expected an expiry on a temporary reservation")
	}
	ttl := res.ExpiresAt.Sub(res.CreatedAt)
	if ttl != domain.ReservationTTL {
		t.Errorf("expected %v TTL, got %v", domain.ReservationTTL, ttl)
	}
	if res.ID == "" {
		t.Error("expected a generated reservation ID")
	}
	repo.AssertExpectations(t)
}

func TestReserve_PermanentClaim(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("Claim", claimMatcher("acme")).Return(nil).Once()

	svc := NewReservationService(repo, nil, testLogger())

	res, err := svc.Reserve(context.Background(), "acme", false)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if res.Status != domain.StatusActive {
		t.Errorf("expected status active, got %s", res.Status)
	}
	if res.ExpiresAt != nil {
		t.Error("permanent reservations must not expire")
	}
	repo.AssertExpectations(t)
}

func TestReserve_InvalidName(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	svc := NewReservationService(repo, nil, testLogger())

	if _, err := svc.Reserve(context.Background(), "!!!", true); err == nil {
		t.Fatal("expected validation error for a name that normalizes to nothing")
	}
	if _, err := svc.Reserve(context.Background(), "www", true); err == nil {
		t.Fatal("expected reserved-word rejection")
	}
	repo.AssertNotCalled(t, "Claim", mock.Anything)
}

func TestReserve_Unavailable(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("Claim", mock.Anything).Return(domain.ErrSubdomainUnavailable).Once()

	svc := NewReservationService(repo, nil, testLogger())

	_, err := svc.Reserve(context.Background(), "taken", true)
	if !errors.Is(err, domain.ErrSubdomainUnavailable) {
		t.Fatalf("expected ErrSubdomainUnavailable, got %v", err)
	}
	repo.AssertExpectations(t)
}

func TestGenerateAndReserve_NumberedFallback(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("Claim", claimMatcher("joes-diner")).Return(domain.ErrSubdomainUnavailable).Once()
	repo.On("Claim", claimMatcher("joes-diner-1")).Return(nil).Once()

	svc := NewReservationService(repo, nil, testLogger())

	res, err := svc.GenerateAndReserve(context.Background(), "Joe's Diner!")
	if err != nil {
		t.Fatalf("GenerateAndReserve failed: %v", err)
	}
	if res.Subdomain != "joes-diner-1" {
		t.Errorf("expected joes-diner-1, got %s", res.Subdomain)
	}
	repo.AssertExpectations(t)
}

func TestGenerateAndReserve_AbortsOnStoreError(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	boom := errors.New("connection refused")
	repo.On("Claim", mock.Anything).Return(boom).Once()

	svc := NewReservationService(repo, nil, testLogger())

	_, err := svc.GenerateAndReserve(context.Background(), "acme")
	if !errors.Is(err, boom) {
		t.Fatalf("expected the store error to abort the search, got %v", err)
	}
	repo.AssertNumberOfCalls(t, "Claim", 1)
}

func TestGenerateAndReserve_TimestampLastResort(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	var candidates []string
	repo.On("Claim", mock.Anything).Return(domain.ErrSubdomainUnavailable).Times(maxGenerateAttempts + 1).Run(func(args mock.Arguments) {
		candidates = append(candidates, args.Get(0).(*domain.SubdomainReservation).Subdomain)
	})
	repo.On("Claim", mock.Anything).Return(nil).Once().Run(func(args mock.Arguments) {
		candidates = append(candidates, args.Get(0).(*domain.SubdomainReservation).Subdomain)
	})

	svc := NewReservationService(repo, nil, testLogger())

	res, err := svc.GenerateAndReserve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GenerateAndReserve failed: %v", err)
	}

	if candidates[0] != "acme" || candidates[1] != "acme-1" || candidates[10] != "acme-10" {
		t.Errorf("unexpected candidate ordering: %v", candidates)
	}
	if !strings.HasPrefix(res.Subdomain, "acme-") || res.Subdomain == "acme-10" {
		t.Errorf("expected a timestamp-suffixed last resort, got %s", res.Subdomain)
	}
	repo.AssertExpectations(t)
}

func TestGenerateAndReserve_TruncatesMaxLengthBase(t *testing.T) {
	// A base that normalizes to the full 63 characters: without trimming,
	// every suffixed candidate would re-normalize back to the same string.
	long := strings.Repeat("a", domain.MaxSubdomainLength)

	repo := &testutil.MockReservationRepo{}
	var candidates []string
	record := func(args mock.Arguments) {
		candidates = append(candidates, args.Get(0).(*domain.SubdomainReservation).Subdomain)
	}
	repo.On("Claim", mock.Anything).Return(domain.ErrSubdomainUnavailable).Once().Run(record)
	repo.On("Claim", mock.Anything).Return(nil).Once().Run(record)

	svc := NewReservationService(repo, nil, testLogger())

	res, err := svc.GenerateAndReserve(context.Background(), long)
	if err != nil {
		t.Fatalf("GenerateAndReserve failed: %v", err)
	}
	if candidates[0] != long {
		t.Errorf("expected the verbatim name first, got %s", candidates[0])
	}
	if res.Subdomain == long {
		t.Error("expected a distinct numbered candidate, got the base again")
	}
	if !strings.HasSuffix(res.Subdomain, "-1") {
		t.Errorf("expected a -1 suffix, got %s", res.Subdomain)
	}
	if len(res.Subdomain) > domain.MaxSubdomainLength {
		t.Errorf("candidate exceeds the length limit: %s", res.Subdomain)
	}
	repo.AssertExpectations(t)
}

func TestIsAvailable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("free name", func(t *testing.T) {
		repo := &testutil.MockReservationRepo{}
		repo.On("GetBySubdomain", "free").Return(nil, nil).Once()
		svc := NewReservationService(repo, nil, testLogger())

		ok, err := svc.IsAvailable(context.Background(), "free")
		if err != nil || !ok {
			t.Errorf("expected available, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("expired reservation is free", func(t *testing.T) {
		repo := &testutil.MockReservationRepo{}
		repo.On("GetBySubdomain", "lapsed").Return(&domain.SubdomainReservation{
			Subdomain: "lapsed",
			Status:    domain.StatusReserved,
			ExpiresAt: &past,
		}, nil).Once()
		svc := NewReservationService(repo, nil, testLogger())

		ok, err := svc.IsAvailable(context.Background(), "lapsed")
		if err != nil || !ok {
			t.Errorf("expected available, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("live reservation is taken", func(t *testing.T) {
		repo := &testutil.MockReservationRepo{}
		repo.On("GetBySubdomain", "held").Return(&domain.SubdomainReservation{
			Subdomain: "held",
			Status:    domain.StatusReserved,
			ExpiresAt: &future,
		}, nil).Once()
		svc := NewReservationService(repo, nil, testLogger())

		ok, err := svc.IsAvailable(context.Background(), "held")
		if err != nil || ok {
			t.Errorf("expected unavailable, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("invalid name reports unavailable without error", func(t *testing.T) {
		repo := &testutil.MockReservationRepo{}
		svc := NewReservationService(repo, nil, testLogger())

		ok, err := svc.IsAvailable(context.Background(), "-bad-")
		if err != nil || ok {
			t.Errorf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
		}
		repo.AssertNotCalled(t, "GetBySubdomain", mock.Anything)
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		repo := &testutil.MockReservationRepo{}
		cache := &testutil.MockAvailabilityCache{}
		cache.On("IsTaken", "cached").Return(true, true).Once()
		svc := NewReservationService(repo, cache, testLogger())

		ok, err := svc.IsAvailable(context.Background(), "cached")
		if err != nil || ok {
			t.Errorf("expected unavailable, got ok=%v err=%v", ok, err)
		}
		repo.AssertNotCalled(t, "GetBySubdomain", mock.Anything)
		cache.AssertExpectations(t)
	})
}

func TestConfirm_RequiresDomainID(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	svc := NewReservationService(repo, nil, testLogger())

	if err := svc.Confirm(context.Background(), "res-1", ""); err == nil {
		t.Fatal("expected an error for an empty domain id")
	}
	repo.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestRelease_SwallowsStoreError(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("DeleteReservation", "res-1").Return(errors.New("gone")).Once()

	svc := NewReservationService(repo, nil, testLogger())
	svc.Release(context.Background(), "res-1", "joes-diner")
	repo.AssertExpectations(t)
}

func TestRelease_InvalidatesCachedVerdict(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	cache := &testutil.MockAvailabilityCache{}
	repo.On("DeleteReservation", "res-1").Return(nil).Once()
	cache.On("Forget", "joes-diner").Return().Once()

	svc := NewReservationService(repo, cache, testLogger())
	svc.Release(context.Background(), "res-1", "joes-diner")

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

// fakeCache is a stateful stand-in so tests can observe a verdict being
// cached by one call and dropped by another.
type fakeCache struct {
	taken map[string]bool
}

func (f *fakeCache) IsTaken(ctx context.Context, subdomain string) (bool, bool) {
	v, ok := f.taken[subdomain]
	return v, ok
}

func (f *fakeCache) MarkTaken(ctx context.Context, subdomain string, ttl time.Duration) {
	f.taken[subdomain] = true
}

func (f *fakeCache) Forget(ctx context.Context, subdomain string) {
	delete(f.taken, subdomain)
}

func TestIsAvailable_TrueAfterRelease(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	repo.On("Claim", claimMatcher("joes-diner")).Return(nil).Once()
	repo.On("DeleteReservation", mock.Anything).Return(nil).Once()
	repo.On("GetBySubdomain", "joes-diner").Return(nil, nil).Once()

	svc := NewReservationService(repo, &fakeCache{taken: map[string]bool{}}, testLogger())

	res, err := svc.Reserve(context.Background(), "Joe's Diner!", true)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	svc.Release(context.Background(), res.ID, res.Subdomain)

	// The release dropped the cached "taken" verdict, so the check reads
	// the store instead of serving a stale answer for the cache TTL.
	free, err := svc.IsAvailable(context.Background(), "joes-diner")
	if err != nil {
		t.Fatalf("IsAvailable failed: %v", err)
	}
	if !free {
		t.Error("expected a released subdomain to read as available")
	}
	repo.AssertExpectations(t)
}

func TestCleanupExpired(t *testing.T) {
	repo := &testutil.MockReservationRepo{}
	cache := &testutil.MockAvailabilityCache{}
	repo.On("DeleteExpired", mock.Anything).Return([]string{"stale-1", "stale-2", "stale-3"}, nil).Once()
	cache.On("Forget", "stale-1").Return().Once()
	cache.On("Forget", "stale-2").Return().Once()
	cache.On("Forget", "stale-3").Return().Once()

	svc := NewReservationService(repo, cache, testLogger())

	count, err := svc.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 reaped, got %d", count)
	}
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}
