// Package testutil provides shared testify mocks for the repository and
// provider ports.
package testutil

import (
	"context"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) Claim(ctx context.Context, res *domain.SubdomainReservation) error {
	args := m.Called(res)
	return args.Error(0)
}

func (m *MockReservationRepo) Confirm(ctx context.Context, reservationID string, domainID string) error {
	args := m.Called(reservationID, domainID)
	return args.Error(0)
}

func (m *MockReservationRepo) DeleteReservation(ctx context.Context, reservationID string) error {
	args := m.Called(reservationID)
	return args.Error(0)
}

func (m *MockReservationRepo) GetBySubdomain(ctx context.Context, subdomain string) (*domain.SubdomainReservation, error) {
	args := m.Called(subdomain)
	res, _ := args.Get(0).(*domain.SubdomainReservation)
	return res, args.Error(1)
}

func (m *MockReservationRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(now)
	subs, _ := args.Get(0).([]string)
	return subs, args.Error(1)
}

func (m *MockReservationRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

type MockDomainRepo struct {
	mock.Mock
}

func (m *MockDomainRepo) CreateDomain(ctx context.Context, d *domain.Domain) error {
	args := m.Called(d)
	return args.Error(0)
}

func (m *MockDomainRepo) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	args := m.Called(id)
	d, _ := args.Get(0).(*domain.Domain)
	return d, args.Error(1)
}

func (m *MockDomainRepo) GetDomainByBusiness(ctx context.Context, businessID string) (*domain.Domain, error) {
	args := m.Called(businessID)
	d, _ := args.Get(0).(*domain.Domain)
	return d, args.Error(1)
}

func (m *MockDomainRepo) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	args := m.Called(d)
	return args.Error(0)
}

func (m *MockDomainRepo) DeleteDomain(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) AddDomain(ctx context.Context, name string) (*ports.ProviderDomain, error) {
	args := m.Called(name)
	pd, _ := args.Get(0).(*ports.ProviderDomain)
	return pd, args.Error(1)
}

func (m *MockProvider) GetDomain(ctx context.Context, name string) (*ports.ProviderDomain, error) {
	args := m.Called(name)
	pd, _ := args.Get(0).(*ports.ProviderDomain)
	return pd, args.Error(1)
}

func (m *MockProvider) RemoveDomain(ctx context.Context, name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockProvider) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

type MockBusinessRepo struct {
	mock.Mock
}

func (m *MockBusinessRepo) CreateBusiness(ctx context.Context, b *domain.Business) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBusinessRepo) GetBusiness(ctx context.Context, id string) (*domain.Business, error) {
	args := m.Called(id)
	b, _ := args.Get(0).(*domain.Business)
	return b, args.Error(1)
}

func (m *MockBusinessRepo) SaveDraft(ctx context.Context, businessID string, draft domain.SiteContent) error {
	args := m.Called(businessID, draft)
	return args.Error(0)
}

func (m *MockBusinessRepo) Publish(ctx context.Context, businessID string, at time.Time) error {
	args := m.Called(businessID, at)
	return args.Error(0)
}

func (m *MockBusinessRepo) SetPublished(ctx context.Context, businessID string, published bool) error {
	args := m.Called(businessID, published)
	return args.Error(0)
}

type MockAPIKeyRepo struct {
	mock.Mock
}

func (m *MockAPIKeyRepo) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockAPIKeyRepo) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	args := m.Called(keyHash)
	k, _ := args.Get(0).(*domain.APIKey)
	return k, args.Error(1)
}

func (m *MockAPIKeyRepo) ListAPIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	args := m.Called(ownerID)
	keys, _ := args.Get(0).([]domain.APIKey)
	return keys, args.Error(1)
}

func (m *MockAPIKeyRepo) RevokeAPIKey(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) IsTaken(ctx context.Context, subdomain string) (bool, bool) {
	args := m.Called(subdomain)
	return args.Bool(0), args.Bool(1)
}

func (m *MockAvailabilityCache) MarkTaken(ctx context.Context, subdomain string, ttl time.Duration) {
	m.Called(subdomain, ttl)
}

func (m *MockAvailabilityCache) Forget(ctx context.Context, subdomain string) {
	m.Called(subdomain)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, candidate string, temporary bool) (*domain.SubdomainReservation, error) {
	args := m.Called(candidate, temporary)
	res, _ := args.Get(0).(*domain.SubdomainReservation)
	return res, args.Error(1)
}

func (m *MockReservationService) Confirm(ctx context.Context, reservationID string, domainID string) error {
	args := m.Called(reservationID, domainID)
	return args.Error(0)
}

func (m *MockReservationService) Release(ctx context.Context, reservationID string, subdomain string) {
	m.Called(reservationID, subdomain)
}

func (m *MockReservationService) IsAvailable(ctx context.Context, candidate string) (bool, error) {
	args := m.Called(candidate)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationService) GenerateAndReserve(ctx context.Context, base string) (*domain.SubdomainReservation, error) {
	args := m.Called(base)
	res, _ := args.Get(0).(*domain.SubdomainReservation)
	return res, args.Error(1)
}

func (m *MockReservationService) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationService) HealthCheck(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
