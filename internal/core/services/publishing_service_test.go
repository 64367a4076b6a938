package services

import (
	"context"
	"errors"
	"testing"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/testutil"
	"github.com/stretchr/testify/mock"
)

func strPtr(s string) *string { return &s }

func TestUpdateDraft(t *testing.T) {
	b := &domain.Business{
		ID: "biz-1",
		Draft: domain.SiteContent{
			Name:  "Joe's Diner",
			Phone: "555-0100",
			Hours: map[string]string{"mon": "9-5"},
		},
	}

	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(b, nil).Once()
	businesses.On("SaveDraft", "biz-1", mock.Anything).Return(nil).Once()

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	patch := domain.ContentPatch{
		Phone: strPtr("555-0199"),
		Hours: map[string]string{"mon": "8-6", "tue": "9-5"},
	}
	updated, err := svc.UpdateDraft(context.Background(), "biz-1", patch)
	if err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}
	if updated.Draft.Name != "Joe's Diner" {
		t.Errorf("untouched field must survive the patch, got %s", updated.Draft.Name)
	}
	if updated.Draft.Phone != "555-0199" {
		t.Errorf("expected patched phone, got %s", updated.Draft.Phone)
	}
	if updated.Draft.Hours["mon"] != "8-6" || updated.Draft.Hours["tue"] != "9-5" {
		t.Errorf("expected merged hours, got %v", updated.Draft.Hours)
	}
	businesses.AssertExpectations(t)
}

func TestUpdateDraft_EmptyPatchIsNoop(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1"}, nil).Once()

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	if _, err := svc.UpdateDraft(context.Background(), "biz-1", domain.ContentPatch{}); err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}
	businesses.AssertNotCalled(t, "SaveDraft", mock.Anything, mock.Anything)
}

func TestPublish(t *testing.T) {
	b := &domain.Business{
		ID:    "biz-1",
		Draft: domain.SiteContent{Name: "Joe's Diner", Description: "burgers"},
	}

	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(b, nil)
	businesses.On("Publish", "biz-1", mock.Anything).Return(nil).Once()
	domains := &testutil.MockDomainRepo{}
	domains.On("GetDomainByBusiness", "biz-1").Return(&domain.Domain{
		ID: "d-1", BusinessID: "biz-1", Subdomain: "joes-diner", IsVerified: true,
	}, nil).Once()

	svc := NewPublishingService(businesses, domains, testLogger())

	published, err := svc.Publish(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !published.IsPublished || published.PublishedAt == nil {
		t.Error("expected the business to be marked published")
	}
	if published.Published == nil || published.Published.Name != "Joe's Diner" {
		t.Errorf("expected the draft promoted to published, got %+v", published.Published)
	}
	businesses.AssertExpectations(t)
}

func TestPublish_BlockedUntilVerified(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1"}, nil)
	domains := &testutil.MockDomainRepo{}
	custom := "www.example.com"
	domains.On("GetDomainByBusiness", "biz-1").Return(&domain.Domain{
		ID: "d-1", BusinessID: "biz-1", Subdomain: "acme",
		CustomDomain: &custom, IsVerified: false,
	}, nil).Once()

	svc := NewPublishingService(businesses, domains, testLogger())

	_, err := svc.Publish(context.Background(), "biz-1")
	if !errors.Is(err, domain.ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}
	businesses.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestPublish_BlockedWithoutDomain(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1"}, nil)
	domains := &testutil.MockDomainRepo{}
	domains.On("GetDomainByBusiness", "biz-1").Return(nil, nil).Once()

	svc := NewPublishingService(businesses, domains, testLogger())

	_, err := svc.Publish(context.Background(), "biz-1")
	if !errors.Is(err, domain.ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}
}

func TestCanPublish(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1"}, nil)

	t.Run("no domain", func(t *testing.T) {
		domains := &testutil.MockDomainRepo{}
		domains.On("GetDomainByBusiness", "biz-1").Return(nil, nil).Once()
		svc := NewPublishingService(businesses, domains, testLogger())

		e, err := svc.CanPublish(context.Background(), "biz-1")
		if err != nil {
			t.Fatalf("CanPublish failed: %v", err)
		}
		if e.CanPublish || !e.RequiresVerification {
			t.Errorf("expected blocked eligibility, got %+v", e)
		}
	})

	t.Run("verified domain", func(t *testing.T) {
		domains := &testutil.MockDomainRepo{}
		domains.On("GetDomainByBusiness", "biz-1").Return(&domain.Domain{
			ID: "d-1", Subdomain: "acme", IsVerified: true,
		}, nil).Once()
		svc := NewPublishingService(businesses, domains, testLogger())

		e, err := svc.CanPublish(context.Background(), "biz-1")
		if err != nil {
			t.Fatalf("CanPublish failed: %v", err)
		}
		if !e.CanPublish {
			t.Errorf("expected publishable, got %+v", e)
		}
	})
}

func TestPublishedSnapshotIsolation(t *testing.T) {
	// Draft edits after publish must not leak into the published snapshot.
	b := &domain.Business{
		ID:    "biz-1",
		Draft: domain.SiteContent{Name: "v1", Hours: map[string]string{"mon": "9-5"}},
	}

	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(b, nil)
	businesses.On("Publish", "biz-1", mock.Anything).Return(nil).Once()
	businesses.On("SaveDraft", "biz-1", mock.Anything).Return(nil).Once()
	domains := &testutil.MockDomainRepo{}
	domains.On("GetDomainByBusiness", "biz-1").Return(&domain.Domain{ID: "d-1", IsVerified: true}, nil).Once()

	svc := NewPublishingService(businesses, domains, testLogger())

	published, err := svc.Publish(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	patch := domain.ContentPatch{Name: strPtr("v2"), Hours: map[string]string{"mon": "8-8"}}
	if _, err := svc.UpdateDraft(context.Background(), "biz-1", patch); err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}

	if published.Published.Name != "v1" || published.Published.Hours["mon"] != "9-5" {
		t.Errorf("published snapshot mutated by draft edit: %+v", published.Published)
	}
	if b.Draft.Name != "v2" {
		t.Errorf("expected draft updated, got %s", b.Draft.Name)
	}
}

func TestUnpublish(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1", IsPublished: true}, nil).Once()
	businesses.On("SetPublished", "biz-1", false).Return(nil).Once()

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	if err := svc.Unpublish(context.Background(), "biz-1"); err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	businesses.AssertExpectations(t)
}

func TestDiscardDraft(t *testing.T) {
	published := domain.SiteContent{Name: "live", Hours: map[string]string{"mon": "9-5"}}
	b := &domain.Business{
		ID:        "biz-1",
		Draft:     domain.SiteContent{Name: "work in progress"},
		Published: &published,
	}

	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(b, nil).Once()
	businesses.On("SaveDraft", "biz-1", mock.Anything).Return(nil).Once()

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	reverted, err := svc.DiscardDraft(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("DiscardDraft failed: %v", err)
	}
	if reverted.Draft.Name != "live" {
		t.Errorf("expected draft reset to published snapshot, got %s", reverted.Draft.Name)
	}
	businesses.AssertExpectations(t)
}

func TestDiscardDraft_NeverPublished(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "biz-1").Return(&domain.Business{ID: "biz-1"}, nil).Once()

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	if _, err := svc.DiscardDraft(context.Background(), "biz-1"); err == nil {
		t.Fatal("expected an error when nothing has been published")
	}
	businesses.AssertNotCalled(t, "SaveDraft", mock.Anything, mock.Anything)
}

func TestPublishingNotFound(t *testing.T) {
	businesses := &testutil.MockBusinessRepo{}
	businesses.On("GetBusiness", "missing").Return(nil, nil)

	svc := NewPublishingService(businesses, &testutil.MockDomainRepo{}, testLogger())

	if _, err := svc.Publish(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
