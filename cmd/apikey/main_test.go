package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/testutil"
	"github.com/stretchr/testify/mock"
)

func TestGenerateKey(t *testing.T) {
	mockRepo := new(testutil.MockAPIKeyRepo)
	mockRepo.On("CreateAPIKey", mock.AnythingOfType("*domain.APIKey")).Return(nil)

	out := &bytes.Buffer{}
	if err := generateKey(mockRepo, "owner-1", "owner", "ci-key", 30, out); err != nil {
		t.Fatalf("generateKey failed: %v", err)
	}

	if !strings.Contains(out.String(), "API key created") {
		t.Errorf("expected success message, got %q", out.String())
	}
	if !strings.Contains(out.String(), "lsk_") {
		t.Errorf("expected a prefixed raw key in output, got %q", out.String())
	}

	created := mockRepo.Calls[0].Arguments.Get(0).(*domain.APIKey)
	if created.KeyHash == "" || strings.HasPrefix(created.KeyHash, "lsk_") {
		t.Errorf("stored key must be the hash, not the raw key: %q", created.KeyHash)
	}
	if !strings.HasPrefix(created.KeyPrefix, "lsk_") {
		t.Errorf("expected the display prefix to keep the lsk_ marker, got %q", created.KeyPrefix)
	}
	mockRepo.AssertExpectations(t)
}

func TestListKeys(t *testing.T) {
	mockRepo := new(testutil.MockAPIKeyRepo)
	keys := []domain.APIKey{
		{ID: "id1", Name: "ci-key", Role: domain.RoleOwner, KeyPrefix: "lsk_abcd", Active: true},
		{ID: "id2", Name: "old-key", Role: domain.RoleOwner, KeyPrefix: "lsk_efgh", Active: false},
	}
	mockRepo.On("ListAPIKeys", "owner-1").Return(keys, nil)

	out := &bytes.Buffer{}
	if err := listKeys(mockRepo, "owner-1", out); err != nil {
		t.Fatalf("listKeys failed: %v", err)
	}

	if !strings.Contains(out.String(), "id1") || !strings.Contains(out.String(), "revoked") {
		t.Errorf("expected key ids and status in output, got %q", out.String())
	}
	mockRepo.AssertExpectations(t)
}

func TestRevokeKey(t *testing.T) {
	mockRepo := new(testutil.MockAPIKeyRepo)
	mockRepo.On("RevokeAPIKey", "id1").Return(nil)

	out := &bytes.Buffer{}
	if err := revokeKey(mockRepo, "id1", out); err != nil {
		t.Fatalf("revokeKey failed: %v", err)
	}

	if !strings.Contains(out.String(), "revoked") {
		t.Errorf("expected confirmation in output, got %q", out.String())
	}
	mockRepo.AssertExpectations(t)
}
