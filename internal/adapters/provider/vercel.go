// Package provider implements the hosting provider domain API client used
// for custom-domain registration and verification polling.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/infrastructure/metrics"
)

const defaultBaseURL = "https://api.vercel.com"

// requestTimeout is deliberately conservative: verification is polled, so a
// slow provider call should fail fast and be retried on the next tick.
const requestTimeout = 5 * time.Second

// VercelClient talks to the Vercel project domains API. The zero token
// configuration is valid and reported through Configured so callers can
// degrade to the HTTPS-probe fallback.
type VercelClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	projectID  string
	teamID     string
}

// NewVercelClient builds the provider client. teamID may be empty for
// personal-scope tokens.
func NewVercelClient(token, projectID, teamID string) *VercelClient {
	return &VercelClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
		projectID:  projectID,
		teamID:     teamID,
	}
}

// NewVercelClientWithBaseURL is used by tests to point the client at a stub.
func NewVercelClientWithBaseURL(token, projectID, teamID, baseURL string) *VercelClient {
	c := NewVercelClient(token, projectID, teamID)
	c.baseURL = baseURL
	return c
}

func (c *VercelClient) Configured() bool {
	return c.token != "" && c.projectID != ""
}

type vercelDomain struct {
	Name     string `json:"name"`
	ApexName string `json:"apexName"`
	Verified bool   `json:"verified"`
}

type vercelErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type vercelConfig struct {
	Misconfigured bool `json:"misconfigured"`
}

// AddDomain registers name with the project. A 409 or the provider's
// domain_already_in_use code maps to domain.ErrDomainConflict via
// ProviderError so callers can distinguish "taken elsewhere" from "retry".
func (c *VercelClient) AddDomain(ctx context.Context, name string) (*ports.ProviderDomain, error) {
	body, errMarshal := json.Marshal(map[string]string{"name": name})
	if errMarshal != nil {
		return nil, errMarshal
	}

	var out vercelDomain
	if err := c.do(ctx, http.MethodPost, c.projectPath("/domains"), bytes.NewReader(body), "add_domain", &out); err != nil {
		return nil, err
	}
	return &ports.ProviderDomain{
		ID:       out.Name, // Vercel keys project domains by name
		Name:     out.Name,
		ApexName: out.ApexName,
		Verified: out.Verified,
	}, nil
}

// GetDomain reports the verified flag plus SSL readiness. Vercel splits the
// two across the domain object and its config endpoint; a misconfigured
// config means the certificate is not serving yet.
func (c *VercelClient) GetDomain(ctx context.Context, name string) (*ports.ProviderDomain, error) {
	var out vercelDomain
	if err := c.do(ctx, http.MethodGet, c.projectPath("/domains/"+url.PathEscape(name)), nil, "get_domain", &out); err != nil {
		return nil, err
	}

	pd := &ports.ProviderDomain{
		ID:       out.Name,
		Name:     out.Name,
		ApexName: out.ApexName,
		Verified: out.Verified,
	}
	if !pd.Verified {
		return pd, nil
	}

	var cfg vercelConfig
	if err := c.do(ctx, http.MethodGet, "/v6/domains/"+url.PathEscape(name)+"/config", nil, "get_config", &cfg); err != nil {
		// Verified but config unreadable: report SSL as not ready rather
		// than failing the whole poll.
		return pd, nil
	}
	pd.SSL = !cfg.Misconfigured
	return pd, nil
}

// RemoveDomain deletes the provider-side record. A 404 counts as success
// since the record may already be gone.
func (c *VercelClient) RemoveDomain(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, c.projectPath("/domains/"+url.PathEscape(name)), nil, "remove_domain", nil)
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *VercelClient) projectPath(suffix string) string {
	return "/v10/projects/" + url.PathEscape(c.projectID) + suffix
}

func (c *VercelClient) do(ctx context.Context, method, path string, body *bytes.Reader, operation string, out any) error {
	u := c.baseURL + path
	if c.teamID != "" {
		u += "?teamId=" + url.QueryEscape(c.teamID)
	}

	var req *http.Request
	var errReq error
	if body != nil {
		req, errReq = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		req, errReq = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if errReq != nil {
		return errReq
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, errDo := c.httpClient.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if errDo != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnreachable, errDo)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		var eb vercelErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		code := eb.Error.Code
		if code == "" && resp.StatusCode == http.StatusConflict {
			code = "domain_already_in_use"
		}
		return &domain.ProviderError{
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    eb.Error.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}
	return nil
}
