package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIHandler exposes the reservation, domain and publishing services over
// HTTP for the editor UI and dashboard.
type APIHandler struct {
	reservations ports.ReservationService
	domains      ports.DomainService
	publishing   ports.PublishingService
	businesses   ports.BusinessRepository
	keys         ports.APIKeyRepository
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(reservations ports.ReservationService, domains ports.DomainService, publishing ports.PublishingService, businesses ports.BusinessRepository, keys ports.APIKeyRepository) *APIHandler {
	return &APIHandler{
		reservations: reservations,
		domains:      domains,
		publishing:   publishing,
		businesses:   businesses,
		keys:         keys,
	}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public Routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)

	// Middleware
	auth := AuthMiddleware(h.keys)
	// Availability is hit on every keystroke of the name picker.
	limiter := NewRateLimiter(10, 20)

	// Protected Routes (scoped by owner_id from the auth key)
	mux.Handle("GET /subdomains/availability", auth(limiter.Middleware(http.HandlerFunc(h.CheckAvailability))))
	mux.Handle("POST /businesses", auth(http.HandlerFunc(h.CreateBusiness)))
	mux.Handle("POST /businesses/{id}/site", auth(http.HandlerFunc(h.ProvisionSite)))
	mux.Handle("GET /businesses/{id}/domain", auth(http.HandlerFunc(h.GetDomain)))
	mux.Handle("PUT /businesses/{id}/draft", auth(http.HandlerFunc(h.SaveDraft)))
	mux.Handle("PATCH /businesses/{id}/draft", auth(http.HandlerFunc(h.UpdateDraft)))
	mux.Handle("POST /businesses/{id}/draft/discard", auth(http.HandlerFunc(h.DiscardDraft)))
	mux.Handle("GET /businesses/{id}/can-publish", auth(http.HandlerFunc(h.CanPublish)))
	mux.Handle("POST /businesses/{id}/publish", auth(http.HandlerFunc(h.Publish)))
	mux.Handle("POST /businesses/{id}/unpublish", auth(http.HandlerFunc(h.Unpublish)))
	mux.Handle("POST /domains/{id}/custom", auth(http.HandlerFunc(h.AttachCustomDomain)))
	mux.Handle("GET /domains/{id}/instructions", auth(http.HandlerFunc(h.Instructions)))
	mux.Handle("POST /domains/{id}/verify", auth(http.HandlerFunc(h.Verify)))
	mux.Handle("DELETE /domains/{id}/custom", auth(http.HandlerFunc(h.DetachCustomDomain)))
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HealthCheck handles health check requests.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)

	if err := h.reservations.HealthCheck(r.Context()); err != nil {
		status = "DEGRADED"
		details["store"] = err.Error()
	} else {
		details["store"] = "OK"
	}

	resp := map[string]interface{}{
		"status":  status,
		"details": details,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "DEGRADED" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode health check response: %v", err)
	}
}

// CheckAvailability answers the name picker's "is this subdomain free"
// query, honoring the same lazy-expiry rule as reservation itself.
func (h *APIHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", http.StatusBadRequest)
		return
	}

	available, err := h.reservations.IsAvailable(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subdomain": domain.NormalizeSubdomain(name),
		"available": available,
	})
}

func (h *APIHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var content domain.SiteContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if content.Name == "" {
		http.Error(w, "business name is required", http.StatusBadRequest)
		return
	}

	ownerID, ok := r.Context().Value(CtxOwnerID).(string)
	if !ok || ownerID == "" {
		http.Error(w, "Unauthorized: missing owner context", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	b := &domain.Business{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Draft:     content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.businesses.CreateBusiness(r.Context(), b); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ProvisionSite runs the site-creation flow: claim a subdomain derived from
// the requested name and bind it to the business.
func (h *APIHandler) ProvisionSite(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	var req struct {
		Subdomain string `json:"subdomain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Subdomain == "" {
		http.Error(w, "subdomain is required", http.StatusBadRequest)
		return
	}

	d, err := h.domains.ProvisionSite(r.Context(), businessID, req.Subdomain)
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *APIHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	d, err := h.domains.GetForBusiness(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *APIHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	var draft domain.SiteContent
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.publishing.SaveDraft(r.Context(), businessID, draft); err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	var patch domain.ContentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.publishing.UpdateDraft(r.Context(), businessID, patch)
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *APIHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	b, err := h.publishing.DiscardDraft(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *APIHandler) CanPublish(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	eligibility, err := h.publishing.CanPublish(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusOK, eligibility)
}

func (h *APIHandler) Publish(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	b, err := h.publishing.Publish(r.Context(), businessID)
	if errors.Is(err, domain.ErrVerificationRequired) {
		// Fail closed: route the user to the verification flow instead of
		// publishing to an unverifiable hostname.
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":                 "domain verification required before publishing",
			"requires_verification": true,
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *APIHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("id")
	if !h.authorizeBusiness(w, r, businessID) {
		return
	}

	if err := h.publishing.Unpublish(r.Context(), businessID); err != nil {
		h.writeServiceError(w, r, err, businessID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AttachCustomDomain(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("id")
	if !h.authorizeDomain(w, r, domainID) {
		return
	}

	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.domains.AttachCustomDomain(r.Context(), domainID, req.Domain)
	if errors.Is(err, domain.ErrDomainConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "this domain is already in use by another project",
			"code":  "domain_already_in_use",
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, domainID)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *APIHandler) Instructions(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("id")
	if !h.authorizeDomain(w, r, domainID) {
		return
	}

	instructions, err := h.domains.Instructions(r.Context(), domainID)
	if err != nil {
		h.writeServiceError(w, r, err, domainID)
		return
	}
	writeJSON(w, http.StatusOK, instructions)
}

// Verify is the user's "check now" action: one poll of the verification
// state machine.
func (h *APIHandler) Verify(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("id")
	if !h.authorizeDomain(w, r, domainID) {
		return
	}

	status, message, err := h.domains.CheckStatus(r.Context(), domainID)
	if errors.Is(err, domain.ErrProviderUnreachable) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status":  string(domain.VerifyPending),
			"message": "hosting provider unreachable; try again shortly",
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, domainID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  string(status),
		"message": message,
	})
}

func (h *APIHandler) DetachCustomDomain(w http.ResponseWriter, r *http.Request) {
	domainID := r.PathValue("id")
	if !h.authorizeDomain(w, r, domainID) {
		return
	}

	if err := h.domains.DetachCustomDomain(r.Context(), domainID); err != nil {
		h.writeServiceError(w, r, err, domainID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeBusiness verifies the key's owner may act on the business. Admin
// keys pass unconditionally.
func (h *APIHandler) authorizeBusiness(w http.ResponseWriter, r *http.Request, businessID string) bool {
	ownerID, ok := r.Context().Value(CtxOwnerID).(string)
	if !ok || ownerID == "" {
		http.Error(w, "Unauthorized: missing owner context", http.StatusUnauthorized)
		return false
	}
	if role, ok := r.Context().Value(CtxRole).(domain.Role); ok && role == domain.RoleAdmin {
		return true
	}

	b, err := h.businesses.GetBusiness(r.Context(), businessID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if b == nil {
		http.Error(w, "business not found", http.StatusNotFound)
		return false
	}
	if b.OwnerID != ownerID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (h *APIHandler) authorizeDomain(w http.ResponseWriter, r *http.Request, domainID string) bool {
	d, err := h.domains.GetDomainByID(r.Context(), domainID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "domain not found", http.StatusNotFound)
			return false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	return h.authorizeBusiness(w, r, d.BusinessID)
}

func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, resourceID string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSubdomainUnavailable):
		http.Error(w, "subdomain unavailable", http.StatusConflict)
	default:
		log.Printf("%s %s: resource %s: %v", r.Method, r.URL.Path, resourceID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
