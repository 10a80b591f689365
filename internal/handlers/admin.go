package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/repositories"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
)

// AdminSecurityInterface defines the recovery operations admins can perform
type AdminSecurityInterface interface {
	UnlockAccount(ctx context.Context, handle string, adminID uuid.UUID, ipAddress string) (*models.Account, error)
	UnblockIP(ctx context.Context, ipAddress string, adminID uuid.UUID, adminIP string) error
}

// AuditServiceInterface defines the audit trail read operations
type AuditServiceInterface interface {
	List(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error)
}

// AdminHandler handles admin security operations
type AdminHandler struct {
	security AdminSecurityInterface
	audit    AuditServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(security AdminSecurityInterface, audit AuditServiceInterface, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{
		security: security,
		audit:    audit,
		ipConfig: ipConfig,
	}
}

// AuditEventResponse represents an audit event in HTTP responses
type AuditEventResponse struct {
	ID          string    `json:"id"`
	AccountID   *string   `json:"account_id,omitempty"`
	Action      string    `json:"action"`
	TargetModel string    `json:"target_model,omitempty"`
	TargetID    *string   `json:"target_id,omitempty"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAuditEventResponse(e *models.AuditEvent) *AuditEventResponse {
	resp := &AuditEventResponse{
		ID:          e.ID.String(),
		Action:      e.Action,
		TargetModel: e.TargetModel,
		TargetID:    e.TargetID,
		Description: e.Description,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		CreatedAt:   e.CreatedAt,
	}
	if e.AccountID != nil {
		id := e.AccountID.String()
		resp.AccountID = &id
	}
	return resp
}

// adminID pulls the authenticated admin's UUID out of the request context.
func adminID(r *http.Request) (uuid.UUID, bool) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// UnlockAccount handles clearing an account's lockout state
// @Summary Unlock a locked account
// @Security BearerAuth
// @Param handle path string true "Account handle"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/accounts/{handle}/unlock [post]
func (h *AdminHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	handle := chi.URLParam(r, "handle")
	if handle == "" {
		pkghttp.WriteBadRequest(w, "Missing account handle")
		return
	}

	account, err := h.security.UnlockAccount(r.Context(), handle, admin, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toAccountResponse(account))
}

// UnblockIP handles clearing an address block
// @Summary Unblock a source address
// @Security BearerAuth
// @Param ip path string true "IP address"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/ips/{ip}/unblock [post]
func (h *AdminHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	ip := chi.URLParam(r, "ip")
	if net.ParseIP(ip) == nil {
		pkghttp.WriteBadRequest(w, "Invalid IP address")
		return
	}

	err := h.security.UnblockIP(r.Context(), ip, admin, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "No record for that address")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAuditEvents handles the audit trail view
// @Summary List audit events
// @Security BearerAuth
// @Param action query string false "Filter by action"
// @Param account_id query string false "Filter by account"
// @Produce json
// @Success 200 {array} AuditEventResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/audit-events [get]
func (h *AdminHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "" && !models.ValidAuditAction(action) {
		pkghttp.WriteBadRequest(w, "Unknown audit action")
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID != "" {
		if _, err := uuid.Parse(accountID); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid account ID")
			return
		}
	}

	filters := repositories.AuditEventFilters{
		Action:    action,
		AccountID: accountID,
	}
	limit, offset := parsePagination(r)

	events, err := h.audit.List(r.Context(), filters, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]*AuditEventResponse, len(events))
	for i, e := range events {
		resp[i] = toAuditEventResponse(e)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
