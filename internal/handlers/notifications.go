package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/models"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
)

// NotificationServiceInterface defines the notification feed operations
type NotificationServiceInterface interface {
	List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error)
	Get(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
	Resolve(ctx context.Context, id string, resolvedBy uuid.UUID) (*models.Notification, error)
	Stats(ctx context.Context) (*models.NotificationStats, error)
}

// NotificationHandler serves the admin notification feed
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// NotificationResponse represents a notification in HTTP responses
type NotificationResponse struct {
	ID         string                      `json:"id"`
	Type       string                      `json:"type"`
	Severity   string                      `json:"severity"`
	Title      string                      `json:"title"`
	Message    string                      `json:"message"`
	AccountID  *string                     `json:"account_id,omitempty"`
	IPAddress  *string                     `json:"ip_address,omitempty"`
	Metadata   models.NotificationMetadata `json:"metadata"`
	IsRead     bool                        `json:"is_read"`
	IsResolved bool                        `json:"is_resolved"`
	ReadAt     *time.Time                  `json:"read_at,omitempty"`
	ResolvedAt *time.Time                  `json:"resolved_at,omitempty"`
	ResolvedBy *string                     `json:"resolved_by,omitempty"`
	CreatedAt  time.Time                   `json:"created_at"`
}

func toNotificationResponse(n *models.Notification) *NotificationResponse {
	resp := &NotificationResponse{
		ID:         n.ID.String(),
		Type:       n.Type,
		Severity:   n.Severity,
		Title:      n.Title,
		Message:    n.Message,
		IPAddress:  n.IPAddress,
		Metadata:   n.Metadata,
		IsRead:     n.IsRead,
		IsResolved: n.IsResolved,
		ReadAt:     n.ReadAt,
		ResolvedAt: n.ResolvedAt,
		CreatedAt:  n.CreatedAt,
	}
	if n.AccountID != nil {
		id := n.AccountID.String()
		resp.AccountID = &id
	}
	if n.ResolvedBy != nil {
		id := n.ResolvedBy.String()
		resp.ResolvedBy = &id
	}
	return resp
}

func parseBoolParam(value string) *bool {
	switch value {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// List handles listing notifications with optional filters
// @Summary List admin notifications
// @Security BearerAuth
// @Param type query string false "Notification type"
// @Param severity query string false "Severity"
// @Param is_read query bool false "Read state"
// @Param is_resolved query bool false "Resolved state"
// @Produce json
// @Success 200 {array} NotificationResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := models.NotificationFilters{
		Type:       r.URL.Query().Get("type"),
		Severity:   r.URL.Query().Get("severity"),
		IsRead:     parseBoolParam(r.URL.Query().Get("is_read")),
		IsResolved: parseBoolParam(r.URL.Query().Get("is_resolved")),
	}
	limit, offset := parsePagination(r)

	notifications, err := h.service.List(r.Context(), filters, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = toNotificationResponse(n)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// MarkRead handles marking a notification read
// @Summary Mark a notification read
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Produce json
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid notification ID")
		return
	}

	n, err := h.service.MarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Notification not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toNotificationResponse(n))
}

// Resolve handles resolving a notification
// @Summary Resolve a notification
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Produce json
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notifications/{id}/resolve [post]
func (h *NotificationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}
	adminID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid notification ID")
		return
	}

	n, err := h.service.Resolve(r.Context(), id, adminID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Notification not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toNotificationResponse(n))
}

// Stats handles the notification dashboard aggregates
// @Summary Notification feed statistics
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.NotificationStats
// @Failure 401 {object} ErrorResponse
// @Router /admin/notifications/stats [get]
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stats)
}
