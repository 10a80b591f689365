package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/handlers"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification() *models.Notification {
	return &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotifyFailedLogin,
		Severity:  models.SeverityWarning,
		Title:     "Failed login attempts",
		Message:   "3 failed login attempts for jdoe",
		Metadata:  models.NotificationMetadata{"attempts": float64(3)},
		CreatedAt: time.Now(),
	}
}

func TestListNotificationsHandler_PassesFilters(t *testing.T) {
	var gotFilters models.NotificationFilters
	mockService := &handlers.MockNotificationService{
		ListFunc: func(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error) {
			gotFilters = filters
			return []*models.Notification{testNotification()}, nil
		},
	}

	handler := handlers.NewNotificationHandler(mockService)
	req := handlers.NewTestRequest(t, "GET", "/admin/notifications?type=failed_login&severity=warning&is_read=false", nil)
	req = handlers.WithAdminContext(req)

	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp []*handlers.NotificationResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, models.NotifyFailedLogin, resp[0].Type)

	assert.Equal(t, models.NotifyFailedLogin, gotFilters.Type)
	assert.Equal(t, models.SeverityWarning, gotFilters.Severity)
	require.NotNil(t, gotFilters.IsRead)
	assert.False(t, *gotFilters.IsRead)
	assert.Nil(t, gotFilters.IsResolved)
}

func TestMarkReadHandler_Success(t *testing.T) {
	n := testNotification()
	n.IsRead = true
	now := time.Now()
	n.ReadAt = &now

	mockService := &handlers.MockNotificationService{
		MarkReadFunc: func(ctx context.Context, id string) (*models.Notification, error) {
			assert.Equal(t, n.ID.String(), id)
			return n, nil
		},
	}

	handler := handlers.NewNotificationHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/admin/notifications/"+n.ID.String()+"/read", nil)
	req = handlers.WithAdminContext(req)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": n.ID.String()})

	w := httptest.NewRecorder()
	handler.MarkRead(w, req)

	var resp handlers.NotificationResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp.IsRead)
	assert.NotNil(t, resp.ReadAt)
}

func TestMarkReadHandler_InvalidID(t *testing.T) {
	handler := handlers.NewNotificationHandler(&handlers.MockNotificationService{})
	req := handlers.NewTestRequest(t, "POST", "/admin/notifications/not-a-uuid/read", nil)
	req = handlers.WithAdminContext(req)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "not-a-uuid"})

	w := httptest.NewRecorder()
	handler.MarkRead(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestMarkReadHandler_NotFound(t *testing.T) {
	mockService := &handlers.MockNotificationService{
		MarkReadFunc: func(ctx context.Context, id string) (*models.Notification, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := handlers.NewNotificationHandler(mockService)
	id := uuid.New().String()
	req := handlers.NewTestRequest(t, "POST", "/admin/notifications/"+id+"/read", nil)
	req = handlers.WithAdminContext(req)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": id})

	w := httptest.NewRecorder()
	handler.MarkRead(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestResolveHandler_RecordsResolver(t *testing.T) {
	n := testNotification()
	var gotResolver uuid.UUID
	mockService := &handlers.MockNotificationService{
		ResolveFunc: func(ctx context.Context, id string, resolvedBy uuid.UUID) (*models.Notification, error) {
			gotResolver = resolvedBy
			n.IsResolved = true
			n.ResolvedBy = &resolvedBy
			return n, nil
		},
	}

	handler := handlers.NewNotificationHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/admin/notifications/"+n.ID.String()+"/resolve", nil)
	req = handlers.WithAdminContext(req)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": n.ID.String()})

	w := httptest.NewRecorder()
	handler.Resolve(w, req)

	var resp handlers.NotificationResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp.IsResolved)
	require.NotNil(t, resp.ResolvedBy)
	assert.Equal(t, gotResolver.String(), *resp.ResolvedBy)
}

func TestResolveHandler_Unauthenticated(t *testing.T) {
	handler := handlers.NewNotificationHandler(&handlers.MockNotificationService{})
	id := uuid.New().String()
	req := handlers.NewTestRequest(t, "POST", "/admin/notifications/"+id+"/resolve", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": id})

	w := httptest.NewRecorder()
	handler.Resolve(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestNotificationStatsHandler(t *testing.T) {
	mockService := &handlers.MockNotificationService{
		StatsFunc: func(ctx context.Context) (*models.NotificationStats, error) {
			return &models.NotificationStats{
				Total:      10,
				Unread:     4,
				Pending:    3,
				Resolved:   3,
				BySeverity: map[string]int64{models.SeverityCritical: 2, models.SeverityWarning: 8},
				ByType:     map[string]int64{models.NotifyFailedLogin: 8, models.NotifyUserLocked: 2},
			}, nil
		},
	}

	handler := handlers.NewNotificationHandler(mockService)
	req := handlers.NewTestRequest(t, "GET", "/admin/notifications/stats", nil)
	req = handlers.WithAdminContext(req)

	w := httptest.NewRecorder()
	handler.Stats(w, req)

	var resp models.NotificationStats
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(10), resp.Total)
	assert.Equal(t, int64(4), resp.Unread)
	assert.Equal(t, int64(2), resp.BySeverity[models.SeverityCritical])
}
