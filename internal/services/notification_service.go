package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/models"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
	Resolve(ctx context.Context, id, resolvedBy string) (*models.Notification, error)
	Stats(ctx context.Context) (*models.NotificationStats, error)
}

// NotificationService manages the admin alert feed derived from security
// incidents. Creation is best-effort; reading and state transitions are
// ordinary admin operations with real error returns.
type NotificationService struct {
	repo   NotificationRepository
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger,
	}
}

// Alert describes a notification to raise for the admin feed.
type Alert struct {
	Type      string
	Severity  string
	Title     string
	Message   string
	AccountID *uuid.UUID
	IPAddress string
	Metadata  models.NotificationMetadata
}

// Notify raises an admin notification. Failures are logged and swallowed so
// a broken feed never aborts the security operation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, alert Alert) {
	n := &models.Notification{
		Type:      alert.Type,
		Severity:  alert.Severity,
		Title:     alert.Title,
		Message:   alert.Message,
		AccountID: alert.AccountID,
		Metadata:  alert.Metadata,
	}
	if alert.IPAddress != "" {
		n.IPAddress = &alert.IPAddress
	}

	if _, err := s.repo.Create(ctx, n); err != nil {
		pkglogger.LogBestEffortFailure(ctx, s.logger, "admin notification", err,
			slog.String("type", alert.Type),
			slog.String("severity", alert.Severity),
		)
	}
}

// List returns notifications for the admin dashboard, newest first.
func (s *NotificationService) List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// MarkRead marks the notification as read. Safe to call repeatedly.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

// Resolve marks the notification as resolved by the given admin. Safe to
// call repeatedly; the first resolver wins.
func (s *NotificationService) Resolve(ctx context.Context, id string, resolvedBy uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.Resolve(ctx, id, resolvedBy.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve notification: %w", err)
	}
	return n, nil
}

// Stats aggregates feed counts for the admin dashboard.
func (s *NotificationService) Stats(ctx context.Context) (*models.NotificationStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute notification stats: %w", err)
	}
	return stats, nil
}
