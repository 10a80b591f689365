package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/repositories"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

type AuditEventRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error)
	List(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error)
}

// SecurityEvent describes one security-relevant occurrence to record.
type SecurityEvent struct {
	AccountID   *uuid.UUID
	Handle      string
	Action      string
	TargetModel string
	TargetID    *string
	Description string
	IPAddress   string
	UserAgent   string
}

// AuditService handles audit logging with dual-write pattern (slog + database).
// Persistence is best-effort: a failed database write is logged operationally
// and swallowed, never surfaced to the caller.
type AuditService struct {
	repo        AuditEventRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditEventRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// failureActions marks actions logged at warning level in the operational
// stream. Everything else is routine.
var failureActions = map[string]bool{
	models.ActionLoginFailed:         true,
	models.ActionLockedAttempt:       true,
	models.ActionIPBlockedAttempt:    true,
	models.ActionUserLock:            true,
	models.ActionIPBlock:             true,
	models.ActionUnauthorizedAttempt: true,
	models.ActionSystemError:         true,
	models.ActionDBError:             true,
}

// Record writes the event to the operational log and appends it to the
// audit table. It never returns an error.
func (s *AuditService) Record(ctx context.Context, event SecurityEvent) {
	opEvent := pkglogger.SecurityEvent{
		Action:      event.Action,
		Handle:      event.Handle,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		Success:     !failureActions[event.Action],
		Description: event.Description,
	}
	if event.AccountID != nil {
		opEvent.AccountID = event.AccountID.String()
	}

	// Dual-write: immediate slog output, then the durable copy
	s.auditLogger.LogSecurityEvent(opEvent)

	record := &models.AuditEvent{
		AccountID:   event.AccountID,
		Action:      event.Action,
		TargetModel: event.TargetModel,
		TargetID:    event.TargetID,
		Description: event.Description,
	}
	if event.IPAddress != "" {
		record.IPAddress = &event.IPAddress
	}
	if event.UserAgent != "" {
		record.UserAgent = &event.UserAgent
	}

	if _, err := s.repo.Create(ctx, record); err != nil {
		// Non-critical: don't fail the caller's operation if persistence fails
		pkglogger.LogBestEffortFailure(ctx, s.logger, "audit persistence", err,
			slog.String("action", event.Action),
		)
	}
}

// List returns audit events for the admin trail view, newest first.
func (s *AuditService) List(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	return events, nil
}
