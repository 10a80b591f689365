package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rmfernandez/acadguard/internal/models"
)

type SessionRepository interface {
	Upsert(ctx context.Context, session *models.ActiveSession) error
	FindConcurrentIPs(ctx context.Context, accountID, excludingIP string, since time.Time) ([]string, error)
	DeleteByKey(ctx context.Context, sessionKey string) error
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// SessionService maintains the active-session registry. The registry exists
// for simultaneous-access detection only; it grants and revokes nothing.
type SessionService struct {
	repo   SessionRepository
	window time.Duration
}

// NewSessionService creates a new SessionService. window bounds how far back
// concurrent-access detection looks.
func NewSessionService(repo SessionRepository, window time.Duration) *SessionService {
	return &SessionService{
		repo:   repo,
		window: window,
	}
}

// Register records a fresh login session, refreshing the row if the session
// key is already known.
func (s *SessionService) Register(ctx context.Context, accountID, sessionKey, ipAddress, userAgent string) error {
	session := &models.ActiveSession{
		AccountID:  accountID,
		SessionKey: sessionKey,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	}

	if err := s.repo.Upsert(ctx, session); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	return nil
}

// ConcurrentIPs returns other source addresses with activity for the account
// inside the detection window, excluding the current address.
func (s *SessionService) ConcurrentIPs(ctx context.Context, accountID, currentIP string) ([]string, error) {
	since := time.Now().Add(-s.window)

	ips, err := s.repo.FindConcurrentIPs(ctx, accountID, currentIP, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check concurrent access: %w", err)
	}

	return ips, nil
}

// End removes the session with the given key. Unknown keys are not an error.
func (s *SessionService) End(ctx context.Context, sessionKey string) error {
	if err := s.repo.DeleteByKey(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// PurgeStale removes sessions idle longer than retention and returns how
// many were removed.
func (s *SessionService) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := s.repo.DeleteStale(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale sessions: %w", err)
	}
	return removed, nil
}
