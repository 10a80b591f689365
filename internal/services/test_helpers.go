package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/repositories"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

// MockAccountRepository implements AccountRepository and CredentialRepository
// for testing
type MockAccountRepository struct {
	GetByHandleFunc         func(ctx context.Context, handle string) (*models.Account, error)
	GetByIDFunc             func(ctx context.Context, id string) (*models.Account, error)
	RecordFailedAttemptFunc func(ctx context.Context, handle string, threshold int, lockFor time.Duration) (*models.LockTransition, error)
	ResetLockStateFunc      func(ctx context.Context, id string) error
	UnlockByHandleFunc      func(ctx context.Context, handle string) (*models.Account, error)
	UpdateCredentialFunc    func(ctx context.Context, id, newHash string) error
}

func (m *MockAccountRepository) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	if m.GetByHandleFunc != nil {
		return m.GetByHandleFunc(ctx, handle)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) RecordFailedAttempt(ctx context.Context, handle string, threshold int, lockFor time.Duration) (*models.LockTransition, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, handle, threshold, lockFor)
	}
	return &models.LockTransition{Attempts: 1}, nil
}

func (m *MockAccountRepository) ResetLockState(ctx context.Context, id string) error {
	if m.ResetLockStateFunc != nil {
		return m.ResetLockStateFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) UnlockByHandle(ctx context.Context, handle string) (*models.Account, error) {
	if m.UnlockByHandleFunc != nil {
		return m.UnlockByHandleFunc(ctx, handle)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) UpdateCredential(ctx context.Context, id, newHash string) error {
	if m.UpdateCredentialFunc != nil {
		return m.UpdateCredentialFunc(ctx, id, newHash)
	}
	return nil
}

// MockIPAttemptRepository implements IPAttemptRepository for testing
type MockIPAttemptRepository struct {
	GetFunc                 func(ctx context.Context, ip string) (*models.IPRecord, error)
	RecordFailedAttemptFunc func(ctx context.Context, ip string, threshold int, blockFor time.Duration) (*models.LockTransition, error)
	UnblockFunc             func(ctx context.Context, ip string) error
}

func (m *MockIPAttemptRepository) Get(ctx context.Context, ip string) (*models.IPRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ip)
	}
	return nil, models.ErrNotFound
}

func (m *MockIPAttemptRepository) RecordFailedAttempt(ctx context.Context, ip string, threshold int, blockFor time.Duration) (*models.LockTransition, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, ip, threshold, blockFor)
	}
	return &models.LockTransition{Attempts: 1}, nil
}

func (m *MockIPAttemptRepository) Unblock(ctx context.Context, ip string) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, ip)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	UpsertFunc            func(ctx context.Context, session *models.ActiveSession) error
	FindConcurrentIPsFunc func(ctx context.Context, accountID, excludingIP string, since time.Time) ([]string, error)
	DeleteByKeyFunc       func(ctx context.Context, sessionKey string) error
	DeleteStaleFunc       func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockSessionRepository) Upsert(ctx context.Context, session *models.ActiveSession) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) FindConcurrentIPs(ctx context.Context, accountID, excludingIP string, since time.Time) ([]string, error) {
	if m.FindConcurrentIPsFunc != nil {
		return m.FindConcurrentIPsFunc(ctx, accountID, excludingIP, since)
	}
	return nil, nil
}

func (m *MockSessionRepository) DeleteByKey(ctx context.Context, sessionKey string) error {
	if m.DeleteByKeyFunc != nil {
		return m.DeleteByKeyFunc(ctx, sessionKey)
	}
	return nil
}

func (m *MockSessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	if m.DeleteStaleFunc != nil {
		return m.DeleteStaleFunc(ctx, before)
	}
	return 0, nil
}

// MockAuditEventRepository implements AuditEventRepository for testing and
// captures the events it was asked to persist.
type MockAuditEventRepository struct {
	CreateFunc    func(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error)
	ListFunc      func(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error)
	CreatedEvents []*models.AuditEvent
}

func (m *MockAuditEventRepository) Create(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.CreatedEvents = append(m.CreatedEvents, event)
	return event, nil
}

func (m *MockAuditEventRepository) List(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters, limit, offset)
	}
	return []*models.AuditEvent{}, nil
}

// Actions returns the captured event actions in creation order.
func (m *MockAuditEventRepository) Actions() []string {
	actions := make([]string, len(m.CreatedEvents))
	for i, e := range m.CreatedEvents {
		actions[i] = e.Action
	}
	return actions
}

// MockNotificationRepository implements NotificationRepository for testing
// and captures created notifications.
type MockNotificationRepository struct {
	CreateFunc   func(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByIDFunc  func(ctx context.Context, id string) (*models.Notification, error)
	ListFunc     func(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error)
	MarkReadFunc func(ctx context.Context, id string) (*models.Notification, error)
	ResolveFunc  func(ctx context.Context, id, resolvedBy string) (*models.Notification, error)
	StatsFunc    func(ctx context.Context) (*models.NotificationStats, error)
	Created      []*models.Notification
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.Created = append(m.Created, n)
	return n, nil
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockNotificationRepository) List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters, limit, offset)
	}
	return []*models.Notification{}, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockNotificationRepository) Resolve(ctx context.Context, id, resolvedBy string) (*models.Notification, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id, resolvedBy)
	}
	return nil, models.ErrNotFound
}

func (m *MockNotificationRepository) Stats(ctx context.Context) (*models.NotificationStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.NotificationStats{BySeverity: map[string]int64{}, ByType: map[string]int64{}}, nil
}

// Types returns the captured notification types in creation order.
func (m *MockNotificationRepository) Types() []string {
	types := make([]string, len(m.Created))
	for i, n := range m.Created {
		types[i] = n.Type
	}
	return types
}

// MockPasswordHistoryRepository implements PasswordHistoryRepository for testing
type MockPasswordHistoryRepository struct {
	RecentFunc func(ctx context.Context, accountID string, window int) ([]*models.PasswordHistoryEntry, error)
}

func (m *MockPasswordHistoryRepository) Recent(ctx context.Context, accountID string, window int) ([]*models.PasswordHistoryEntry, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, accountID, window)
	}
	return []*models.PasswordHistoryEntry{}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendLockoutNoticeFunc func(ctx context.Context, email, fullName string, lockedUntil time.Time) error
	SentTo                []string
}

func (m *MockEmailService) SendLockoutNotice(ctx context.Context, email, fullName string, lockedUntil time.Time) error {
	if m.SendLockoutNoticeFunc != nil {
		return m.SendLockoutNoticeFunc(ctx, email, fullName, lockedUntil)
	}
	m.SentTo = append(m.SentTo, email)
	return nil
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditService(repo *MockAuditEventRepository) *AuditService {
	logger := discardLogger()
	return NewAuditService(repo, pkglogger.NewAuditLogger(logger), logger)
}

func newTestNotificationService(repo *MockNotificationRepository) *NotificationService {
	return NewNotificationService(repo, discardLogger())
}

// NewTestAccount creates an active account for tests.
func NewTestAccount(handle, passwordHash string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:           uuid.New().String(),
		Handle:       handle,
		Email:        handle + "@example.edu",
		FullName:     "Test " + handle,
		Role:         models.RoleStudent,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAccountLocked creates an account locked for the given duration.
func NewTestAccountLocked(handle, passwordHash string, lockFor time.Duration) *models.Account {
	account := NewTestAccount(handle, passwordHash)
	lockedUntil := time.Now().Add(lockFor)
	account.LockedUntil = &lockedUntil
	return account
}
