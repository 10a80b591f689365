package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rmfernandez/acadguard/internal/models"
	pkgauth "github.com/rmfernandez/acadguard/pkg/auth"
)

type PasswordHistoryRepository interface {
	Recent(ctx context.Context, accountID string, window int) ([]*models.PasswordHistoryEntry, error)
}

type CredentialRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	UpdateCredential(ctx context.Context, id, newHash string) error
}

// PasswordService handles credential changes with reuse prevention.
type PasswordService struct {
	accounts CredentialRepository
	history  PasswordHistoryRepository
	audit    *AuditService
	window   int
	logger   *slog.Logger
}

// NewPasswordService creates a new PasswordService. window is how many
// historical hashes a new password is checked against.
func NewPasswordService(accounts CredentialRepository, history PasswordHistoryRepository, audit *AuditService, window int, logger *slog.Logger) *PasswordService {
	return &PasswordService{
		accounts: accounts,
		history:  history,
		audit:    audit,
		window:   window,
		logger:   logger,
	}
}

// ChangePassword rotates the account's credential. The current password must
// verify, the new one must pass policy, and it must not match the current
// hash or any of the last few retired ones.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress, userAgent string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	// Reuse check runs against plaintext because every stored hash carries
	// its own salt. Current hash first, then the retired ones.
	if pkgauth.ComparePassword(account.PasswordHash, newPassword) == nil {
		return models.ErrPasswordReused
	}

	entries, err := s.history.Recent(ctx, accountID, s.window)
	if err != nil {
		return fmt.Errorf("failed to load password history: %w", err)
	}
	for _, entry := range entries {
		if pkgauth.ComparePassword(entry.PasswordHash, newPassword) == nil {
			return models.ErrPasswordReused
		}
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdateCredential(ctx, accountID, newHash); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   parseAccountID(accountID),
		Handle:      account.Handle,
		Action:      models.ActionUserUpdate,
		TargetModel: "account",
		TargetID:    &account.ID,
		Description: "password changed",
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})

	return nil
}
