package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/config"
	"github.com/rmfernandez/acadguard/internal/models"
	pkgauth "github.com/rmfernandez/acadguard/pkg/auth"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

type AccountRepository interface {
	GetByHandle(ctx context.Context, handle string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	RecordFailedAttempt(ctx context.Context, handle string, threshold int, lockFor time.Duration) (*models.LockTransition, error)
	ResetLockState(ctx context.Context, id string) error
	UnlockByHandle(ctx context.Context, handle string) (*models.Account, error)
}

type IPAttemptRepository interface {
	Get(ctx context.Context, ip string) (*models.IPRecord, error)
	RecordFailedAttempt(ctx context.Context, ip string, threshold int, blockFor time.Duration) (*models.LockTransition, error)
	Unblock(ctx context.Context, ip string) error
}

// LoginSecurityService is the lockout policy engine. Every authentication
// decision flows through AttemptLogin; admin recovery flows through
// UnlockAccount and UnblockIP.
type LoginSecurityService struct {
	accounts AccountRepository
	ips      IPAttemptRepository
	sessions *SessionService
	audit    *AuditService
	notifier *NotificationService
	email    EmailService
	tm       *auth.TokenManager
	cfg      config.SecurityConfig
	logger   *slog.Logger
}

// NewLoginSecurityService creates a new LoginSecurityService
func NewLoginSecurityService(
	accounts AccountRepository,
	ips IPAttemptRepository,
	sessions *SessionService,
	audit *AuditService,
	notifier *NotificationService,
	email EmailService,
	tm *auth.TokenManager,
	cfg config.SecurityConfig,
	logger *slog.Logger,
) *LoginSecurityService {
	return &LoginSecurityService{
		accounts: accounts,
		ips:      ips,
		sessions: sessions,
		audit:    audit,
		notifier: notifier,
		email:    email,
		tm:       tm,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Account      *models.Account
	AccessToken  string
	RefreshToken string
	SessionKey   string
}

// AttemptLogin evaluates one login attempt. Ordering is fixed: the source
// address is checked before the account lock, and the account lock before
// the credential, so a blocked address never leaks account state and a
// locked account never burns bcrypt time.
func (s *LoginSecurityService) AttemptLogin(ctx context.Context, handle, password, ipAddress, userAgent string) (*LoginResult, error) {
	now := time.Now()

	ipRecord, err := s.ips.Get(ctx, ipAddress)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check address state: %w", err)
	}
	if ipRecord != nil && ipRecord.Blocked(now) {
		s.audit.Record(ctx, SecurityEvent{
			Action:      models.ActionIPBlockedAttempt,
			Handle:      handle,
			TargetModel: "ip_record",
			TargetID:    &ipAddress,
			Description: "login attempt from blocked address",
			IPAddress:   ipAddress,
			UserAgent:   userAgent,
		})
		return nil, models.ErrIPBlocked
	}

	account, err := s.accounts.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown handle: burn a bcrypt comparison so timing matches the
			// known-handle path, count the failure against the address only.
			pkgauth.CompareDummy(password)
			s.recordIPFailure(ctx, handle, ipAddress, userAgent)
			s.audit.Record(ctx, SecurityEvent{
				Action:      models.ActionLoginFailed,
				Handle:      handle,
				Description: "login failed: unknown handle",
				IPAddress:   ipAddress,
				UserAgent:   userAgent,
			})
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	accountID := parseAccountID(account.ID)

	if account.Locked(now) {
		s.audit.Record(ctx, SecurityEvent{
			AccountID:   accountID,
			Handle:      handle,
			Action:      models.ActionLockedAttempt,
			TargetModel: "account",
			Description: "login attempt against locked account",
			IPAddress:   ipAddress,
			UserAgent:   userAgent,
		})
		return nil, &models.AccountLockedError{RetryAfter: account.LockRemaining(now)}
	}

	if !account.Active {
		s.handleFailure(ctx, account, "account inactive", ipAddress, userAgent)
		return nil, models.ErrInvalidCredentials
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.handleFailure(ctx, account, "wrong password", ipAddress, userAgent)
		return nil, models.ErrInvalidCredentials
	}

	return s.handleSuccess(ctx, account, ipAddress, userAgent)
}

// recordIPFailure increments the per-address counter and handles a threshold
// crossing. Counter errors are logged and swallowed: a broken tracker must
// not turn a credential failure into a 500.
func (s *LoginSecurityService) recordIPFailure(ctx context.Context, handle, ipAddress, userAgent string) {
	transition, err := s.ips.RecordFailedAttempt(ctx, ipAddress, s.cfg.IPBlockThreshold, s.cfg.IPBlockDuration)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record address failure",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err),
		)
		return
	}
	if transition == nil || !transition.Locked {
		return
	}

	s.audit.Record(ctx, SecurityEvent{
		Action:      models.ActionIPBlock,
		Handle:      handle,
		TargetModel: "ip_record",
		TargetID:    &ipAddress,
		Description: fmt.Sprintf("address blocked for %s after repeated failures", s.cfg.IPBlockDuration),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})
	s.notifier.Notify(ctx, Alert{
		Type:      models.NotifyIPBlocked,
		Severity:  models.SeverityCritical,
		Title:     "Source address blocked",
		Message:   fmt.Sprintf("Address %s was blocked after %d failed login attempts.", ipAddress, s.cfg.IPBlockThreshold),
		IPAddress: ipAddress,
		Metadata: models.NotificationMetadata{
			"blocked_until": transition.LockedUntil,
			"threshold":     s.cfg.IPBlockThreshold,
		},
	})
}

// handleFailure runs the failed-credential path: both counters move, the
// failure is audited, and threshold crossings raise alerts. Counter updates
// are committed before any alerting or mail I/O happens.
func (s *LoginSecurityService) handleFailure(ctx context.Context, account *models.Account, reason, ipAddress, userAgent string) {
	s.recordIPFailure(ctx, account.Handle, ipAddress, userAgent)

	transition, err := s.accounts.RecordFailedAttempt(ctx, account.Handle, s.cfg.AccountLockThreshold, s.cfg.AccountLockDuration)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record account failure",
			slog.String("handle", account.Handle),
			slog.Any("error", err),
		)
	}

	accountID := parseAccountID(account.ID)

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   accountID,
		Handle:      account.Handle,
		Action:      models.ActionLoginFailed,
		TargetModel: "account",
		Description: "login failed: " + reason,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})

	// nil transition means another request locked the account first
	if transition == nil || err != nil {
		return
	}

	// The repeated-failures alert fires from the notify threshold onward and
	// escalates to error on the attempt that locks the account.
	attempts := transition.Attempts
	severity := models.SeverityWarning
	if transition.Locked {
		attempts = s.cfg.AccountLockThreshold
		severity = models.SeverityError
	}
	if attempts >= s.cfg.FailedLoginNotifyAfter {
		s.notifier.Notify(ctx, Alert{
			Type:      models.NotifyFailedLogin,
			Severity:  severity,
			Title:     "Repeated failed logins",
			Message:   fmt.Sprintf("Account %q has %d consecutive failed login attempts.", account.Handle, attempts),
			AccountID: accountID,
			IPAddress: ipAddress,
			Metadata: models.NotificationMetadata{
				"failed_attempts": attempts,
			},
		})
	}

	if transition.Locked {
		s.audit.Record(ctx, SecurityEvent{
			AccountID:   accountID,
			Handle:      account.Handle,
			Action:      models.ActionUserLock,
			TargetModel: "account",
			Description: fmt.Sprintf("account locked for %s after %d failed attempts", s.cfg.AccountLockDuration, s.cfg.AccountLockThreshold),
			IPAddress:   ipAddress,
			UserAgent:   userAgent,
		})
		s.notifier.Notify(ctx, Alert{
			Type:      models.NotifyUserLocked,
			Severity:  models.SeverityCritical,
			Title:     "Account locked",
			Message:   fmt.Sprintf("Account %q was locked after %d failed login attempts.", account.Handle, s.cfg.AccountLockThreshold),
			AccountID: accountID,
			IPAddress: ipAddress,
			Metadata: models.NotificationMetadata{
				"locked_until": transition.LockedUntil,
				"threshold":    s.cfg.AccountLockThreshold,
			},
		})
		s.sendLockoutNotice(ctx, account, transition)
	}
}

// sendLockoutNotice mails the account holder. Fire-and-forget: the send has
// its own timeout and a failure is only logged.
func (s *LoginSecurityService) sendLockoutNotice(ctx context.Context, account *models.Account, transition *models.LockTransition) {
	if transition.LockedUntil == nil {
		return
	}
	if err := s.email.SendLockoutNotice(ctx, account.Email, account.FullName, *transition.LockedUntil); err != nil {
		pkglogger.LogBestEffortFailure(ctx, s.logger, "lockout notice email", err,
			slog.String("handle", account.Handle),
		)
	}
}

func (s *LoginSecurityService) handleSuccess(ctx context.Context, account *models.Account, ipAddress, userAgent string) (*LoginResult, error) {
	if err := s.accounts.ResetLockState(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to reset lock state: %w", err)
	}

	accessToken, sessionKey, err := s.tm.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tm.GenerateRefreshToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	accountID := parseAccountID(account.ID)

	// Registry and detection are best-effort: a registry hiccup must not
	// reject a correct credential.
	if err := s.sessions.Register(ctx, account.ID, sessionKey, ipAddress, userAgent); err != nil {
		s.logger.ErrorContext(ctx, "failed to register session",
			slog.String("handle", account.Handle),
			slog.Any("error", err),
		)
	} else {
		s.checkSimultaneousAccess(ctx, account, accountID, ipAddress)
	}

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   accountID,
		Handle:      account.Handle,
		Action:      models.ActionLoginSuccess,
		TargetModel: "account",
		Description: "login succeeded",
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})

	return &LoginResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionKey:   sessionKey,
	}, nil
}

func (s *LoginSecurityService) checkSimultaneousAccess(ctx context.Context, account *models.Account, accountID *uuid.UUID, ipAddress string) {
	others, err := s.sessions.ConcurrentIPs(ctx, account.ID, ipAddress)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check simultaneous access",
			slog.String("handle", account.Handle),
			slog.Any("error", err),
		)
		return
	}
	if len(others) == 0 {
		return
	}

	s.notifier.Notify(ctx, Alert{
		Type:      models.NotifySimultaneousAccess,
		Severity:  models.SeverityWarning,
		Title:     "Simultaneous access detected",
		Message:   fmt.Sprintf("Account %q is active from %d other address(es) within the detection window.", account.Handle, len(others)),
		AccountID: accountID,
		IPAddress: ipAddress,
		Metadata: models.NotificationMetadata{
			"other_addresses": others,
		},
	})
}

// Refresh exchanges a valid refresh token for a new token pair. The
// account is re-read so deactivation and lockout take effect before the
// refresh token expires.
func (s *LoginSecurityService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*LoginResult, error) {
	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil || claims.Type != "refresh" {
		return nil, models.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, models.ErrInvalidCredentials
	}
	if account.Locked(time.Now()) {
		return nil, &models.AccountLockedError{RetryAfter: account.LockRemaining(time.Now())}
	}

	accessToken, sessionKey, err := s.tm.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefreshToken, err := s.tm.GenerateRefreshToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.sessions.Register(ctx, account.ID, sessionKey, ipAddress, userAgent); err != nil {
		s.logger.ErrorContext(ctx, "failed to register refreshed session",
			slog.String("handle", account.Handle),
			slog.Any("error", err),
		)
	}

	return &LoginResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		SessionKey:   sessionKey,
	}, nil
}

// Logout ends the session for the given key and audits it.
func (s *LoginSecurityService) Logout(ctx context.Context, accountID, handle, sessionKey, ipAddress, userAgent string) error {
	if err := s.sessions.End(ctx, sessionKey); err != nil {
		return err
	}

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   parseAccountID(accountID),
		Handle:      handle,
		Action:      models.ActionLogout,
		TargetModel: "account",
		Description: "logout",
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})

	return nil
}

// UnlockAccount clears an account's lockout state on behalf of an admin.
func (s *LoginSecurityService) UnlockAccount(ctx context.Context, handle string, adminID uuid.UUID, ipAddress string) (*models.Account, error) {
	account, err := s.accounts.UnlockByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock account: %w", err)
	}

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   &adminID,
		Handle:      handle,
		Action:      models.ActionAdminUnlock,
		TargetModel: "account",
		TargetID:    &account.ID,
		Description: fmt.Sprintf("admin cleared lockout state for %q", handle),
		IPAddress:   ipAddress,
	})

	return account, nil
}

// UnblockIP clears an address block on behalf of an admin.
func (s *LoginSecurityService) UnblockIP(ctx context.Context, ipAddress string, adminID uuid.UUID, adminIP string) error {
	if err := s.ips.Unblock(ctx, ipAddress); err != nil {
		return fmt.Errorf("failed to unblock address: %w", err)
	}

	s.audit.Record(ctx, SecurityEvent{
		AccountID:   &adminID,
		Action:      models.ActionAdminIPUnblock,
		TargetModel: "ip_record",
		TargetID:    &ipAddress,
		Description: fmt.Sprintf("admin cleared block for address %s", ipAddress),
		IPAddress:   adminIP,
	})

	return nil
}

// parseAccountID converts the string primary key to a UUID pointer for
// audit rows, tolerating non-UUID IDs in tests.
func parseAccountID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}
