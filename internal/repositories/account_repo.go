package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// AccountRepository handles account rows including their lockout state.
type AccountRepository struct {
	db      *database.DB
	history *PasswordHistoryRepository
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db, history: NewPasswordHistoryRepository(db)}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Handle, &account.Email, &account.FullName,
		&account.Role, &account.PasswordHash, &account.Active,
		&account.FailedAttempts, &account.LockedUntil, &account.PasswordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

const accountColumns = `id, handle, email, full_name, role, password_hash, active,
       failed_attempts, locked_until, password_changed_at, created_at, updated_at`

func (r *AccountRepository) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE handle = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, handle))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (handle, email, full_name, role, password_hash, active, password_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		account.Handle, account.Email, account.FullName, account.Role,
		account.PasswordHash, account.Active, account.PasswordChangedAt,
	))
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RecordFailedAttempt evolves the failure counter atomically: the increment,
// the threshold comparison and the lock transition happen in one statement,
// so concurrent failures can neither under-count nor lock twice. Rows whose
// lock is still in effect are excluded by the WHERE clause; in that case
// (and for unknown handles) no transition is returned.
func (r *AccountRepository) RecordFailedAttempt(ctx context.Context, handle string, threshold int, lockFor time.Duration) (*models.LockTransition, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = CASE WHEN failed_attempts + 1 >= $2 THEN 0 ELSE failed_attempts + 1 END,
		    locked_until    = CASE WHEN failed_attempts + 1 >= $2 THEN now() + make_interval(secs => $3) ELSE locked_until END,
		    updated_at      = now()
		WHERE handle = $1
		  AND (locked_until IS NULL OR locked_until <= now())
		RETURNING failed_attempts, locked_until
	`

	var transition models.LockTransition
	err := r.db.Pool.QueryRow(ctx, query, handle, threshold, lockFor.Seconds()).
		Scan(&transition.Attempts, &transition.LockedUntil)
	if err == pgx.ErrNoRows {
		// Account is locked (or gone); the attempt must not mutate counters.
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	transition.Locked = transition.Attempts == 0 &&
		transition.LockedUntil != nil && transition.LockedUntil.After(time.Now())
	return &transition, nil
}

// ResetLockState zeroes the failure counter and clears any lock. Idempotent.
func (r *AccountRepository) ResetLockState(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UnlockByHandle clears lock state for admin unlock operations.
func (r *AccountRepository) UnlockByHandle(ctx context.Context, handle string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE handle = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, handle))
}

// UpdateCredential swaps the stored hash and appends the previous one to the
// password history in a single transaction. The history row is written only
// here, which is what guarantees entries exist exactly when the hash changes.
func (r *AccountRepository) UpdateCredential(ctx context.Context, id, newHash string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var previousHash string
		err := tx.QueryRow(ctx,
			`SELECT password_hash FROM accounts WHERE id = $1 FOR UPDATE`, id,
		).Scan(&previousHash)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if previousHash == newHash {
			return fmt.Errorf("credential unchanged: %w", models.ErrPasswordReused)
		}

		if previousHash != "" {
			if err := r.history.Record(ctx, tx, id, previousHash); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE accounts
			SET password_hash = $2, password_changed_at = now(), updated_at = now()
			WHERE id = $1
		`, id, newHash)
		return database.MapPostgresError(err)
	})
}
