package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// IPAttemptRepository tracks failure counters per source address,
// independent of account identity.
type IPAttemptRepository struct {
	db *database.DB
}

func NewIPAttemptRepository(db *database.DB) *IPAttemptRepository {
	return &IPAttemptRepository{db: db}
}

func (r *IPAttemptRepository) Get(ctx context.Context, ip string) (*models.IPRecord, error) {
	query := `
		SELECT ip_address, attempts, last_attempt, blocked_until
		FROM ip_attempts WHERE ip_address = $1
	`

	var record models.IPRecord
	err := r.db.Pool.QueryRow(ctx, query, ip).Scan(
		&record.IPAddress, &record.Attempts, &record.LastAttempt, &record.BlockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &record, nil
}

// RecordFailedAttempt lazily creates the record on the first failure and
// evolves the counter atomically, mirroring the account-side transition.
// Returns nil when the address is already blocked (no counter mutation).
func (r *IPAttemptRepository) RecordFailedAttempt(ctx context.Context, ip string, threshold int, blockFor time.Duration) (*models.LockTransition, error) {
	query := `
		INSERT INTO ip_attempts (ip_address, attempts, last_attempt, blocked_until)
		VALUES ($1,
		        CASE WHEN 1 >= $2 THEN 0 ELSE 1 END,
		        now(),
		        CASE WHEN 1 >= $2 THEN now() + make_interval(secs => $3) ELSE NULL END)
		ON CONFLICT (ip_address) DO UPDATE
		SET attempts      = CASE WHEN ip_attempts.attempts + 1 >= $2 THEN 0 ELSE ip_attempts.attempts + 1 END,
		    last_attempt  = now(),
		    blocked_until = CASE WHEN ip_attempts.attempts + 1 >= $2 THEN now() + make_interval(secs => $3) ELSE ip_attempts.blocked_until END
		WHERE ip_attempts.blocked_until IS NULL OR ip_attempts.blocked_until <= now()
		RETURNING attempts, blocked_until
	`

	var transition models.LockTransition
	err := r.db.Pool.QueryRow(ctx, query, ip, threshold, blockFor.Seconds()).
		Scan(&transition.Attempts, &transition.LockedUntil)
	if err == pgx.ErrNoRows {
		// Address is blocked; the attempt must not mutate the counter.
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	transition.Locked = transition.Attempts == 0 &&
		transition.LockedUntil != nil && transition.LockedUntil.After(time.Now())
	return &transition, nil
}

// Unblock clears the block and counter for admin unblock operations.
func (r *IPAttemptRepository) Unblock(ctx context.Context, ip string) error {
	query := `
		UPDATE ip_attempts
		SET attempts = 0, blocked_until = NULL
		WHERE ip_address = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, ip)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired removes records whose block has lapsed and that have seen no
// attempt since before. Pure housekeeping: expiry itself is evaluated lazily
// by wall-clock comparison on each attempt.
func (r *IPAttemptRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM ip_attempts
		WHERE (blocked_until IS NULL OR blocked_until <= now())
		  AND (last_attempt IS NULL OR last_attempt < $1)
	`

	tag, err := r.db.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
