package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rmfernandez/acadguard/internal/models"
)

// MapPostgresError translates driver errors into the sentinel errors the
// service layer branches on. Anything unrecognized passes through unchanged
// so the caller's %w chain keeps the original cause.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return models.ErrConflict
		case "23503", "23502":
			return models.ErrBadRequest
		case "40001", "40P01":
			// Serialization failure or deadlock. Lockout counters update
			// under concurrent logins, so these are expected and retryable.
			return models.ErrTransientStorage
		}
	}

	if pgconn.SafeToRetry(err) {
		return models.ErrTransientStorage
	}

	return err
}

// WithTransaction runs fn inside a transaction, rolling back on error or
// panic. The credential rotation path relies on this to keep the reuse
// check, the history insert, and the hash update atomic.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
