package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// PasswordHistoryRepository is the append-only ledger of prior credential
// hashes. There is deliberately no delete API here.
type PasswordHistoryRepository struct {
	db *database.DB
}

func NewPasswordHistoryRepository(db *database.DB) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{db: db}
}

// Record appends a previous hash for the account. It takes the caller's
// transaction so the retired hash commits together with the credential
// change that displaced it.
func (r *PasswordHistoryRepository) Record(ctx context.Context, tx pgx.Tx, accountID, previousHash string) error {
	query := `INSERT INTO password_history (account_id, password_hash) VALUES ($1, $2)`

	_, err := tx.Exec(ctx, query, accountID, previousHash)
	return database.MapPostgresError(err)
}

// Recent returns the most recent window entries, newest first.
func (r *PasswordHistoryRepository) Recent(ctx context.Context, accountID string, window int) ([]*models.PasswordHistoryEntry, error) {
	query := `
		SELECT id, account_id, password_hash, created_at
		FROM password_history
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID, window)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	entries := make([]*models.PasswordHistoryEntry, 0, window)
	for rows.Next() {
		var entry models.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan password history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating password history rows: %w", err)
	}

	return entries, nil
}
