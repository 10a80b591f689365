package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// SessionRepository records active sessions for simultaneous-access
// detection.
type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert creates the session or refreshes last_activity for an existing key.
func (r *SessionRepository) Upsert(ctx context.Context, session *models.ActiveSession) error {
	query := `
		INSERT INTO active_sessions (account_id, session_key, ip_address, user_agent, last_activity)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_key) DO UPDATE
		SET ip_address = EXCLUDED.ip_address,
		    user_agent = EXCLUDED.user_agent,
		    last_activity = now()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.AccountID, session.SessionKey, session.IPAddress, session.UserAgent,
	)
	return database.MapPostgresError(err)
}

// FindConcurrentIPs returns the distinct other addresses with activity for
// the account since the given time.
func (r *SessionRepository) FindConcurrentIPs(ctx context.Context, accountID, excludingIP string, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT ip_address
		FROM active_sessions
		WHERE account_id = $1 AND ip_address <> $2 AND last_activity >= $3
		ORDER BY ip_address
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID, excludingIP, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	ips := make([]string, 0)
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, fmt.Errorf("failed to scan session ip: %w", err)
		}
		ips = append(ips, ip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return ips, nil
}

// DeleteByKey removes a session on logout.
func (r *SessionRepository) DeleteByKey(ctx context.Context, sessionKey string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM active_sessions WHERE session_key = $1`, sessionKey)
	return database.MapPostgresError(err)
}

// DeleteStale removes sessions with no activity since before.
func (r *SessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM active_sessions WHERE last_activity < $1`, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
