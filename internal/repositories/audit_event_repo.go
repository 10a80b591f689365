package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// AuditEventRepository appends to and reads the permanent audit log.
// There is no update or delete path: rows are immutable once written.
type AuditEventRepository struct {
	db *database.DB
}

func NewAuditEventRepository(db *database.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func scanAuditEventRow(row rowScanner) (*models.AuditEvent, error) {
	var event models.AuditEvent

	err := row.Scan(
		&event.ID, &event.AccountID, &event.Action, &event.TargetModel,
		&event.TargetID, &event.Description, &event.IPAddress, &event.UserAgent,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

func scanAuditEventRows(rows pgx.Rows) ([]*models.AuditEvent, error) {
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)

	for rows.Next() {
		event, err := scanAuditEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", err)
	}

	return events, nil
}

// Create appends a new audit event.
func (r *AuditEventRepository) Create(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	if !models.ValidAuditAction(event.Action) {
		return nil, fmt.Errorf("unknown audit action %q: %w", event.Action, models.ErrBadRequest)
	}

	query := `
		INSERT INTO audit_events (account_id, action, target_model, target_id, description, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, account_id, action, target_model, target_id, description, ip_address, user_agent, created_at
	`

	created, err := scanAuditEventRow(r.db.Pool.QueryRow(ctx, query,
		event.AccountID, event.Action, event.TargetModel, event.TargetID,
		event.Description, event.IPAddress, event.UserAgent,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit event: %w", err)
	}

	return created, nil
}

// AuditEventFilters narrows audit listings for the admin surface.
type AuditEventFilters struct {
	Action    string
	AccountID string
}

// List returns events newest first, optionally filtered.
func (r *AuditEventRepository) List(ctx context.Context, filters AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, account_id, action, target_model, target_id, description, ip_address, user_agent, created_at
		FROM audit_events
		WHERE ($1 = '' OR action = $1)
		  AND ($2 = '' OR account_id = $2::uuid)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, filters.Action, filters.AccountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}

	return scanAuditEventRows(rows)
}
