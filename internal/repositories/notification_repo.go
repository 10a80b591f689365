package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/models"
)

// NotificationRepository handles the admin notification feed.
type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, notification_type, severity, title, message, account_id,
       ip_address, metadata, is_read, is_resolved, read_at, resolved_at, resolved_by, created_at`

func scanNotificationRow(row rowScanner) (*models.Notification, error) {
	var n models.Notification

	err := row.Scan(
		&n.ID, &n.Type, &n.Severity, &n.Title, &n.Message, &n.AccountID,
		&n.IPAddress, &n.Metadata, &n.IsRead, &n.IsResolved,
		&n.ReadAt, &n.ResolvedAt, &n.ResolvedBy, &n.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &n, nil
}

func scanNotificationRows(rows pgx.Rows) ([]*models.Notification, error) {
	defer rows.Close()

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		n, err := scanNotificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// Create inserts a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if !models.ValidSeverity(n.Severity) {
		return nil, fmt.Errorf("unknown severity %q: %w", n.Severity, models.ErrBadRequest)
	}

	query := `
		INSERT INTO admin_notifications (notification_type, severity, title, message, account_id, ip_address, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + notificationColumns

	created, err := scanNotificationRow(r.db.Pool.QueryRow(ctx, query,
		n.Type, n.Severity, n.Title, n.Message, n.AccountID, n.IPAddress, n.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return created, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM admin_notifications WHERE id = $1`
	return scanNotificationRow(r.db.Pool.QueryRow(ctx, query, id))
}

// List returns notifications newest first, optionally filtered.
func (r *NotificationRepository) List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM admin_notifications
		WHERE ($1 = '' OR notification_type = $1)
		  AND ($2 = '' OR severity = $2)
		  AND ($3::boolean IS NULL OR is_read = $3)
		  AND ($4::boolean IS NULL OR is_resolved = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := r.db.Pool.Query(ctx, query,
		filters.Type, filters.Severity, filters.IsRead, filters.IsResolved, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	return scanNotificationRows(rows)
}

// MarkRead flags the notification as read. Idempotent: the read timestamp is
// stamped only by the first transition; later calls leave the row untouched.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	query := `
		UPDATE admin_notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND is_read = FALSE
	`

	if _, err := r.db.Pool.Exec(ctx, query, id); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByID(ctx, id)
}

// Resolve flags the notification as resolved by the given admin. Idempotent
// in the same way as MarkRead.
func (r *NotificationRepository) Resolve(ctx context.Context, id, resolvedBy string) (*models.Notification, error) {
	query := `
		UPDATE admin_notifications
		SET is_resolved = TRUE, resolved_at = now(), resolved_by = $2
		WHERE id = $1 AND is_resolved = FALSE
	`

	if _, err := r.db.Pool.Exec(ctx, query, id, resolvedBy); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByID(ctx, id)
}

// Stats aggregates the feed for the admin dashboard.
func (r *NotificationRepository) Stats(ctx context.Context) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{
		BySeverity: make(map[string]int64),
		ByType:     make(map[string]int64),
	}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT is_read),
		       COUNT(*) FILTER (WHERE is_read AND NOT is_resolved),
		       COUNT(*) FILTER (WHERE is_resolved)
		FROM admin_notifications
	`).Scan(&stats.Total, &stats.Unread, &stats.Pending, &stats.Resolved)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT severity, COUNT(*) FROM admin_notifications GROUP BY severity`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		stats.BySeverity[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := r.db.Pool.Query(ctx,
		`SELECT notification_type, COUNT(*) FROM admin_notifications GROUP BY notification_type`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var notificationType string
		var count int64
		if err := typeRows.Scan(&notificationType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		stats.ByType[notificationType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
