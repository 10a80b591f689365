package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Notification types
const (
	NotifyFailedLogin        = "failed_login"
	NotifySimultaneousAccess = "simultaneous_access"
	NotifyUserLocked         = "user_locked"
	NotifyIPBlocked          = "ip_blocked"
	NotifyUnauthorized       = "unauthorized_attempt"
	NotifySystemError        = "system_error"
	NotifyDBError            = "db_error"
)

// ValidSeverity reports whether s is a known notification severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// NotificationMetadata holds additional context for notifications (JSONB)
type NotificationMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (m *NotificationMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(NotificationMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	*m = NotificationMetadata(raw)
	return nil
}

// Value implements driver.Valuer for JSONB
func (m NotificationMetadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Notification is the operator-facing alert derived from security incidents.
// The only derived record allowed to change state post-creation, and only
// through the mark-read and resolve transitions.
type Notification struct {
	ID         uuid.UUID
	Type       string
	Severity   string
	Title      string
	Message    string
	AccountID  *uuid.UUID
	IPAddress  *string
	Metadata   NotificationMetadata
	IsRead     bool
	IsResolved bool
	ReadAt     *time.Time
	ResolvedAt *time.Time
	ResolvedBy *uuid.UUID
	CreatedAt  time.Time
}

// NotificationFilters narrows admin notification listings.
type NotificationFilters struct {
	Type       string
	Severity   string
	IsRead     *bool
	IsResolved *bool
}

// NotificationStats aggregates the feed for the admin dashboard.
type NotificationStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	Pending    int64            `json:"pending"` // read but not resolved
	Resolved   int64            `json:"resolved"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByType     map[string]int64 `json:"by_type"`
}
