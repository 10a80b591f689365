package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions. The set is closed: repositories reject anything else.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionLoginSuccess = "login_success"
	ActionLoginFailed  = "login_failed"
	ActionLogout       = "logout"

	ActionReview  = "review"
	ActionApprove = "approve"
	ActionReject  = "reject"

	ActionUserLock         = "user_lock"
	ActionIPBlock          = "ip_block"
	ActionIPBlockedAttempt = "ip_blocked_attempt"
	ActionLockedAttempt    = "locked_attempt"
	ActionAdminUnlock      = "admin_unlock"
	ActionAdminIPDeny      = "admin_ip_deny"
	ActionAdminIPUnblock   = "admin_ip_unblock"

	ActionUserCreate       = "user_create"
	ActionUserUpdate       = "user_update"
	ActionUserDelete       = "user_delete"
	ActionPermissionChange = "permission_change"
	ActionConfigChange     = "config_change"

	ActionUnauthorizedAttempt = "unauthorized_attempt"
	ActionSystemError         = "system_error"
	ActionDBError             = "db_error"
)

var auditActions = map[string]bool{
	ActionCreate: true, ActionUpdate: true, ActionDelete: true,
	ActionLoginSuccess: true, ActionLoginFailed: true, ActionLogout: true,
	ActionReview: true, ActionApprove: true, ActionReject: true,
	ActionUserLock: true, ActionIPBlock: true, ActionIPBlockedAttempt: true,
	ActionLockedAttempt: true, ActionAdminUnlock: true, ActionAdminIPDeny: true,
	ActionAdminIPUnblock: true,
	ActionUserCreate: true, ActionUserUpdate: true, ActionUserDelete: true,
	ActionPermissionChange: true, ActionConfigChange: true,
	ActionUnauthorizedAttempt: true, ActionSystemError: true, ActionDBError: true,
}

// ValidAuditAction reports whether action belongs to the closed taxonomy.
func ValidAuditAction(action string) bool {
	return auditActions[action]
}

// AuditEvent is the permanent record of a security-relevant event.
// Append-only: never mutated or deleted by this subsystem.
type AuditEvent struct {
	ID          uuid.UUID
	AccountID   *uuid.UUID
	Action      string
	TargetModel string
	TargetID    *string
	Description string
	IPAddress   *string
	UserAgent   *string
	CreatedAt   time.Time
}
