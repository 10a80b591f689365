package models

import "time"

// Account roles
const (
	RoleStudent        = "student"
	RoleTutor          = "tutor"
	RoleDepartmentHead = "department_head"
	RoleAdmin          = "admin"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTutor, RoleDepartmentHead, RoleAdmin:
		return true
	}
	return false
}

// Account holds user identity plus the security fields owned by this
// subsystem: the current credential hash and per-account lockout state.
type Account struct {
	ID                string
	Handle            string
	Email             string
	FullName          string
	Role              string
	PasswordHash      string
	Active            bool
	FailedAttempts    int
	LockedUntil       *time.Time // Lock expiry; nil when not locked
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Locked reports whether the account lock is still in effect at now.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// LockRemaining returns the lockout time left at now, zero when unlocked.
func (a *Account) LockRemaining(now time.Time) time.Duration {
	if !a.Locked(now) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

// LockTransition is the outcome of an atomic failure-counter update on an
// account or IP record.
type LockTransition struct {
	Attempts    int        // Counter value after the update (0 right after a lock)
	Locked      bool       // True when this update crossed the threshold
	LockedUntil *time.Time // Set when Locked is true
}
