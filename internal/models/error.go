package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors. ErrInvalidCredentials is deliberately identical
	// for unknown handles and wrong passwords to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIPBlocked          = errors.New("too many failed attempts from this address")
	ErrAccountInactive    = errors.New("account is inactive")

	// Password change errors
	ErrPasswordReused = errors.New("password was used recently")
	ErrValidation     = errors.New("validation failed")

	// Storage errors eligible for transport-level retry
	ErrTransientStorage = errors.New("storage temporarily unavailable")
)

// AccountLockedError reports a rejected attempt against a locked account,
// carrying the remaining lockout so the caller can surface "retry in N".
// Unlike ErrInvalidCredentials this is intentionally distinguishable: by the
// time a lock exists, the account's existence is already established.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %s", e.RetryAfter.Round(time.Second))
}

// AsAccountLocked reports whether err carries an AccountLockedError.
func AsAccountLocked(err error) (*AccountLockedError, bool) {
	var locked *AccountLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}
