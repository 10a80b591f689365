package models

import "time"

// ActiveSession records a login session for simultaneous-access detection.
// It is not a session-management mechanism: nothing here revokes anything.
type ActiveSession struct {
	ID           string
	AccountID    string
	SessionKey   string
	IPAddress    string
	UserAgent    string
	LastActivity time.Time
	CreatedAt    time.Time
}
