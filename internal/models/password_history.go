package models

import "time"

// PasswordHistoryEntry is an immutable record of a credential hash an
// account previously used. Rows are created only when the stored hash
// actually changes, never on account creation.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
}
