package models

import "time"

// IPRecord tracks failed login attempts per source address, independent of
// account identity. Created lazily on the first failure from that address.
type IPRecord struct {
	IPAddress    string
	Attempts     int
	LastAttempt  *time.Time
	BlockedUntil *time.Time
}

// Blocked reports whether the address block is still in effect at now.
func (r *IPRecord) Blocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}
