package syncer

import "time"

// DefaultStaleAfter is how old a portal replica may get before a resync.
const DefaultStaleAfter = 24 * time.Hour

// IsStale reports whether a portal's local replica needs a resync.
// A nil last-sync timestamp forces one.
func IsStale(lastUpdated *time.Time, now time.Time, window time.Duration) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) > window
}
