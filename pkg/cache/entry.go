// Package cache provides the time-based metadata cache used for catalogue
// schemas and table lists, with a get-or-refresh contract, an injectable
// clock and interchangeable filesystem/redis backends.
package cache

import (
	"time"
)

// Entry represents a cached payload with its expiry.
type Entry struct {
	// Data is the cached payload.
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired at the given instant.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.After(e.Expires)
}

// TTL returns the time until expiration at the given instant.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
