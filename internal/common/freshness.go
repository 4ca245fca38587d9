package common

import "time"

// Freshness TTLs for cached market data
const (
	// FreshnessEOD is how long a cached daily-close series is trusted before
	// the missing tail is re-fetched.
	FreshnessEOD = 12 * time.Hour
	// FreshnessMetadata covers instrument descriptive metadata (sector,
	// industry, country) which changes rarely.
	FreshnessMetadata = 30 * 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
