// Package cache implements the two-tier response cache behind the
// filmzimmer client: a process-lifetime memory tier in front of an
// optional durable tier backed by a key-value store. Entries expire by
// TTL only and are removed lazily when a lookup finds them stale.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Tier names as they appear in stats and metrics labels.
const (
	TierMemory     = "memory"
	TierPersistent = "persistent"
)

// Entry is a single cached payload together with the metadata needed to
// decide whether it is still fresh.
type Entry struct {
	Data     json.RawMessage // raw response payload
	StoredAt time.Time       // when the entry was written
	TTL      time.Duration   // freshness window measured from StoredAt
}

// Valid reports whether the entry is still fresh at the given instant.
// An entry is valid while less than its TTL has elapsed since it was
// stored, so a non-positive TTL never validates.
func (e *Entry) Valid(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Tier is one cache level. Both levels of the tiered cache satisfy it.
type Tier interface {
	// Get returns the entry stored under key if it is present and
	// still valid. A stale entry is removed during the lookup and
	// reported as a miss.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores entry under key, overwriting any previous entry.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes the entry under key, if any.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this tier.
	Clear(ctx context.Context) error

	// Stats returns counters describing the tier's activity so far.
	Stats() Stats
}

// Stats holds cache tier counters.
type Stats struct {
	Hits          uint64  // lookups answered with a valid entry
	Misses        uint64  // lookups that found nothing usable
	Sets          uint64  // entries written
	Deletes       uint64  // entries removed explicitly
	Expired       uint64  // stale entries removed during lookups
	WriteFailures uint64  // writes dropped or rejected by the backing store
	Size          int     // entries currently held; store-backed tiers report zero
	HitRate       float64 // Hits / (Hits + Misses), 0.0 - 1.0
}
