package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryTier is the in-process cache level. It lives for the lifetime
// of the process and never touches I/O, which makes it the hot path of
// every lookup. Stale entries are deleted the first time a lookup
// finds them; there is no background sweeper and no size-based
// eviction.
type MemoryTier struct {
	mu    sync.RWMutex
	data  map[string]*Entry
	stats Stats
	now   func() time.Time
}

// NewMemoryTier creates an empty memory tier. A nil clock defaults to
// time.Now.
func NewMemoryTier(now func() time.Time) *MemoryTier {
	if now == nil {
		now = time.Now
	}
	return &MemoryTier{
		data: make(map[string]*Entry),
		now:  now,
	}
}

// Get retrieves the entry stored under key if it is still valid.
func (m *MemoryTier) Get(ctx context.Context, key string) (*Entry, bool, error) {
	m.mu.RLock()
	entry, exists := m.data[key]
	m.mu.RUnlock()

	if !exists {
		m.recordMiss()
		return nil, false, nil
	}
	if !entry.Valid(m.now()) {
		m.removeStale(key, entry)
		return nil, false, nil
	}

	m.recordHit()
	return entry, true, nil
}

// Set stores entry under key, overwriting any previous entry.
func (m *MemoryTier) Set(ctx context.Context, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = entry
	m.stats.Sets++
	m.stats.Size = len(m.data)
	return nil
}

// Delete removes the entry under key, if any.
func (m *MemoryTier) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists {
		delete(m.data, key)
		m.stats.Deletes++
		m.stats.Size = len(m.data)
	}
	return nil
}

// Clear removes every entry from the tier.
func (m *MemoryTier) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*Entry)
	m.stats.Size = 0
	return nil
}

// Stats returns a copy of the tier's counters.
func (m *MemoryTier) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statsCopy := m.stats
	statsCopy.Size = len(m.data)
	return statsCopy
}

// removeStale deletes the stale entry read during a lookup. The entry
// is only removed while it is still the one that was read, so a
// concurrent Set for the same key is never lost.
func (m *MemoryTier) removeStale(key string, stale *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.data[key]; exists && current == stale {
		delete(m.data, key)
		m.stats.Expired++
	}
	m.stats.Misses++
	m.stats.Size = len(m.data)
	m.updateHitRate()
}

func (m *MemoryTier) recordHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Hits++
	m.updateHitRate()
}

func (m *MemoryTier) recordMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Misses++
	m.updateHitRate()
}

// updateHitRate recalculates the hit rate; callers hold the lock.
func (m *MemoryTier) updateHitRate() {
	total := m.stats.Hits + m.stats.Misses
	if total > 0 {
		m.stats.HitRate = float64(m.stats.Hits) / float64(total)
	}
}

var _ Tier = (*MemoryTier)(nil)
