package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Fawzi-AI/filmzimmer/pkg/kv"
)

// DefaultNamespace prefixes every durable cache key so the cache can
// share a store with unrelated data and still sweep only its own keys.
const DefaultNamespace = "filmzimmer:cache:"

// persistedEntry is the JSON envelope written to the store. Timestamps
// and durations are carried as milliseconds.
type persistedEntry struct {
	Data      json.RawMessage `json:"data"`
	StoredAt  int64           `json:"stored_at"`
	TTLMillis int64           `json:"ttl_ms"`
}

// PersistentTier is the durable cache level. Entries are serialized
// into a namespaced key-value store and survive process restarts. A
// malformed stored entry is treated as a miss and left in place; a
// stale one is deleted during the lookup.
type PersistentTier struct {
	store     kv.Store
	namespace string
	now       func() time.Time
	logger    *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// NewPersistentTier creates a durable tier on top of store. An empty
// namespace defaults to DefaultNamespace, a nil clock to time.Now and
// a nil logger to a no-op logger.
func NewPersistentTier(store kv.Store, namespace string, now func() time.Time, logger *zap.Logger) *PersistentTier {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistentTier{
		store:     store,
		namespace: namespace,
		now:       now,
		logger:    logger,
	}
}

// Get retrieves the entry stored under key if it is still valid.
func (p *PersistentTier) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := p.store.Get(ctx, p.storageKey(key))
	if errors.Is(err, kv.ErrNotFound) {
		p.recordMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read durable entry: %w", err)
	}

	var stored persistedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		p.logger.Debug("ignoring malformed cache entry",
			zap.String("key", key),
			zap.Error(err))
		p.recordMiss()
		return nil, false, nil
	}

	entry := &Entry{
		Data:     stored.Data,
		StoredAt: time.UnixMilli(stored.StoredAt),
		TTL:      time.Duration(stored.TTLMillis) * time.Millisecond,
	}
	if !entry.Valid(p.now()) {
		if err := p.store.Delete(ctx, p.storageKey(key)); err != nil {
			p.logger.Warn("failed to remove stale cache entry",
				zap.String("key", key),
				zap.Error(err))
		}
		p.recordExpired()
		return nil, false, nil
	}

	p.recordHit()
	return entry, true, nil
}

// Set serializes entry and writes it to the store under the namespaced
// key.
func (p *PersistentTier) Set(ctx context.Context, key string, entry *Entry) error {
	raw, err := json.Marshal(persistedEntry{
		Data:      entry.Data,
		StoredAt:  entry.StoredAt.UnixMilli(),
		TTLMillis: entry.TTL.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("cache: encode durable entry: %w", err)
	}
	if err := p.store.Set(ctx, p.storageKey(key), string(raw)); err != nil {
		return fmt.Errorf("cache: write durable entry: %w", err)
	}

	p.mu.Lock()
	p.stats.Sets++
	p.mu.Unlock()
	return nil
}

// Delete removes the entry under key, if any.
func (p *PersistentTier) Delete(ctx context.Context, key string) error {
	if err := p.store.Delete(ctx, p.storageKey(key)); err != nil {
		return fmt.Errorf("cache: delete durable entry: %w", err)
	}

	p.mu.Lock()
	p.stats.Deletes++
	p.mu.Unlock()
	return nil
}

// Clear removes every entry under the tier's namespace. Keys outside
// the namespace are never touched.
func (p *PersistentTier) Clear(ctx context.Context) error {
	keys, err := p.store.Keys(ctx, p.namespace)
	if err != nil {
		return fmt.Errorf("cache: list durable entries: %w", err)
	}
	for _, storageKey := range keys {
		if err := p.store.Delete(ctx, storageKey); err != nil {
			return fmt.Errorf("cache: sweep durable entry %q: %w", storageKey, err)
		}
	}

	p.mu.Lock()
	p.stats.Deletes += uint64(len(keys))
	p.mu.Unlock()
	return nil
}

// Stats returns a copy of the tier's counters.
func (p *PersistentTier) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *PersistentTier) storageKey(key string) string {
	return p.namespace + key
}

func (p *PersistentTier) recordHit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Hits++
	p.updateHitRate()
}

func (p *PersistentTier) recordMiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Misses++
	p.updateHitRate()
}

func (p *PersistentTier) recordExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Expired++
	p.stats.Misses++
	p.updateHitRate()
}

// updateHitRate recalculates the hit rate; callers hold the lock.
func (p *PersistentTier) updateHitRate() {
	total := p.stats.Hits + p.stats.Misses
	if total > 0 {
		p.stats.HitRate = float64(p.stats.Hits) / float64(total)
	}
}

var _ Tier = (*PersistentTier)(nil)
