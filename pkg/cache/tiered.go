package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Fawzi-AI/filmzimmer/pkg/kv"
)

// DefaultWriteQueueSize is the capacity of the background durable-write
// queue. Writes beyond this backlog are dropped with a log line.
const DefaultWriteQueueSize = 256

// Loader performs the upstream request on a cache miss and returns the
// raw response payload. It must perform exactly one call.
type Loader func(ctx context.Context) (json.RawMessage, error)

// Option configures a TieredCache.
type Option func(*options)

type options struct {
	store     kv.Store
	namespace string
	clock     func() time.Time
	logger    *zap.Logger
	queueSize int
}

func defaultOptions() *options {
	return &options{
		namespace: DefaultNamespace,
		clock:     time.Now,
		logger:    zap.NewNop(),
		queueSize: DefaultWriteQueueSize,
	}
}

// WithStore backs the cache with a durable key-value store. Without it
// the cache runs on the memory tier alone.
func WithStore(store kv.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithNamespace sets the key prefix used in the durable store.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithClock sets the time source used for freshness checks. Tests use
// it to simulate elapsed time.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger for swallowed store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWriteQueueSize sets the durable-write queue capacity.
func WithWriteQueueSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// TieredCache shields an upstream API from redundant calls by serving
// recent responses from the memory tier, falling back to the durable
// tier, falling back to the caller's loader.
//
// Lookups promote durable hits into the memory tier with their original
// timestamps, so the follow-up lookup is pure memory. Writes land in
// the memory tier synchronously while the durable copy is written by a
// background worker; a failed or dropped durable write is logged and
// never surfaces to the caller. Overlapping Fetch calls for one key are
// not coalesced: each miss runs its own loader and the response that
// resolves last stays in the memory tier.
type TieredCache struct {
	memory     Tier
	persistent Tier
	logger     *zap.Logger
	now        func() time.Time

	writes        chan persistRequest
	pending       sync.WaitGroup
	writeFailures atomic.Uint64
	done          chan struct{}
	closeOnce     sync.Once
}

type persistRequest struct {
	key   string
	entry *Entry
}

// New creates a TieredCache.
func New(opts ...Option) *TieredCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	tc := &TieredCache{
		memory: NewMemoryTier(o.clock),
		logger: o.logger,
		now:    o.clock,
		writes: make(chan persistRequest, o.queueSize),
		done:   make(chan struct{}),
	}
	if o.store != nil {
		tc.persistent = NewPersistentTier(o.store, o.namespace, o.clock, o.logger)
	}

	go tc.persistLoop()
	return tc
}

// Get returns the cached payload for key if either tier holds a valid
// entry. A memory hit costs no I/O. A durable hit is promoted into the
// memory tier before returning. Store failures are logged and treated
// as misses; Get never calls upstream.
func (tc *TieredCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, ok, err := tc.memory.Get(ctx, key)
	if err != nil {
		tc.logger.Warn("memory tier lookup failed",
			zap.String("key", key),
			zap.Error(err))
	} else if ok {
		return entry.Data, true
	}

	if tc.persistent == nil {
		return nil, false
	}

	entry, ok, err = tc.persistent.Get(ctx, key)
	if err != nil {
		tc.logger.Warn("durable tier lookup failed",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	// Promote with the entry's own StoredAt and TTL so the remaining
	// freshness window carries over unchanged.
	if err := tc.memory.Set(ctx, key, entry); err != nil {
		tc.logger.Warn("memory tier promotion failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return entry.Data, true
}

// Set stores data under key. The memory tier is written synchronously;
// the durable write is queued for the background worker and its outcome
// never reaches the caller, since the memory tier already holds the
// entry for the rest of the session.
func (tc *TieredCache) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) {
	entry := &Entry{
		Data:     data,
		StoredAt: tc.now(),
		TTL:      ttl,
	}
	if err := tc.memory.Set(ctx, key, entry); err != nil {
		tc.logger.Warn("memory tier write failed",
			zap.String("key", key),
			zap.Error(err))
	}

	if tc.persistent == nil {
		return
	}
	tc.pending.Add(1)
	select {
	case tc.writes <- persistRequest{key: key, entry: entry}:
	default:
		tc.pending.Done()
		tc.writeFailures.Add(1)
		tc.logger.Warn("durable write queue full, dropping write",
			zap.String("key", key))
	}
}

// Fetch is the read-through entry point used by every call site. A hit
// in either tier returns without calling load. On a miss the loader
// runs, and only a successful result is cached; a loader error is
// returned untouched and nothing is written for key.
func (tc *TieredCache) Fetch(ctx context.Context, key string, ttl time.Duration, load Loader) (json.RawMessage, error) {
	if data, ok := tc.Get(ctx, key); ok {
		return data, nil
	}

	data, err := load(ctx)
	if err != nil {
		return nil, err
	}
	tc.Set(ctx, key, data, ttl)
	return data, nil
}

// ClearAll empties the memory tier and, unless memoryOnly is set, also
// removes every durable entry under the cache's namespace. Durable keys
// outside the namespace are never touched.
func (tc *TieredCache) ClearAll(ctx context.Context, memoryOnly bool) error {
	if err := tc.memory.Clear(ctx); err != nil {
		return err
	}
	if memoryOnly || tc.persistent == nil {
		return nil
	}
	// Queued writes would land after the sweep and resurrect entries.
	tc.Flush()
	return tc.persistent.Clear(ctx)
}

// Stats returns the counters of both tiers. Durable writes that were
// dropped or rejected count against the persistent tier.
func (tc *TieredCache) Stats() TieredStats {
	stats := TieredStats{Memory: tc.memory.Stats()}
	if tc.persistent != nil {
		stats.Persistent = tc.persistent.Stats()
		stats.Persistent.WriteFailures = tc.writeFailures.Load()
	}
	return stats
}

// TieredStats combines per-tier counters.
type TieredStats struct {
	Memory     Stats
	Persistent Stats
}

// Flush blocks until every queued durable write has completed. Tests
// and shutdown paths use it; request paths never need to.
func (tc *TieredCache) Flush() {
	tc.pending.Wait()
}

// Close flushes queued durable writes and stops the background worker.
// The cache must not be used after Close.
func (tc *TieredCache) Close() error {
	tc.closeOnce.Do(func() {
		tc.pending.Wait()
		close(tc.done)
	})
	return nil
}

// persistLoop is the background worker that applies queued durable
// writes. On shutdown it drains whatever is already queued before
// returning.
func (tc *TieredCache) persistLoop() {
	for {
		select {
		case req := <-tc.writes:
			tc.persistOne(req)
		case <-tc.done:
			for {
				select {
				case req := <-tc.writes:
					tc.persistOne(req)
				default:
					return
				}
			}
		}
	}
}

func (tc *TieredCache) persistOne(req persistRequest) {
	defer tc.pending.Done()
	if err := tc.persistent.Set(context.Background(), req.key, req.entry); err != nil {
		tc.writeFailures.Add(1)
		tc.logger.Warn("durable write failed",
			zap.String("key", req.key),
			zap.Error(err))
	}
}
