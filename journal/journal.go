// Package journal persists the user's favourites as a single JSON
// document in the durable key-value store. It lives outside the cache
// namespace, so clearing the cache never touches the journal.
package journal

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

// DefaultKey is the storage key holding the favourites document.
const DefaultKey = "filmzimmer:journal:favourites"

// Entry is one favourite title with an optional free-text note.
type Entry struct {
	MediaType   string    `json:"media_type"`
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	Note        string    `json:"note,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Journal is a favourites list over a durable store. Every operation
// is a load-modify-save of the whole document; a corrupt document is
// treated as an empty journal rather than an error.
type Journal struct {
	store  kv.Store
	key    string
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Journal.
type Option func(*Journal)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(j *Journal) {
		j.key = key
	}
}

// WithLogger sets the logger for parse failures.
func WithLogger(logger *zap.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
	}
}

// WithClock injects the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New creates a Journal over the given store.
func New(store kv.Store, opts ...Option) *Journal {
	j := &Journal{
		store:  store,
		key:    DefaultKey,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// List returns all favourites, newest first.
func (j *Journal) List(ctx context.Context) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load(ctx)
}

// Add stores a favourite. Adding a title that is already present
// updates its fields but keeps the original added-at timestamp; new
// entries with a zero AddedAt are stamped with the current time and
// placed first.
func (j *Journal) Add(ctx context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}

	for i, existing := range entries {
		if existing.MediaType == entry.MediaType && existing.ID == entry.ID {
			entry.AddedAt = existing.AddedAt
			entries[i] = entry
			return j.save(ctx, entries)
		}
	}

	if entry.AddedAt.IsZero() {
		entry.AddedAt = j.now()
	}
	entries = append([]Entry{entry}, entries...)
	return j.save(ctx, entries)
}

// Remove deletes a favourite; removing an absent one is a no-op.
func (j *Journal) Remove(ctx context.Context, mediaType string, id int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, entry := range entries {
		if entry.MediaType == mediaType && entry.ID == id {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == len(entries) {
		return nil
	}
	return j.save(ctx, kept)
}

// Has reports whether a title is in the journal.
func (j *Journal) Has(ctx context.Context, mediaType string, id int) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.MediaType == mediaType && entry.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Clear removes the whole journal.
func (j *Journal) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Delete(ctx, j.key); err != nil {
		return fmt.Errorf("journal: clearing: %w", err)
	}
	return nil
}

func (j *Journal) load(ctx context.Context) ([]Entry, error) {
	raw, err := j.store.Get(ctx, j.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: loading: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		j.logger.Warn("journal document corrupt, starting empty",
			zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

func (j *Journal) save(ctx context.Context, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("journal: encoding: %w", err)
	}
	if err := j.store.Set(ctx, j.key, string(raw)); err != nil {
		return fmt.Errorf("journal: saving: %w", err)
	}
	return nil
}
