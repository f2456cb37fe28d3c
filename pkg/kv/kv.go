// Package kv provides durable string key-value stores. A Store is the
// persistence boundary shared by the response cache's durable tier and the
// favourites journal: string keys, string values, survives process restarts.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key is missing from the store.
var ErrNotFound = errors.New("kv: key not found")

// Store defines the interface for persistent key-value storage backends.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key from the store. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key that starts with prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
