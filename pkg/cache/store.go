package cache

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the key does not exist in the store.
	ErrNotFound = errors.New("cache: key not found")

	// ErrQuotaExceeded indicates the store rejected a write because its
	// storage budget is exhausted.
	ErrQuotaExceeded = errors.New("cache: storage quota exceeded")
)

// Store is a durable key-value backend for the cache manager.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the raw value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the raw value for key. Returns ErrQuotaExceeded when the
	// backend cannot accept the write for capacity reasons.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
