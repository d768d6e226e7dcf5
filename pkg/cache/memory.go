package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with an optional byte quota.
// It backs unit tests and single-binary deployments that run without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	maxBytes int
	used     int
}

// NewMemoryStore creates a memory store. maxBytes <= 0 means unlimited.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

// Get returns the stored value for key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set writes value under key. Returns ErrQuotaExceeded when the write
// would push the store past its byte quota.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used - len(s.data[key]) + len(value)
	if s.maxBytes > 0 && next > s.maxBytes {
		return ErrQuotaExceeded
	}

	s.data[key] = value
	s.used = next
	return nil
}

// Delete removes key if present.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		s.used -= len(old)
		delete(s.data, key)
	}
	return nil
}

// Keys lists all keys starting with prefix.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
