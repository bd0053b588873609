package cache

import (
	"context"
	"sync"
)

// MemStore is a thread-safe in-memory Store. It backs tests and cache-less
// runs; nothing survives the process.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]Entry)}
}

// Get retrieves the entry for key.
func (s *MemStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok, nil
}

// Put stores the entry for key.
func (s *MemStore) Put(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Delete removes the entry for key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *MemStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Purge removes all entries.
func (s *MemStore) Purge(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }
