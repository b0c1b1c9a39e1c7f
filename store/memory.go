package store

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory Store. Used in tests and for ephemeral
// deployments without a Redis backend.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string // insertion order for deterministic List results
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		return errors.New("memory store: entry ID must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	if filter.Empty() {
		return 0, ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, id := range s.order {
		entry := s.entries[id]
		if filter.Matches(&entry) {
			count++
		}
	}
	return count, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, filter Filter, limit int) ([]Entry, error) {
	if filter.Empty() {
		return nil, ErrEmptyFilter
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Entry
	for _, id := range s.order {
		entry := s.entries[id]
		if filter.Matches(&entry) {
			matched = append(matched, entry)
			if len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, filter Filter) (int, error) {
	if filter.Empty() {
		return 0, ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	remaining := s.order[:0]
	for _, id := range s.order {
		entry := s.entries[id]
		if filter.Matches(&entry) {
			delete(s.entries, id)
			deleted++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	return deleted, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the total number of entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Verify MemoryStore implements the Store interface.
var _ Store = (*MemoryStore)(nil)
