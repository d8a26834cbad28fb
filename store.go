package minllm

import (
	"sort"
	"sync"
)

// Store is a mutable, concurrency-safe key/value container shared by every
// node invocation within one run. Nodes communicate exclusively through it:
// prep phases read, post phases write. A Get that races a Set on the same
// key returns either the old or the new value, never a torn one. No
// multi-key atomicity is provided; callers needing it must coordinate
// externally.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]any)}
}

// Get retrieves a value by key.
// Returns the value and true if present, or nil and false if not.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString retrieves a value as a string.
// Returns empty string if absent or not a string.
func (s *Store) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Set stores a value under key, replacing any previous value.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Remove deletes a key. Returns true if the key was present.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

// Contains reports whether key is present.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot returns a shallow copy of the store's contents.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Clone returns a new independent store with a shallow copy of the contents.
// Values themselves are shared, not copied.
func (s *Store) Clone() *Store {
	return &Store{data: s.Snapshot()}
}
