package testutil

import (
	"sync"
	"time"
)

// MockStore is an in-memory cache store that counts lookups.
type MockStore struct {
	mu     sync.Mutex
	items  map[string][]byte
	Hits   int
	Misses int
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{items: make(map[string][]byte)}
}

// Get returns the stored value for key.
func (m *MockStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		m.Hits++
	} else {
		m.Misses++
	}
	return v, ok
}

// Set stores value under key. The ttl is ignored.
func (m *MockStore) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

// Delete removes key.
func (m *MockStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Keys returns the stored keys.
func (m *MockStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}
