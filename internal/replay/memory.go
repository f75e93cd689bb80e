package replay

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxEntries bounds the in-memory store when no size is configured.
const DefaultMaxEntries = 100_000

// MemoryStore keeps seen keys in a process-local expiring LRU. It does not
// survive restarts and is not shared between replicas.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.LRU[string, time.Time]
	now   func() time.Time
}

// NewMemoryStore returns a MemoryStore holding at most maxEntries keys, each
// for at most maxTTL.
func NewMemoryStore(maxEntries int, maxTTL time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		cache: lru.NewLRU[string, time.Time](maxEntries, nil, maxTTL),
		now:   time.Now,
	}
}

// MarkSeen implements Store. The value stored is the per-key expiry so a
// shorter ttl than the cache-wide one is honoured.
func (m *MemoryStore) MarkSeen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.cache.Get(key); ok && now.Before(expires) {
		return false, nil
	}
	m.cache.Add(key, now.Add(ttl))
	return true, nil
}

// Forget implements Store.
func (m *MemoryStore) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(key)
	return nil
}

// Len returns the number of tracked keys, expired ones included until purged.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
