package btclient

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryEntries = 256

// MemoryCache is an in-process Cache. The client uses one when no
// persistent cache is configured, so re-sorting or paging a view does not
// refetch it. Expired entries are dropped on access and by Sweep; when
// full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

func (m *MemoryCache) GetResponse(_ context.Context, key string, now time.Time) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.body, true, nil
}

func (m *MemoryCache) PutResponse(_ context.Context, key string, body []byte, ttl time.Duration, now time.Time) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.sweepLocked(now)
		if len(m.entries) >= m.maxEntries {
			m.evictSoonestLocked()
		}
	}
	m.entries[key] = memoryEntry{body: append([]byte(nil), body...), expires: now.Add(ttl)}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *MemoryCache) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryCache) evictSoonestLocked() {
	var (
		victim  string
		soonest time.Time
	)
	for k, e := range m.entries {
		if victim == "" || e.expires.Before(soonest) {
			victim, soonest = k, e.expires
		}
	}
	delete(m.entries, victim)
}
