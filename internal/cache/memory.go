package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	expiresAt time.Time
	payload   []byte
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a process local Cache backed by a TTL map. Entries are
// evicted lazily on access; call CleanEvery to also sweep them in the
// background.
type MemoryCache struct {
	data sync.Map
}

// NewMemoryCache returns an empty in memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Set stores a value in the cache for the given ttl. ForEver keeps it until
// deleted.
func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{payload: payload}
	if ttl != ForEver {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.data.Store(key, entry)
	return nil
}

// Get returns true and fills value if key exists and has not expired
func (m *MemoryCache) Get(_ context.Context, key string, value any) bool {
	raw, ok := m.data.Load(key)
	if !ok {
		return false
	}
	entry := raw.(memoryEntry)
	if entry.expired(time.Now()) {
		m.data.Delete(key)
		return false
	}
	return json.Unmarshal(entry.payload, value) == nil
}

// Exists tells whether a live entry is stored under key
func (m *MemoryCache) Exists(_ context.Context, key string) bool {
	raw, ok := m.data.Load(key)
	if !ok {
		return false
	}
	if raw.(memoryEntry).expired(time.Now()) {
		m.data.Delete(key)
		return false
	}
	return true
}

// Delete removes the entry under key
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// CleanEvery sweeps expired entries on the given period until ctx is done
func (m *MemoryCache) CleanEvery(ctx context.Context, period time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.data.Range(func(k, v any) bool {
					if v.(memoryEntry).expired(now) {
						m.data.Delete(k)
					}
					return true
				})
			}
		}
	}()
}
