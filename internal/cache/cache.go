package cache

import (
	"context"
	"time"
)

// ForEver is a cache duration to keep items on cache "forever"
const ForEver = 0

// Cache interface propose a cache interface with some basic methods
type Cache interface {
	// Set sets a value in the cache with a expiration time.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get returns true and fills value if the key is found in the cache.
	// value must be passed as reference as the cached entry will be stored there
	Get(ctx context.Context, key string, value any) bool
	// Exists returns true if the key exists in the cache
	Exists(ctx context.Context, key string) bool
	// Delete removes an entry from the cache
	Delete(ctx context.Context, key string) error
}
