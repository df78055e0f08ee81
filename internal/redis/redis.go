package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// Wrapper wraps a redis client adding a Ping method suitable for health checks.
type Wrapper struct {
	*redis.Client
}

// Open opens a connection to redis and returns it
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := Status(ctx, rdb); err != nil {
		return nil, err
	}
	return rdb, nil
}

// Status returns nil if redis status is ok. Otherwise a redis status err
func Status(ctx context.Context, rdb *redis.Client) error {
	if pingCmd := rdb.Ping(ctx); pingCmd.Err() != nil {
		return pingCmd.Err()
	}
	return nil
}

// NewWrapper wraps a redis client
func NewWrapper(rdb *redis.Client) Wrapper {
	return Wrapper{rdb}
}

// Ping checks the connection
func (w Wrapper) Ping(ctx context.Context) error {
	return Status(ctx, w.Client)
}
