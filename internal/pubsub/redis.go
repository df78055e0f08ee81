package pubsub

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// LoggerFn is a function that logs a message with some extra parameters
type LoggerFn func(ctx context.Context, msg string, args ...any)

// RedisClient is a pubsub client based on redis
type RedisClient struct {
	conn *redis.Client
	log  LoggerFn
}

// NewRedis returns a redis pubsub client
func NewRedis(rdb *redis.Client) *RedisClient {
	return &RedisClient{
		conn: rdb,
		log:  func(_ context.Context, _ string, _ ...any) {},
	}
}

// WithLogger sets a logger function. Subscriber callbacks run in their own
// goroutine, so errors can only be surfaced this way.
func (rdb *RedisClient) WithLogger(fn LoggerFn) *RedisClient {
	rdb.log = fn
	return rdb
}

// Publish publishes a new topic payload
func (rdb *RedisClient) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return err
	}
	return rdb.conn.Publish(ctx, topic, []byte(payload)).Err()
}

// Subscribe adds a callback for a topic. The callback runs in a separate goroutine
// for each received message until ctx is cancelled. A panicking callback is
// recovered and logged so other subscribers keep running.
func (rdb *RedisClient) Subscribe(ctx context.Context, topic string, callback EventHandler) {
	sub := rdb.conn.Subscribe(ctx, topic)
	go func() {
		for {
			select {
			case event := <-sub.Channel():
				if event.Channel != topic {
					rdb.log(ctx, "pubsub: msg channel != topic", "channel", event.Channel, "topic", topic)
					continue
				}
				rdb.run(ctx, callback, Message(event.Payload))

			case <-ctx.Done():
				if err := sub.Close(); err != nil {
					rdb.log(ctx, "pubsub: closing subscription", "err", err)
				}
				return
			}
		}
	}()
}

func (rdb *RedisClient) run(ctx context.Context, callback EventHandler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			rdb.log(ctx, "pubsub: recovered panic in callback", "recovered", r)
		}
	}()
	if err := callback(ctx, msg); err != nil {
		rdb.log(ctx, "pubsub: executing callback function", "err", err)
	}
}
