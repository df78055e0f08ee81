package health

import (
	"context"

	iRedis "github.com/schedly/push-gateway/internal/redis"
)

const (
	redis = "cache"
)

// Ping interface
type Ping interface {
	Ping(ctx context.Context) error
}

// Status struct
type Status struct {
	pingers map[string]Ping
}

// New returns a Health instance with the recognized pingers registered
func New(pingers ...Ping) *Status {
	m := make(map[string]Ping)

	for _, p := range pingers {
		switch t := p.(type) {
		case iRedis.Wrapper:
			m[redis] = t
		}
	}

	return &Status{m}
}

// Status returns whether each monitored dependency is reachable or not
func (h *Status) Status(ctx context.Context) map[string]bool {
	m := make(map[string]bool)

	for key, val := range h.pingers {
		m[key] = true
		if err := val.Ping(ctx); err != nil {
			m[key] = false
		}
	}

	return m
}
