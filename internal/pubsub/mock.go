package pubsub

import (
	"context"
)

// Mock is a mock pubsub client that records published events
type Mock struct {
	published map[string][]Message
}

// NewMock returns a new mock pubsub client
func NewMock() *Mock {
	return &Mock{published: make(map[string][]Message)}
}

// Publish stores the event in memory
func (m *Mock) Publish(_ context.Context, topic string, payload Event) error {
	msg, err := payload.Marshal()
	if err != nil {
		return err
	}
	m.published[topic] = append(m.published[topic], msg)
	return nil
}

// Subscribe mock
func (m *Mock) Subscribe(_ context.Context, _ string, _ EventHandler) {}

// Published returns the messages published on a topic
func (m *Mock) Published(topic string) []Message {
	return m.published[topic]
}
