// Package event holds the payloads exchanged through the pubsub between the API
// and the notification worker.
package event

import (
	"encoding/json"

	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/pubsub"
)

// NotificationRequested is the topic for fan-out requests
const NotificationRequested = "notification.requested"

// NotificationRequestedEvent asks the worker to fan a notification out
type NotificationRequestedEvent struct {
	Notification domain.Notification `json:"notification"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *NotificationRequestedEvent) Marshal() (pubsub.Message, error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *NotificationRequestedEvent) Unmarshal(msg pubsub.Message) error {
	return json.Unmarshal(msg, &ev)
}
