package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DeviceDeliveryStatus is the per-device outcome of a push fan-out
type DeviceDeliveryStatus string

const (
	// DeviceDeliveryStatusDelivered is for pushes accepted by the push service
	DeviceDeliveryStatusDelivered DeviceDeliveryStatus = "delivered"
	// DeviceDeliveryStatusExpired is for subscriptions the push service reports gone.
	// The caller should discard the subscription.
	DeviceDeliveryStatusExpired DeviceDeliveryStatus = "expired"
	// DeviceDeliveryStatusFailed is for pushes rejected for any other reason
	DeviceDeliveryStatusFailed DeviceDeliveryStatus = "failed"
)

// PushSubscription is a browser-issued device registration: the push service
// endpoint plus the subscriber key material. Immutable once issued.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// NotificationPayload is the plaintext message shown on the device. Data
// carries free-form routing metadata for the service worker.
type NotificationPayload struct {
	Title string          `json:"title"`
	Body  string          `json:"body,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Notification is one logical message fanned out to every subscription of a user
type Notification struct {
	ID            uuid.UUID           `json:"id"`
	Payload       NotificationPayload `json:"payload"`
	Subscriptions []PushSubscription  `json:"subscriptions"`
	WebhookURL    string              `json:"webhookUrl,omitempty"`
}

// DeviceDeliveryResult is the outcome for one subscription of a fan-out
type DeviceDeliveryResult struct {
	Endpoint   string               `json:"endpoint"`
	Status     DeviceDeliveryStatus `json:"status"`
	HTTPStatus int                  `json:"httpStatus,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

// NotificationResult aggregates the settled outcomes of a fan-out
type NotificationResult struct {
	NotificationID uuid.UUID              `json:"notificationId"`
	Devices        []DeviceDeliveryResult `json:"devices"`
	Delivered      int                    `json:"delivered"`
	Expired        int                    `json:"expired"`
	Failed         int                    `json:"failed"`
}

// Settle recomputes the summary counters from the device results
func (r *NotificationResult) Settle() {
	r.Delivered, r.Expired, r.Failed = 0, 0, 0
	for _, d := range r.Devices {
		switch d.Status {
		case DeviceDeliveryStatusDelivered:
			r.Delivered++
		case DeviceDeliveryStatusExpired:
			r.Expired++
		default:
			r.Failed++
		}
	}
}

// ExpiredEndpoints returns the endpoints whose subscriptions should be discarded
func (r *NotificationResult) ExpiredEndpoints() []string {
	var gone []string
	for _, d := range r.Devices {
		if d.Status == DeviceDeliveryStatusExpired {
			gone = append(gone, d.Endpoint)
		}
	}
	return gone
}
