package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/core/event"
	"github.com/schedly/push-gateway/internal/core/ports"
	"github.com/schedly/push-gateway/internal/log"
	"github.com/schedly/push-gateway/internal/pubsub"
)

// ErrNoSubscriptions is returned when a notification carries no devices to send to
var ErrNoSubscriptions = errors.New("notification has no subscriptions")

type notification struct {
	gateway  ports.NotificationGateway
	reporter ports.ReportGateway
}

// NewNotification returns a Notification Service
func NewNotification(gateway ports.NotificationGateway, reporter ports.ReportGateway) ports.NotificationService {
	return &notification{
		gateway:  gateway,
		reporter: reporter,
	}
}

// Send fans the notification out to every subscription concurrently and waits
// until all sends settle. A rejected device never aborts the others; the result
// accounts for every subscription exactly once.
func (n *notification) Send(ctx context.Context, notif domain.Notification) (*domain.NotificationResult, error) {
	if len(notif.Subscriptions) == 0 {
		return nil, ErrNoSubscriptions
	}

	payload, err := json.Marshal(notif.Payload)
	if err != nil {
		return nil, err
	}

	result := &domain.NotificationResult{
		NotificationID: notif.ID,
		Devices:        make([]domain.DeviceDeliveryResult, len(notif.Subscriptions)),
	}

	var wg sync.WaitGroup
	for i, sub := range notif.Subscriptions {
		wg.Add(1)
		go func(i int, sub domain.PushSubscription) {
			defer wg.Done()
			result.Devices[i] = n.gateway.Notify(ctx, sub, payload)
		}(i, sub)
	}
	wg.Wait()

	result.Settle()
	log.Info(ctx, "notification settled",
		"id", notif.ID,
		"delivered", result.Delivered,
		"expired", result.Expired,
		"failed", result.Failed)

	if notif.WebhookURL != "" && n.reporter != nil {
		if err := n.reporter.Report(ctx, notif.WebhookURL, result); err != nil {
			log.Warn(ctx, "cannot deliver webhook report", "err", err, "id", notif.ID, "url", notif.WebhookURL)
		}
	}

	return result, nil
}

// HandleRequested is the pubsub callback for notification.requested events
func (n *notification) HandleRequested(ctx context.Context, msg pubsub.Message) error {
	var ev event.NotificationRequestedEvent
	if err := ev.Unmarshal(msg); err != nil {
		return errors.New("handleRequested: unexpected data type")
	}

	_, err := n.Send(ctx, ev.Notification)
	return err
}
