package ports

import (
	"context"

	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/pubsub"
)

// NotificationGateway delivers one encrypted push message to one subscription
type NotificationGateway interface {
	Notify(ctx context.Context, sub domain.PushSubscription, payload []byte) domain.DeviceDeliveryResult
}

// NotificationService fans a notification out to all its subscriptions
type NotificationService interface {
	Send(ctx context.Context, notification domain.Notification) (*domain.NotificationResult, error)
	HandleRequested(ctx context.Context, msg pubsub.Message) error
}

// ReportGateway publishes a settled fan-out result to an external webhook
type ReportGateway interface {
	Report(ctx context.Context, url string, result *domain.NotificationResult) error
}
