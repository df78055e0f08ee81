package gateways

import (
	"context"
	"net/http"
	"time"

	"github.com/schedly/push-gateway/internal/cache"
	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/core/ports"
	"github.com/schedly/push-gateway/internal/log"
	"github.com/schedly/push-gateway/pkg/webpush"
)

// authHeaderTTL keeps cached VAPID headers comfortably inside the token
// validity window.
const authHeaderTTL = webpush.TokenTTL - time.Hour

const authHeaderKeyPrefix = "vapid-auth:"

// PushGateway delivers encrypted web push messages. VAPID Authorization headers
// are cached per push service origin since they only depend on the origin and
// the signing keys.
type PushGateway struct {
	sender *webpush.Sender
	opts   webpush.Options
}

// NewPushGateway creates a push delivery gateway signing with keys. Pass a
// cache.NullCache to disable header caching. opts is applied to every send.
func NewPushGateway(keys webpush.VAPIDKeys, cachex cache.Cache, httpClient *http.Client, opts webpush.Options) ports.NotificationGateway {
	g := &PushGateway{opts: opts}
	g.sender = webpush.NewSender(keys,
		webpush.WithHTTPClient(httpClient),
		webpush.WithAuthorizer(cachedAuthorizer(keys, cachex)),
	)
	return g
}

// Notify encrypts payload for sub, posts it and maps the settled outcome. Every
// failure mode ends in a result, never a panic or a lost device, so fan-out
// callers can always account for all subscriptions.
func (g *PushGateway) Notify(ctx context.Context, sub domain.PushSubscription, payload []byte) domain.DeviceDeliveryResult {
	outcome, err := g.sender.Send(ctx, webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, payload, &g.opts)
	if err != nil {
		// Pre-flight fault: bad key material or a crypto/signing failure. The
		// message never reached the push service.
		log.Error(ctx, "push send aborted before dispatch", "err", err, "endpoint", sub.Endpoint)
		return domain.DeviceDeliveryResult{
			Endpoint: sub.Endpoint,
			Status:   domain.DeviceDeliveryStatusFailed,
			Reason:   err.Error(),
		}
	}

	result := domain.DeviceDeliveryResult{
		Endpoint:   sub.Endpoint,
		HTTPStatus: outcome.HTTPStatus,
		Reason:     outcome.Message,
	}
	switch outcome.Status {
	case webpush.OutcomeDelivered:
		result.Status = domain.DeviceDeliveryStatusDelivered
	case webpush.OutcomeExpired:
		log.Info(ctx, "subscription expired", "endpoint", sub.Endpoint, "status", outcome.HTTPStatus)
		result.Status = domain.DeviceDeliveryStatusExpired
	default:
		log.Warn(ctx, "push rejected", "endpoint", sub.Endpoint, "status", outcome.HTTPStatus, "reason", outcome.Message)
		result.Status = domain.DeviceDeliveryStatusFailed
	}
	return result
}

func cachedAuthorizer(keys webpush.VAPIDKeys, cachex cache.Cache) webpush.AuthorizeFn {
	return func(ctx context.Context, endpoint string) (string, error) {
		audience, err := webpush.Audience(endpoint)
		if err != nil {
			return "", err
		}

		key := authHeaderKeyPrefix + audience
		var header string
		if cachex.Get(ctx, key, &header) {
			return header, nil
		}

		header, err = webpush.BuildAuthorization(endpoint, keys, time.Now())
		if err != nil {
			return "", err
		}
		if err := cachex.Set(ctx, key, header, authHeaderTTL); err != nil {
			log.Warn(ctx, "cannot cache vapid header", "err", err, "audience", audience)
		}
		return header, nil
	}
}
