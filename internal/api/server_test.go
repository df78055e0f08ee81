package api

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedly/push-gateway/internal/cache"
	"github.com/schedly/push-gateway/internal/config"
	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/core/event"
	"github.com/schedly/push-gateway/internal/core/services"
	"github.com/schedly/push-gateway/internal/gateways"
	"github.com/schedly/push-gateway/internal/health"
	"github.com/schedly/push-gateway/internal/kms"
	"github.com/schedly/push-gateway/internal/pubsub"
	"github.com/schedly/push-gateway/pkg/webpush"
)

func testServer(t *testing.T, async bool, ps pubsub.Publisher) *chi.Mux {
	t.Helper()

	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	provider := kms.NewLocalKeyProvider(public, private, "mailto:ops@schedly.example")
	keys, err := provider.VAPIDKeys(context.Background())
	require.NoError(t, err)

	cfg := &config.Configuration{
		ServerPort: 3002,
		Push:       config.Push{AsyncDelivery: async},
	}

	gateway := gateways.NewPushGateway(keys, &cache.NullCache{}, http.DefaultClient, webpush.Options{})
	svc := services.NewNotification(gateway, nil)

	server := NewServer(cfg, svc, ps, health.New())
	mux := chi.NewRouter()
	server.Attach(mux)
	return mux
}

func testSubscriptionJSON(t *testing.T, endpoint string) domain.PushSubscription {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return domain.PushSubscription{
		Endpoint: endpoint,
		P256dh:   webpush.EncodeBase64URL(priv.PublicKey().Bytes()),
		Auth:     webpush.EncodeBase64URL(secret),
	}
}

func postNotification(t *testing.T, mux *chi.Mux, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSendNotificationInline(t *testing.T) {
	pushSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer pushSrv.Close()

	mux := testServer(t, false, pubsub.NewMock())
	rec := postNotification(t, mux, SendNotificationRequest{
		Payload:       domain.NotificationPayload{Title: "Booking confirmed"},
		Subscriptions: []domain.PushSubscription{testSubscriptionJSON(t, pushSrv.URL)},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.NotificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 0, result.Expired)
}

func TestSendNotificationQueued(t *testing.T) {
	ps := pubsub.NewMock()
	mux := testServer(t, true, ps)

	rec := postNotification(t, mux, SendNotificationRequest{
		Payload:       domain.NotificationPayload{Title: "Reminder"},
		Subscriptions: []domain.PushSubscription{testSubscriptionJSON(t, "https://push.example/ep")},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp QueuedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)

	published := ps.Published(event.NotificationRequested)
	require.Len(t, published, 1)
	var ev event.NotificationRequestedEvent
	require.NoError(t, ev.Unmarshal(published[0]))
	assert.Equal(t, resp.NotificationID, ev.Notification.ID)
	assert.Equal(t, "Reminder", ev.Notification.Payload.Title)
}

func TestSendNotificationValidation(t *testing.T) {
	mux := testServer(t, false, pubsub.NewMock())

	t.Run("bad json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		rec := postNotification(t, mux, SendNotificationRequest{
			Subscriptions: []domain.PushSubscription{testSubscriptionJSON(t, "https://push.example/ep")},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no subscriptions", func(t *testing.T) {
		rec := postNotification(t, mux, SendNotificationRequest{
			Payload: domain.NotificationPayload{Title: "t"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("incomplete subscription", func(t *testing.T) {
		rec := postNotification(t, mux, SendNotificationRequest{
			Payload:       domain.NotificationPayload{Title: "t"},
			Subscriptions: []domain.PushSubscription{{Endpoint: "https://push.example/ep"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatus(t *testing.T) {
	mux := testServer(t, false, pubsub.NewMock())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
