// Package api is the http shell of the push gateway. It validates requests,
// hands them to the notification service or the pubsub queue and shapes the
// responses. No delivery logic lives here.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/schedly/push-gateway/internal/config"
	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/core/event"
	"github.com/schedly/push-gateway/internal/core/ports"
	"github.com/schedly/push-gateway/internal/health"
	"github.com/schedly/push-gateway/internal/log"
	"github.com/schedly/push-gateway/internal/pubsub"
)

// Server implements the http handlers of the gateway
type Server struct {
	cfg                 *config.Configuration
	notificationService ports.NotificationService
	publisher           pubsub.Publisher
	health              *health.Status
}

// NewServer creates the api server
func NewServer(cfg *config.Configuration, notificationService ports.NotificationService, publisher pubsub.Publisher, healthStatus *health.Status) *Server {
	return &Server{
		cfg:                 cfg,
		notificationService: notificationService,
		publisher:           publisher,
		health:              healthStatus,
	}
}

// Attach mounts the gateway routes on mux
func (s *Server) Attach(mux *chi.Mux) {
	mux.Post("/v1/notifications", s.sendNotification)
	mux.Get("/status", s.status)
}

// SendNotificationRequest is the body of POST /v1/notifications
type SendNotificationRequest struct {
	Payload       domain.NotificationPayload `json:"payload"`
	Subscriptions []domain.PushSubscription  `json:"subscriptions"`
	WebhookURL    string                     `json:"webhookUrl,omitempty"`
}

// QueuedResponse is returned when delivery runs through the worker
type QueuedResponse struct {
	NotificationID uuid.UUID `json:"notificationId"`
	Status         string    `json:"status"`
}

func (s *Server) sendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse request body")
		return
	}
	if req.Payload.Title == "" {
		writeError(w, http.StatusBadRequest, "payload title is required")
		return
	}
	if len(req.Subscriptions) == 0 {
		writeError(w, http.StatusBadRequest, "at least one subscription is required")
		return
	}
	for _, sub := range req.Subscriptions {
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			writeError(w, http.StatusBadRequest, "subscriptions need endpoint, p256dh and auth")
			return
		}
	}

	notification := domain.Notification{
		ID:            uuid.New(),
		Payload:       req.Payload,
		Subscriptions: req.Subscriptions,
		WebhookURL:    req.WebhookURL,
	}

	if s.cfg.Push.AsyncDelivery {
		ev := event.NotificationRequestedEvent{Notification: notification}
		if err := s.publisher.Publish(ctx, event.NotificationRequested, &ev); err != nil {
			log.Error(ctx, "cannot queue notification", "err", err, "id", notification.ID)
			writeError(w, http.StatusInternalServerError, "cannot queue notification")
			return
		}
		writeJSON(w, http.StatusAccepted, QueuedResponse{NotificationID: notification.ID, Status: "queued"})
		return
	}

	result, err := s.notificationService.Send(ctx, notification)
	if err != nil {
		log.Error(ctx, "cannot send notification", "err", err, "id", notification.ID)
		writeError(w, http.StatusInternalServerError, "cannot send notification")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Status(r.Context()))
}
