package gateways

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/schedly/push-gateway/internal/core/domain"
	"github.com/schedly/push-gateway/internal/core/ports"
	httpClient "github.com/schedly/push-gateway/pkg/http"
)

// WebhookReporter posts settled fan-out results to a caller-provided URL.
// Reports are idempotent on the receiving side, so the retrying client is fine
// here.
type WebhookReporter struct {
	conn *httpClient.Client
}

// NewWebhookReporter creates a webhook report gateway
func NewWebhookReporter(conn *httpClient.Client) ports.ReportGateway {
	return &WebhookReporter{conn: conn}
}

// Report sends the result as a json document to url
func (r *WebhookReporter) Report(ctx context.Context, url string, result *domain.NotificationResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := r.conn.Post(ctx, url, body); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
