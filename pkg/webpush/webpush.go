// Package webpush sends Web Push messages (RFC 8030) with VAPID authentication
// (RFC 8292) and aes128gcm payload encryption (RFC 8188/8291), built directly on
// the platform crypto primitives.
package webpush

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultTTL is the retention hint sent to the push service, in seconds.
const DefaultTTL = 86400

// Subscription is a browser-issued device registration with a push service.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Keys contains the subscriber key material needed to encrypt towards a device.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Options tune the headers of a push request.
type Options struct {
	TTL     int    // seconds the push service may retain the message, DefaultTTL when 0
	Urgency string // very-low, low, normal or high; omitted when empty
	Topic   string // replacement key for coalescing undelivered messages; omitted when empty
}

// OutcomeStatus classifies the result of one send attempt.
type OutcomeStatus string

const (
	// OutcomeDelivered means the push service accepted the message.
	OutcomeDelivered OutcomeStatus = "delivered"
	// OutcomeExpired means the subscription is permanently gone and should be discarded.
	OutcomeExpired OutcomeStatus = "expired"
	// OutcomeFailed covers any other rejection or transport error. The core does
	// not retry; callers may at their own layer.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the delivery result for a single subscription.
type Outcome struct {
	Status     OutcomeStatus
	HTTPStatus int    // response status, 0 on transport errors
	Message    string // response body or transport error text for failures
}

// AuthorizeFn produces the Authorization header value for an endpoint. The
// default builds a fresh VAPID header per send; callers may wrap it to cache
// headers per origin within the token validity window.
type AuthorizeFn func(ctx context.Context, endpoint string) (string, error)

// Sender dispatches encrypted push messages. It is safe for concurrent use:
// every send draws its own ephemeral key material and the VAPID keys are never
// mutated.
type Sender struct {
	keys       VAPIDKeys
	httpClient *http.Client
	authorize  AuthorizeFn
	now        func() time.Time
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the HTTP client. Callers needing bounded latency
// should supply a client with a timeout.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) { s.httpClient = c }
}

// WithAuthorizer replaces the Authorization header source.
func WithAuthorizer(fn AuthorizeFn) SenderOption {
	return func(s *Sender) { s.authorize = fn }
}

// WithClock replaces the time source used for JWT expiries.
func WithClock(now func() time.Time) SenderOption {
	return func(s *Sender) { s.now = now }
}

// NewSender returns a Sender signing with the given VAPID keys.
func NewSender(keys VAPIDKeys, opts ...SenderOption) *Sender {
	s := &Sender{
		keys:       keys,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.authorize == nil {
		s.authorize = func(_ context.Context, endpoint string) (string, error) {
			return BuildAuthorization(endpoint, s.keys, s.now())
		}
	}
	return s
}

// Send encrypts payload for one subscription, posts it to the subscription
// endpoint and classifies the response. A non-nil error means the message never
// left the process (malformed key material, crypto or signing failure); push
// service rejections and transport errors are reported through the Outcome so
// that fan-out callers can settle every subscription.
func (s *Sender) Send(ctx context.Context, sub Subscription, payload []byte, opts *Options) (Outcome, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(payload) > MaxPayloadSize {
		return Outcome{}, ErrPayloadTooLarge
	}

	record, err := Encrypt(payload, sub.Keys.P256dh, sub.Keys.Auth)
	if err != nil {
		return Outcome{}, err
	}

	authorization, err := s.authorize(ctx, sub.Endpoint)
	if err != nil {
		return Outcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(record))
	if err != nil {
		return Outcome{}, err
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(ttl))
	if opts.Urgency != "" {
		req.Header.Set("Urgency", opts.Urgency)
	}
	if opts.Topic != "" {
		req.Header.Set("Topic", opts.Topic)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Message: err.Error()}, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return classify(resp), nil
}

func classify(resp *http.Response) Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Outcome{Status: OutcomeDelivered, HTTPStatus: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return Outcome{Status: OutcomeExpired, HTTPStatus: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Outcome{
			Status:     OutcomeFailed,
			HTTPStatus: resp.StatusCode,
			Message:    string(body),
		}
	}
}
