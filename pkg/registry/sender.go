package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
)

// ErrEndpointGone means the push service no longer knows the endpoint;
// the mirror should be marked inactive.
var ErrEndpointGone = errors.New("push endpoint is gone")

// PushSender delivers an encrypted payload to one mirror.
type PushSender interface {
	Send(ctx context.Context, m *Mirror, payload []byte) error
}

// WebPushSender sends VAPID-signed web push messages.
type WebPushSender struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
}

// NewWebPushSender creates a sender from the server's VAPID identity.
func NewWebPushSender(publicKey, privateKey, subscriber string) (*WebPushSender, error) {
	if publicKey == "" || privateKey == "" || subscriber == "" {
		return nil, fmt.Errorf("VAPID configuration required: public key, private key, and subscriber contact")
	}
	return &WebPushSender{
		vapidPublicKey:  publicKey,
		vapidPrivateKey: privateKey,
		subscriber:      subscriber,
	}, nil
}

// Send pushes payload to the mirror's endpoint. Returns ErrEndpointGone
// when the push service reports the subscription expired or unknown.
func (s *WebPushSender) Send(ctx context.Context, m *Mirror, payload []byte) error {
	sub := &webpush.Subscription{
		Endpoint: m.Endpoint,
		Keys: webpush.Keys{
			P256dh: m.Keys.P256dh,
			Auth:   m.Keys.Auth,
		},
	}

	options := &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             86400, // 24 hours
		Urgency:         webpush.UrgencyNormal,
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, options)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("Warning: failed to close response body: %v\n", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrEndpointGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}
	return nil
}
