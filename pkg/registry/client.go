package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/penhub/pushkit/pkg/platform"
)

// Client talks to the registry over its HTTP contract. Register and
// Deregister are fire-and-forget from the caller's perspective: the
// subscription manager commits local state before calling and only logs
// the returned error.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a registry client. token is sent as a bearer header
// on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   http.DefaultClient,
	}
}

// Register mirrors a subscription on the registry.
func (c *Client) Register(ctx context.Context, sub platform.Subscription) error {
	return c.post(ctx, "/push/subscribe", SubscribeRequest{
		Endpoint: sub.Endpoint,
		Keys:     sub.Keys,
	})
}

// Deregister drops the mirror for endpoint.
func (c *Client) Deregister(ctx context.Context, endpoint string) error {
	return c.post(ctx, "/push/unsubscribe", UnsubscribeRequest{Endpoint: endpoint})
}

// TrackClose reports a dismissed notification. Best-effort; no response
// contract beyond the status code.
func (c *Client) TrackClose(ctx context.Context, notificationID string, ts time.Time) error {
	return c.post(ctx, "/notifications/track-close", TrackCloseRequest{
		NotificationID: notificationID,
		Timestamp:      ts,
	})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("registry rejected %s with status %d", path, resp.StatusCode)
	}
	return nil
}
