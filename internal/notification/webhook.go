package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const webhookClientTimeout = 30 * time.Second

// WebhookChannel POSTs the content as JSON to a configured endpoint.
// Any 2xx response counts as delivered.
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhookChannel creates a webhook channel for the given endpoint.
func NewWebhookChannel(name, url string) *WebhookChannel {
	return &WebhookChannel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: webhookClientTimeout},
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, content Content) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("webhook %q: failed to marshal content: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook %q: failed to build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %q: request failed: %w", c.name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %q: unexpected status %d", c.name, resp.StatusCode)
	}
	return nil
}
