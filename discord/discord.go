// Package discord posts chat messages to a Discord webhook so the channel's
// Twitch chat has a searchable mirror. Failures are logged and counted but
// never surfaced back into chat.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/riddlerrr/riddlebot/telemetry"
)

// Client posts webhook payloads. A zero WebhookURL disables forwarding.
type Client struct {
	WebhookURL string
	// HTTPClient overrides the default client (used in tests).
	HTTPClient *http.Client
}

func New(webhookURL string) *Client {
	return &Client{WebhookURL: webhookURL}
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool { return c != nil && c.WebhookURL != "" }

type webhookPayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Forward posts a single message under the given username. Discord renders
// the username as the webhook author, so chat lines keep their sender.
func (c *Client) Forward(ctx context.Context, username, content string) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(webhookPayload{Username: username, Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		telemetry.IncDiscordError()
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.IncDiscordError()
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	telemetry.IncDiscordForward()
	return nil
}
