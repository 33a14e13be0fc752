// Package riddleapi fetches random riddles from riddles-api.vercel.app.
// Twitch chat messages cap out around 500 characters, so riddles whose
// question or answer would not fit alongside the framing text are rejected
// and a new one is drawn.
package riddleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://riddles-api.vercel.app"

// MaxLen bounds riddle and answer length so the framed chat message fits.
const MaxLen = 439

type Riddle struct {
	Riddle string `json:"riddle"`
	Answer string `json:"answer"`
}

type Client struct {
	// BaseURL overrides the API endpoint (used in tests).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// MaxAttempts bounds redraws for oversized riddles. Defaults to 5.
	MaxAttempts int
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Random fetches a riddle, redrawing until both the question and answer fit
// within MaxLen or the attempt budget runs out.
func (c *Client) Random(ctx context.Context) (*Riddle, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	for i := 0; i < attempts; i++ {
		r, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(r.Riddle) <= MaxLen && len(r.Answer) <= MaxLen {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no riddle under %d chars after %d attempts", MaxLen, attempts)
}

func (c *Client) fetch(ctx context.Context) (*Riddle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/random", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch riddle: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("riddle api status %d", resp.StatusCode)
	}
	var r Riddle
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode riddle: %w", err)
	}
	return &r, nil
}
