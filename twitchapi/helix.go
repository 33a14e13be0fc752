// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs:
// user id resolution, live status, chatter listing, and predictions.
// App-token endpoints use a cached client-credentials TokenSource; endpoints
// that Twitch restricts to user tokens take a UserTokenSource instead.
package twitchapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/riddlerrr/riddlebot/db"
)

const helixMaxRetries = 3

// UserTokenSource yields a user OAuth token (bot or broadcaster account).
type UserTokenSource interface {
	Get(ctx context.Context) (string, error)
}

// StaticUserToken is a UserTokenSource for a fixed token (tests, env-provided tokens).
type StaticUserToken string

func (t StaticUserToken) Get(context.Context) (string, error) { return string(t), nil }

// StoredUserToken reads the current access token for a provider from the
// oauth_tokens table on every call, so background refreshes are picked up
// without restarting. Reads go through the token store, which transparently
// decrypts rows written with encryption enabled.
type StoredUserToken struct {
	DB       *sql.DB
	Provider string
}

func (t *StoredUserToken) Get(ctx context.Context) (string, error) {
	access, _, _, _, err := db.GetOAuthToken(ctx, t.DB, t.Provider)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", fmt.Errorf("no stored token for provider %s", t.Provider)
	}
	return access, nil
}

// HelixClient provides the Helix methods the bot needs.
type HelixClient struct {
	AppTokenSource  *TokenSource
	UserTokenSource UserTokenSource
	ClientID        string
	HTTPClient      *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// doHelix performs an authenticated Helix request with retry on transient 5xx
// responses. On 401 the cached app token is invalidated and the request is
// retried once with a fresh token.
func (hc *HelixClient) doHelix(ctx context.Context, build func(token string) (*http.Request, error), token func(ctx context.Context) (string, error), invalidate func()) (*http.Response, error) {
	var resp *http.Response
	for attempt := 0; attempt < helixMaxRetries; attempt++ {
		tok, err := token(ctx)
		if err != nil {
			return nil, err
		}
		req, err := build(tok)
		if err != nil {
			return nil, err
		}
		resp, err = hc.http().Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 && attempt < helixMaxRetries-1 {
			drainClose(resp)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
			}
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized && invalidate != nil && attempt < helixMaxRetries-1 {
			drainClose(resp)
			invalidate()
			continue
		}
		return resp, nil
	}
	return resp, nil
}

func drainClose(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

func (hc *HelixClient) appToken(ctx context.Context) (string, error) {
	return hc.AppTokenSource.Get(ctx)
}

func (hc *HelixClient) userToken(ctx context.Context) (string, error) {
	if hc.UserTokenSource == nil {
		return "", fmt.Errorf("no user token source configured")
	}
	return hc.UserTokenSource.Get(ctx)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/users", nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("login", login)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)
		return req, nil
	}, hc.appToken, hc.AppTokenSource.Invalidate)
	if err != nil {
		return "", err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix users: unexpected status %s", resp.Status)
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// Stream is the subset of Helix stream metadata the bot cares about.
type Stream struct {
	Title     string
	StartedAt time.Time
}

// GetStreams returns the live streams for a channel login. An empty slice
// means the channel is offline.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/streams", nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("user_login", login)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)
		return req, nil
	}, hc.appToken, hc.AppTokenSource.Invalidate)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helix streams: unexpected status %s", resp.Status)
	}
	var body struct {
		Data []struct {
			Title     string    `json:"title"`
			StartedAt time.Time `json:"started_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make([]Stream, 0, len(body.Data))
	for _, s := range body.Data {
		out = append(out, Stream{Title: s.Title, StartedAt: s.StartedAt})
	}
	return out, nil
}

// UpdateChannelTitle sets the channel's stream title. Requires a broadcaster
// user token with the channel:manage:broadcast scope.
func (hc *HelixClient) UpdateChannelTitle(ctx context.Context, broadcasterID, title string) error {
	if broadcasterID == "" {
		return fmt.Errorf("broadcasterID empty")
	}
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return err
	}
	resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, "https://api.twitch.tv/helix/channels", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("broadcaster_id", broadcasterID)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, hc.userToken, nil)
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix channels: unexpected status %s", resp.Status)
	}
	return nil
}

// ChatterInfo is one entry from the Helix chatters endpoint.
type ChatterInfo struct {
	UserID    string `json:"user_id"`
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
}

// GetChatters lists everyone currently connected to the channel's chat,
// following pagination. Requires a user token for a moderator of the channel
// with the moderator:read:chatters scope.
func (hc *HelixClient) GetChatters(ctx context.Context, broadcasterID, moderatorID string) ([]ChatterInfo, error) {
	if broadcasterID == "" || moderatorID == "" {
		return nil, fmt.Errorf("broadcasterID/moderatorID empty")
	}
	var out []ChatterInfo
	after := ""
	for {
		resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/chat/chatters", nil)
			if err != nil {
				return nil, err
			}
			q := req.URL.Query()
			q.Set("broadcaster_id", broadcasterID)
			q.Set("moderator_id", moderatorID)
			q.Set("first", "1000")
			if after != "" {
				q.Set("after", after)
			}
			req.URL.RawQuery = q.Encode()
			req.Header.Set("Client-Id", hc.ClientID)
			req.Header.Set("Authorization", "Bearer "+tok)
			return req, nil
		}, hc.userToken, nil)
		if err != nil {
			return nil, err
		}
		var body struct {
			Data       []ChatterInfo `json:"data"`
			Pagination struct {
				Cursor string `json:"cursor"`
			} `json:"pagination"`
		}
		if resp.StatusCode != http.StatusOK {
			drainClose(resp)
			return nil, fmt.Errorf("helix chatters: unexpected status %s", resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			drainClose(resp)
			return nil, err
		}
		drainClose(resp)
		out = append(out, body.Data...)
		if body.Pagination.Cursor == "" {
			return out, nil
		}
		after = body.Pagination.Cursor
	}
}
