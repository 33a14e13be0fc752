// Package spotify wraps the handful of Spotify Web API calls the song-request
// reward and the !song command need. Authentication reuses a long-lived user
// refresh token through golang.org/x/oauth2, which transparently renews the
// access token.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.spotify.com"
	tokenURL       = "https://accounts.spotify.com/api/token"
)

// ErrNotFound indicates the linked track does not exist or the link could not
// be parsed into a track id.
var ErrNotFound = fmt.Errorf("spotify: track not found")

type Track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// Artist returns the primary artist name, or empty when none is listed.
func (t *Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

type Client struct {
	// BaseURL overrides the API endpoint (used in tests).
	BaseURL    string
	HTTPClient *http.Client
	PlaylistID string
}

// New builds a client that authenticates with the stored refresh token. The
// oauth2 transport caches and renews access tokens as needed.
func New(ctx context.Context, clientID, clientSecret, refreshToken, playlistID string) *Client {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return &Client{
		HTTPClient: oauth2.NewClient(ctx, ts),
		PlaylistID: playlistID,
	}
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
	return &http.Client{Timeout: 15 * time.Second}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http().Do(req)
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ParseTrackID extracts the track id from an open.spotify.com link or a
// spotify:track: URI. Returns ErrNotFound for anything unparseable.
func ParseTrackID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrNotFound
	}
	if id, ok := strings.CutPrefix(link, "spotify:track:"); ok && id != "" {
		return id, nil
	}
	// Last path segment with the query stripped, e.g.
	// https://open.spotify.com/track/<id>?si=...
	seg := link[strings.LastIndex(link, "/")+1:]
	if i := strings.IndexByte(seg, '?'); i >= 0 {
		seg = seg[:i]
	}
	if seg == "" {
		return "", ErrNotFound
	}
	return seg, nil
}

// CurrentlyPlaying returns the track the user is listening to, or nil when
// playback is stopped.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*Track, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/me/player/currently-playing", nil)
	if err != nil {
		return nil, fmt.Errorf("currently playing: %w", err)
	}
	defer drainClose(resp)
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("currently playing status %d", resp.StatusCode)
	}
	var out struct {
		Item *Track `json:"item"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode currently playing: %w", err)
	}
	return out.Item, nil
}

// GetTrack looks up track metadata by id.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/tracks/"+url.PathEscape(trackID), nil)
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	defer drainClose(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("get track status %d", resp.StatusCode)
	}
	var t Track
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	return &t, nil
}

// AddToQueue appends a track to the active playback queue.
func (c *Client) AddToQueue(ctx context.Context, trackURI string) error {
	q := url.Values{"uri": {trackURI}}
	resp, err := c.do(ctx, http.MethodPost, "/v1/me/player/queue?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("add to queue: %w", err)
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("add to queue status %d", resp.StatusCode)
	}
	return nil
}

// AddToPlaylist appends a track to the configured requests playlist. A client
// with no playlist configured skips silently.
func (c *Client) AddToPlaylist(ctx context.Context, trackURI string) error {
	if c.PlaylistID == "" {
		return nil
	}
	body, err := json.Marshal(map[string][]string{"uris": {trackURI}})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/playlists/"+url.PathEscape(c.PlaylistID)+"/tracks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("add to playlist: %w", err)
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("add to playlist status %d", resp.StatusCode)
	}
	return nil
}
