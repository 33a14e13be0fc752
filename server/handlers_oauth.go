package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/riddlerrr/riddlebot/config"
	dbpkg "github.com/riddlerrr/riddlebot/db"
	"github.com/riddlerrr/riddlebot/twitchapi"
)

// oauthState pins a pending authorize flow to the provider row it will fill.
type oauthState struct {
	provider string
	expires  time.Time
}

func (h *Handlers) addOAuthState(state, provider string, expires time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	h.states[state] = oauthState{provider: provider, expires: expires}
}

func (h *Handlers) takeOAuthState(state string) (string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	st, ok := h.states[state]
	if !ok {
		return "", false
	}
	delete(h.states, state)
	if time.Now().After(st.expires) {
		return "", false
	}
	return st.provider, true
}

// HandleTwitchOAuthStart initiates the Twitch OAuth flow by redirecting to Twitch.
// ?provider= selects which token row the callback fills: twitch-bot (default,
// the chat/chatters account) or twitch-user (the broadcaster account).
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load() // ignore error; minimal usage
	if cfg.TwitchClientID == "" || cfg.TwitchRedirectURI == "" {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + TWITCH_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = "twitch-bot"
	}
	if provider != "twitch-bot" && provider != "twitch-user" {
		http.Error(w, "unknown provider (want twitch-bot or twitch-user)", http.StatusBadRequest)
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", http.StatusInternalServerError)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, provider, time.Now().Add(10*time.Minute))
	authURL, err := twitchapi.BuildAuthorizeURL(cfg.TwitchClientID, cfg.TwitchRedirectURI, cfg.TwitchScopes, st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleTwitchOAuthCallback handles the OAuth callback from Twitch and stores
// the tokens under the provider the state was issued for.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load()
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	provider, ok := h.takeOAuthState(st)
	if !ok {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	res, err := twitchapi.ExchangeAuthCode(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, code, cfg.TwitchRedirectURI)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// persist via dbpkg.UpsertOAuthToken (handles encryption)
	if err := dbpkg.UpsertOAuthToken(ctx, h.db, provider, res.AccessToken, res.RefreshToken,
		twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " ")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "provider": provider, "scopes": res.Scope, "expires_in": res.ExpiresIn}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
