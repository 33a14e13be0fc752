package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/riddlerrr/riddlebot/db"
	"github.com/riddlerrr/riddlebot/viewer"
)

var started = time.Now()

// KV keys written by the sampler heartbeat and read back by /status.
const (
	KVLastTick     = "watchtime_last_tick"
	KVStreamLive   = "stream_live"
	KVLastCredited = "watchtime_last_credited"
)

// Handlers carries the dependencies shared by the HTTP handlers.
type Handlers struct {
	db      *sql.DB
	viewers *viewer.Store

	stateMu sync.Mutex
	states  map[string]oauthState
}

func NewHandlers(dbx *sql.DB) *Handlers {
	return &Handlers{db: dbx, viewers: viewer.NewStore(dbx), states: make(map[string]oauthState)}
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks:
// database reachability and the viewers table being migrated.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			var n int
			if err := h.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM viewers").Scan(&n); err != nil {
				return fmt.Errorf("viewers table: %w", err)
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a snapshot of the sampler heartbeat and ledger size.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lastTick, err := db.GetKV(ctx, h.db, KVLastTick)
	if err != nil {
		http.Error(w, "status lookup failed", http.StatusInternalServerError)
		return
	}
	live, _ := db.GetKV(ctx, h.db, KVStreamLive)
	credited, _ := db.GetKV(ctx, h.db, KVLastCredited)
	count, err := h.viewers.Count(ctx)
	if err != nil {
		http.Error(w, "viewer count failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime":        time.Since(started).Round(time.Second).String(),
		"last_tick":     lastTick,
		"stream_live":   live == "1",
		"last_credited": credited,
		"viewers":       count,
	})
}

// HandleLeaderboard returns the top watch-time records as JSON.
// Query param "limit" caps at 100 and defaults to 5.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	top, err := h.viewers.Top(r.Context(), limit)
	if err != nil {
		http.Error(w, "leaderboard lookup failed", http.StatusInternalServerError)
		return
	}
	type entry struct {
		Rank int `json:"rank"`
		viewer.Record
		WatchTime string `json:"watch_time"`
	}
	out := make([]entry, 0, len(top))
	for i, rec := range top {
		out = append(out, entry{
			Rank:      i + 1,
			Record:    rec,
			WatchTime: viewer.FormatWatchTime(rec.WatchTimeMins),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
