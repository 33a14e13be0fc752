package watchtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riddlerrr/riddlebot/telemetry"
)

// Chatter is one account currently present in the channel's chat.
type Chatter struct {
	ID          string
	Login       string
	DisplayName string
}

// PresenceSource reports channel live status and the current chatter set.
// Both calls hit the network and may fail transiently.
type PresenceSource interface {
	IsLive(ctx context.Context) (bool, error)
	Chatters(ctx context.Context) ([]Chatter, error)
}

// Ledger is the subset of the viewer store the sampler writes to.
type Ledger interface {
	UpsertIncrement(ctx context.Context, viewerID, name string, mins int64) error
}

// Sampler drives the periodic presence-to-ledger reconciliation.
// Construct it explicitly; it holds no process-global state.
type Sampler struct {
	Presence PresenceSource
	Ledger   Ledger

	Channel     string // broadcaster login, never credited
	BotUsername string // the bot's own login, never credited
	Ignore      []string

	Warmup        time.Duration // delay before the first tick (default 5s)
	Interval      time.Duration // tick period (default 1m)
	MaxConcurrent int           // parallel upserts per tick (default 8)

	// Heartbeat, when set, receives a snapshot after every completed tick
	// (used to persist live status for /status). Errors there are the
	// callback's problem.
	Heartbeat func(ctx context.Context, live bool, credited int)
}

// Run blocks until ctx is cancelled. Ticks fire on a wall-clock ticker; each
// tick's work is dispatched to its own goroutine and never awaited, so a slow
// tick cannot delay the schedule. A failed tick yields zero credits and a log
// line, nothing more.
func (s *Sampler) Run(ctx context.Context) {
	warmup := s.Warmup
	if warmup <= 0 {
		warmup = 5 * time.Second
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(warmup):
	}

	slog.Info("watch time sampler started",
		slog.String("channel", s.Channel),
		slog.Duration("interval", interval),
		slog.String("component", "watchtime"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		go s.tick(ctx)
		select {
		case <-ctx.Done():
			slog.Info("watch time sampler stopped", slog.String("component", "watchtime"))
			return
		case <-ticker.C:
		}
	}
}

// tick wraps one reconciliation pass with metrics and the error boundary.
func (s *Sampler) tick(ctx context.Context) {
	telemetry.IncSamplerTick()
	start := time.Now()
	credited, err := s.SampleOnce(ctx)
	telemetry.ObserveTickDuration(time.Since(start))
	if err != nil {
		telemetry.IncSamplerTickError()
		slog.Warn("watch time tick failed",
			slog.Any("err", err),
			slog.String("channel", s.Channel),
			slog.String("component", "watchtime"))
		return
	}
	if credited > 0 {
		slog.Debug("watch time tick complete",
			slog.Int("credited", credited),
			slog.String("component", "watchtime"))
	}
}

// SampleOnce performs a single reconciliation: live check, chatter fetch,
// exclusion filtering, then concurrent per-viewer upserts. It returns the
// number of viewers credited. A single viewer's upsert failure does not stop
// the rest of the batch and is not reported as a tick error.
func (s *Sampler) SampleOnce(ctx context.Context) (int, error) {
	live, err := s.Presence.IsLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("live check: %w", err)
	}
	if !live {
		// Offline minutes are connection time, not watch time.
		if s.Heartbeat != nil {
			s.Heartbeat(ctx, false, 0)
		}
		return 0, nil
	}

	chatters, err := s.Presence.Chatters(ctx)
	if err != nil {
		return 0, fmt.Errorf("chatter list: %w", err)
	}
	telemetry.SetChatters(len(chatters))

	increment := s.incrementMins()
	limit := s.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}

	var credited atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, c := range chatters {
		if Excluded(c.Login, s.Channel, s.BotUsername, s.Ignore) {
			continue
		}
		g.Go(func() error {
			name := c.DisplayName
			if name == "" {
				name = c.Login
			}
			if err := s.Ledger.UpsertIncrement(gctx, c.ID, name, increment); err != nil {
				telemetry.IncUpsertFailure()
				slog.Warn("viewer credit failed",
					slog.String("viewer_id", c.ID),
					slog.String("login", c.Login),
					slog.Any("err", err),
					slog.String("component", "watchtime"))
				return nil // isolate: other viewers still get credited
			}
			credited.Add(1)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; Wait just joins the batch

	n := int(credited.Load())
	telemetry.AddCredits(n)
	if s.Heartbeat != nil {
		s.Heartbeat(ctx, true, n)
	}
	return n, nil
}

// incrementMins converts the tick period into credited minutes so that the
// counter keeps meaning "minutes observed present" if the interval changes.
// Sub-minute intervals still credit one minute; resolution below a minute is
// out of scope.
func (s *Sampler) incrementMins() int64 {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	mins := int64(interval / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
