// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SamplerTicks      prometheus.Counter
	SamplerTickErrors prometheus.Counter
	CreditsApplied    prometheus.Counter
	UpsertFailures    prometheus.Counter
	CommandsHandled   prometheus.Counter
	DiscordForwards   prometheus.Counter
	DiscordErrors     prometheus.Counter
	RewardsRedeemed   prometheus.Counter

	// Histograms (seconds)
	TickDuration prometheus.Observer

	// Gauges
	ChattersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SamplerTicks = promauto.NewCounter(prometheus.CounterOpts{Name: "watchtime_ticks_total", Help: "Number of watch time sampler ticks started"})
		SamplerTickErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "watchtime_tick_errors_total", Help: "Number of sampler ticks that failed"})
		CreditsApplied = promauto.NewCounter(prometheus.CounterOpts{Name: "watchtime_credits_total", Help: "Number of per-viewer watch time credits applied"})
		UpsertFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "watchtime_upsert_failures_total", Help: "Number of per-viewer ledger upserts that failed"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_commands_total", Help: "Number of chat commands handled"})
		DiscordForwards = promauto.NewCounter(prometheus.CounterOpts{Name: "discord_forwards_total", Help: "Number of chat messages forwarded to Discord"})
		DiscordErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "discord_forward_errors_total", Help: "Number of failed Discord webhook posts"})
		RewardsRedeemed = promauto.NewCounter(prometheus.CounterOpts{Name: "channel_point_rewards_total", Help: "Number of channel point redemptions handled"})
		TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "watchtime_tick_duration_seconds", Help: "Sampler tick duration seconds", Buckets: prometheus.DefBuckets})
		ChattersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "watchtime_chatters", Help: "Chatters present at the last live tick"})
	})
}

// The helpers below tolerate an uninitialized registry so library code and
// tests never need Init.

func IncSamplerTick() {
	if SamplerTicks != nil {
		SamplerTicks.Inc()
	}
}

func IncSamplerTickError() {
	if SamplerTickErrors != nil {
		SamplerTickErrors.Inc()
	}
}

func AddCredits(n int) {
	if CreditsApplied != nil && n > 0 {
		CreditsApplied.Add(float64(n))
	}
}

func IncUpsertFailure() {
	if UpsertFailures != nil {
		UpsertFailures.Inc()
	}
}

func IncCommand() {
	if CommandsHandled != nil {
		CommandsHandled.Inc()
	}
}

func IncDiscordForward() {
	if DiscordForwards != nil {
		DiscordForwards.Inc()
	}
}

func IncDiscordError() {
	if DiscordErrors != nil {
		DiscordErrors.Inc()
	}
}

func IncReward() {
	if RewardsRedeemed != nil {
		RewardsRedeemed.Inc()
	}
}

func SetChatters(n int) {
	if ChattersGauge != nil {
		ChattersGauge.Set(float64(n))
	}
}

func ObserveTickDuration(d time.Duration) {
	if TickDuration != nil {
		TickDuration.Observe(d.Seconds())
	}
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
