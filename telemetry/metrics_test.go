package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestHelpersSafeWithoutInit(t *testing.T) {
	// None of these may panic before Init registers the collectors.
	IncSamplerTick()
	IncSamplerTickError()
	AddCredits(3)
	IncUpsertFailure()
	IncCommand()
	IncDiscordForward()
	IncDiscordError()
	IncReward()
	SetChatters(42)
	ObserveTickDuration(time.Second)
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register (panic) with promauto
	if SamplerTicks == nil || TickDuration == nil || ChattersGauge == nil {
		t.Fatalf("expected collectors registered after Init")
	}
	// Helpers route through the registered collectors without panicking.
	IncSamplerTick()
	AddCredits(1)
	SetChatters(7)
	ObserveTickDuration(250 * time.Millisecond)
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty ctx = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if l := LoggerWithCorr(ctx); l == nil {
		t.Errorf("LoggerWithCorr returned nil")
	}
}
