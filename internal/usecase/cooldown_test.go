package usecase

import (
	"context"
	"testing"
	"time"

	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

func TestCooldownGateWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t, clock)
	gate := NewCooldownGate(store, 5*time.Minute, clock.Now, applogger.NewNop(), drepo.NopMetrics{})

	if gate.IsActive(ctx) {
		t.Fatalf("gate should start open")
	}
	gate.Trip(ctx, "test")
	if !gate.IsActive(ctx) {
		t.Fatalf("gate should be closed right after a trip")
	}
	clock.Advance(4*time.Minute + 59*time.Second)
	if got := gate.Remaining(ctx); got != time.Second {
		t.Fatalf("unexpected remaining %v", got)
	}
	clock.Advance(time.Second)
	if gate.IsActive(ctx) {
		t.Fatalf("gate should reopen after exactly five minutes")
	}
}

func TestCooldownGateMarkerFormat(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t, clock)
	gate := NewCooldownGate(store, 5*time.Minute, clock.Now, applogger.NewNop(), drepo.NopMetrics{})

	gate.Trip(ctx, "test")
	raw, ok := store.GetString(ctx, drepo.KeyQuotaCooldown)
	if !ok || raw != util.FormatEpochMillis(clock.Now()) {
		t.Fatalf("unexpected marker %q", raw)
	}

	gate.Clear(ctx)
	if _, ok := store.GetString(ctx, drepo.KeyQuotaCooldown); ok || gate.IsActive(ctx) {
		t.Fatalf("clear should remove the marker")
	}
}

func TestCooldownGateIgnoresGarbageMarker(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t, clock)
	gate := NewCooldownGate(store, 5*time.Minute, clock.Now, applogger.NewNop(), drepo.NopMetrics{})

	if err := store.SetString(ctx, drepo.KeyQuotaCooldown, "not-a-number"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if gate.IsActive(ctx) {
		t.Fatalf("unparseable marker must read as inactive")
	}
}

func TestCooldownGateMillisecondEdges(t *testing.T) {
	cases := []struct {
		after  time.Duration
		active bool
	}{
		{time.Millisecond, true},
		{299999 * time.Millisecond, true},
		{300000 * time.Millisecond, false},
		{300001 * time.Millisecond, false},
	}
	for _, tc := range cases {
		ctx := context.Background()
		clock := newFakeClock()
		store := newTestStore(t, clock)
		gate := NewCooldownGate(store, 5*time.Minute, clock.Now, applogger.NewNop(), drepo.NopMetrics{})

		gate.Trip(ctx, "test")
		clock.Advance(tc.after)
		if got := gate.IsActive(ctx); got != tc.active {
			t.Fatalf("after %v: active = %v, want %v", tc.after, got, tc.active)
		}
	}
}
