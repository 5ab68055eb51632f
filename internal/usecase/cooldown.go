package usecase

import (
	"context"
	"time"

	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// CooldownGate is the global quota cooldown. While active, entry points must
// not call the remote API. The marker is a raw epoch-ms string so that it
// stays readable by older clients sharing the store.
type CooldownGate struct {
	store   drepo.Store
	window  time.Duration
	now     Clock
	log     *applogger.Logger
	metrics drepo.Metrics
}

// NewCooldownGate creates a gate with the given window (5 minutes in production).
func NewCooldownGate(store drepo.Store, window time.Duration, now Clock, l *applogger.Logger, m drepo.Metrics) *CooldownGate {
	return &CooldownGate{store: store, window: window, now: now, log: l, metrics: m}
}

func (g *CooldownGate) marker(ctx context.Context) (time.Time, bool) {
	raw, ok := g.store.GetString(ctx, drepo.KeyQuotaCooldown)
	if !ok {
		return time.Time{}, false
	}
	return util.ParseEpochMillis(raw)
}

// IsActive reports whether a quota failure happened less than window ago.
// A missing or unreadable marker means inactive.
func (g *CooldownGate) IsActive(ctx context.Context) bool {
	return g.Remaining(ctx) > 0
}

// Remaining is how long the gate stays closed, zero when open.
func (g *CooldownGate) Remaining(ctx context.Context) time.Duration {
	at, ok := g.marker(ctx)
	if !ok {
		return 0
	}
	elapsed := g.now().Sub(at)
	if elapsed >= g.window {
		return 0
	}
	if elapsed < 0 {
		// marker from the future (clock skew between writers); honour the full window
		return g.window
	}
	return g.window - elapsed
}

// Trip closes the gate starting now.
func (g *CooldownGate) Trip(ctx context.Context, origin string) {
	if err := g.store.SetString(ctx, drepo.KeyQuotaCooldown, util.FormatEpochMillis(g.now())); err != nil {
		g.log.Error("failed to persist cooldown marker", applogger.String("origin", origin), applogger.Error(err))
		return
	}
	g.metrics.RecordCooldownTrip(origin)
	g.log.Warn("quota cooldown started",
		applogger.String("origin", origin),
		applogger.Duration("window_ms", g.window),
	)
}

// Clear opens the gate. Used after a successful remote fetch.
func (g *CooldownGate) Clear(ctx context.Context) {
	if err := g.store.Delete(ctx, drepo.KeyQuotaCooldown); err != nil {
		g.log.Warn("failed to clear cooldown marker", applogger.Error(err))
	}
}
