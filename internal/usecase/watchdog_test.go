package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

type scriptedChecker struct {
	tickers []string
	result  models.ChangeCheck
	err     error
	panics  bool
}

func (c *scriptedChecker) CheckSignificantChange(_ context.Context, ticker string) (models.ChangeCheck, error) {
	if c.panics {
		panic("boom")
	}
	c.tickers = append(c.tickers, ticker)
	return c.result, c.err
}

type watchdogFixture struct {
	h       *harness
	checker *scriptedChecker
	visible bool
	dog     *Watchdog
}

func newWatchdogFixture(t *testing.T) *watchdogFixture {
	t.Helper()
	ctx := context.Background()
	f := &watchdogFixture{h: newHarness(t), checker: &scriptedChecker{}, visible: true}

	prefs := models.DefaultPreferences()
	prefs.EnableBackgroundMonitoring = true
	if _, err := f.h.portfolio.UpdatePreferences(ctx, prefs); err != nil {
		t.Fatalf("prefs: %v", err)
	}
	for _, tk := range []string{"AAPL", "MSFT", "NVDA"} {
		if _, err := f.h.portfolio.AddToWatchlist(ctx, tk, ""); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	f.dog = NewWatchdog(f.checker, f.h.alerts, f.h.portfolio, f.h.gate,
		func() bool { return f.visible },
		WatchdogConfig{Interval: time.Minute, Settle: 2 * time.Second, Random: func(n int) int { return n - 1 }},
		f.h.sleeper.Sleep, applogger.NewNop(), drepo.NopMetrics{})
	return f
}

func TestWatchdogTickScansOneTicker(t *testing.T) {
	f := newWatchdogFixture(t)
	f.checker.result = models.ChangeCheck{HasChange: true, AlertMessage: "Earnings", Sentiment: models.SentimentBullish, ImpactLevel: models.ImpactHigh}

	if got := f.dog.Tick(context.Background()); got != TickScanned {
		t.Fatalf("unexpected outcome %s", got)
	}
	if len(f.checker.tickers) != 1 || f.checker.tickers[0] != "NVDA" {
		t.Fatalf("expected exactly one scan of the picked ticker, got %v", f.checker.tickers)
	}
	if len(f.h.sink.sent) != 1 || f.h.sink.sent[0].Message != "IMPACT ALERT (NVDA): Earnings" {
		t.Fatalf("unexpected notifications %+v", f.h.sink.sent)
	}
	if waits := f.h.sleeper.Waits(); len(waits) != 1 || waits[0] != 2*time.Second {
		t.Fatalf("expected settle delay, got %v", waits)
	}
	if f.dog.State() != WatchdogIdle {
		t.Fatalf("watchdog should be idle after a tick")
	}
}

func TestWatchdogSkips(t *testing.T) {
	ctx := context.Background()

	f := newWatchdogFixture(t)
	f.visible = false
	if got := f.dog.Tick(ctx); got != TickHidden {
		t.Fatalf("expected hidden, got %s", got)
	}

	f = newWatchdogFixture(t)
	f.h.gate.Trip(ctx, "test")
	if got := f.dog.Tick(ctx); got != TickCooldown {
		t.Fatalf("expected cooldown, got %s", got)
	}

	f = newWatchdogFixture(t)
	if _, err := f.h.portfolio.UpdatePreferences(ctx, models.DefaultPreferences()); err != nil {
		t.Fatalf("prefs: %v", err)
	}
	if got := f.dog.Tick(ctx); got != TickDisabled {
		t.Fatalf("expected disabled, got %s", got)
	}

	f = newWatchdogFixture(t)
	for _, tk := range []string{"AAPL", "MSFT", "NVDA"} {
		if err := f.h.portfolio.RemoveFromWatchlist(ctx, tk); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if got := f.dog.Tick(ctx); got != TickEmpty {
		t.Fatalf("expected empty, got %s", got)
	}
	if len(f.checker.tickers) != 0 {
		t.Fatalf("skipped ticks must not scan")
	}
}

func TestWatchdogSwallowsFailures(t *testing.T) {
	f := newWatchdogFixture(t)
	f.checker.err = errors.New("timeout")
	if got := f.dog.Tick(context.Background()); got != TickFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if f.dog.State() != WatchdogIdle {
		t.Fatalf("failed tick must return to idle")
	}
}

func TestWatchdogRecoversPanics(t *testing.T) {
	f := newWatchdogFixture(t)
	f.checker.panics = true
	if got := f.dog.Tick(context.Background()); got != TickFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if f.dog.State() != WatchdogIdle {
		t.Fatalf("panicking tick must return to idle")
	}
}

func TestWatchdogStartStop(t *testing.T) {
	f := newWatchdogFixture(t)
	f.dog.Start(context.Background())
	f.dog.Start(context.Background())
	f.dog.Stop()
	f.dog.Stop()
}
