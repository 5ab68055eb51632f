package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

type WatchdogState string

const (
	WatchdogIdle     WatchdogState = "idle"
	WatchdogScanning WatchdogState = "scanning"
)

// ChangeChecker asks the remote side about significant changes for a ticker.
type ChangeChecker interface {
	CheckSignificantChange(ctx context.Context, ticker string) (models.ChangeCheck, error)
}

// ChangeHandler routes a change report to notifications.
type ChangeHandler interface {
	HandleChange(ctx context.Context, ticker string, change models.ChangeCheck) (*models.Notification, bool)
}

// WatchlistSource reads the watchlist and the preferences that gate monitoring.
type WatchlistSource interface {
	Watchlist(ctx context.Context) []models.WatchlistItem
	Preferences(ctx context.Context) models.UserPreferences
}

// TickOutcome describes what a single watchdog tick did.
type TickOutcome string

const (
	TickScanned     TickOutcome = "scanned"
	TickDisabled    TickOutcome = "disabled"
	TickEmpty       TickOutcome = "empty_watchlist"
	TickHidden      TickOutcome = "hidden"
	TickCooldown    TickOutcome = "cooldown"
	TickOverlapping TickOutcome = "overlapping"
	TickFailed      TickOutcome = "failed"
)

// WatchdogConfig holds the watchdog timings. Zero Random uses math/rand.
type WatchdogConfig struct {
	Interval time.Duration
	Settle   time.Duration
	Random   func(n int) int
}

// Watchdog periodically checks one random watchlist ticker for significant
// changes while the host page is in the foreground.
type Watchdog struct {
	checker ChangeChecker
	handler ChangeHandler
	source  WatchlistSource
	gate    *CooldownGate
	visible func() bool
	cfg     WatchdogConfig
	sleep   Sleeper
	log     *applogger.Logger
	metrics drepo.Metrics

	mu     sync.Mutex
	state  WatchdogState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatchdog(
	checker ChangeChecker,
	handler ChangeHandler,
	source WatchlistSource,
	gate *CooldownGate,
	visible func() bool,
	cfg WatchdogConfig,
	sleep Sleeper,
	l *applogger.Logger,
	m drepo.Metrics,
) *Watchdog {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Random == nil {
		cfg.Random = rand.Intn
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Watchdog{
		checker: checker,
		handler: handler,
		source:  source,
		gate:    gate,
		visible: visible,
		cfg:     cfg,
		sleep:   sleep,
		log:     l,
		metrics: m,
		state:   WatchdogIdle,
	}
}

func (w *Watchdog) State() WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start runs the tick loop on its own goroutine until ctx ends or Stop is called.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	w.log.Info("watchdog started", applogger.Duration("interval_ms", w.cfg.Interval))
	go w.loop(ctx, done)
}

// Stop ends the loop and waits for an in-progress tick to return.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.log.Info("watchdog stopped")
}

func (w *Watchdog) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one watchdog pass. It never panics and never returns an error:
// failures are logged and reported through the outcome.
func (w *Watchdog) Tick(ctx context.Context) (outcome TickOutcome) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("watchdog tick panicked", applogger.String("panic", fmt.Sprint(r)))
			w.setState(WatchdogIdle)
			outcome = TickFailed
		}
	}()

	prefs := w.source.Preferences(ctx)
	if !prefs.EnableBackgroundMonitoring {
		return TickDisabled
	}
	items := w.source.Watchlist(ctx)
	if len(items) == 0 {
		return TickEmpty
	}
	if w.visible != nil && !w.visible() {
		w.log.Debug("watchdog skipped, host hidden")
		return TickHidden
	}
	if w.gate.IsActive(ctx) {
		w.log.Debug("watchdog skipped, cooldown active")
		return TickCooldown
	}

	w.mu.Lock()
	if w.state == WatchdogScanning {
		w.mu.Unlock()
		return TickOverlapping
	}
	w.state = WatchdogScanning
	w.mu.Unlock()
	defer w.setState(WatchdogIdle)

	ticker := items[w.cfg.Random(len(items))].Ticker
	w.log.Info("watchdog scanning", applogger.String("ticker", ticker))

	start := time.Now()
	change, err := w.checker.CheckSignificantChange(ctx, ticker)
	w.metrics.RecordLatency("watchdog_scan", time.Since(start).Seconds())
	if err != nil {
		// rate-limit failures have already tripped the gate
		w.log.Warn("watchdog scan failed",
			applogger.String("ticker", ticker),
			applogger.Bool("rate_limited", IsRateLimit(err)),
			applogger.Bool("cooldown", errors.Is(err, models.ErrCooldownActive)),
			applogger.Error(err),
		)
		return TickFailed
	}

	if n, sent := w.handler.HandleChange(ctx, ticker, change); sent {
		w.log.Info("watchdog raised alert", applogger.String("ticker", ticker), applogger.String("id", n.ID))
	}

	// settle before going back to idle; cancellation only shortens it
	_ = w.sleep(ctx, w.cfg.Settle)
	return TickScanned
}

func (w *Watchdog) setState(s WatchdogState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
