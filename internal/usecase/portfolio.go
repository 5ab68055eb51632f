package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// Portfolio owns the watchlist, price alerts and preferences documents. All
// writes replace the whole document, serialized by mu.
type Portfolio struct {
	store drepo.Store
	now   Clock
	log   *applogger.Logger
	mu    sync.Mutex
}

func NewPortfolio(store drepo.Store, now Clock, l *applogger.Logger) *Portfolio {
	return &Portfolio{store: store, now: now, log: l}
}

// Watchlist returns the saved watchlist, empty when nothing is stored.
func (p *Portfolio) Watchlist(ctx context.Context) []models.WatchlistItem {
	var items []models.WatchlistItem
	if !p.store.GetJSON(ctx, drepo.KeyWatchlist, &items) || items == nil {
		return []models.WatchlistItem{}
	}
	return items
}

// AddToWatchlist appends ticker. Name defaults to the ticker itself.
func (p *Portfolio) AddToWatchlist(ctx context.Context, ticker, name string) (models.WatchlistItem, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return models.WatchlistItem{}, fmt.Errorf("%w: empty ticker", models.ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = ticker
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.Watchlist(ctx)
	for _, it := range items {
		if it.Ticker == ticker {
			return models.WatchlistItem{}, fmt.Errorf("%s: %w", ticker, models.ErrDuplicateTicker)
		}
	}
	item := models.WatchlistItem{Ticker: ticker, Name: name, AddedAt: util.EpochMillis(p.now())}
	items = append(items, item)
	if err := p.store.SetJSON(ctx, drepo.KeyWatchlist, items); err != nil {
		return models.WatchlistItem{}, fmt.Errorf("save watchlist: %w", err)
	}
	p.log.Info("added to watchlist", applogger.String("ticker", ticker))
	return item, nil
}

// RemoveFromWatchlist drops ticker and its price alert.
func (p *Portfolio) RemoveFromWatchlist(ctx context.Context, ticker string) error {
	ticker = util.NormalizeTicker(ticker)

	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.Watchlist(ctx)
	kept := items[:0]
	for _, it := range items {
		if it.Ticker != ticker {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("watchlist %s: %w", ticker, models.ErrNotFound)
	}
	if err := p.store.SetJSON(ctx, drepo.KeyWatchlist, kept); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	if err := p.removeAlertLocked(ctx, ticker); err != nil {
		return err
	}
	p.log.Info("removed from watchlist", applogger.String("ticker", ticker))
	return nil
}

// Alerts returns every stored price alert, fired ones included.
func (p *Portfolio) Alerts(ctx context.Context) []models.PriceAlert {
	var alerts []models.PriceAlert
	if !p.store.GetJSON(ctx, drepo.KeyPriceAlerts, &alerts) || alerts == nil {
		return []models.PriceAlert{}
	}
	return alerts
}

// SetAlert stores alert as the active alert for its ticker, replacing any previous one.
func (p *Portfolio) SetAlert(ctx context.Context, alert models.PriceAlert) (models.PriceAlert, error) {
	alert.Ticker = util.NormalizeTicker(alert.Ticker)
	if alert.Ticker == "" || alert.TargetPrice <= 0 {
		return models.PriceAlert{}, fmt.Errorf("%w: alert needs a ticker and a positive target", models.ErrInvalidInput)
	}
	if alert.Condition != models.ConditionAbove && alert.Condition != models.ConditionBelow {
		return models.PriceAlert{}, fmt.Errorf("%w: condition %q", models.ErrInvalidInput, alert.Condition)
	}
	alert.IsActive = true

	p.mu.Lock()
	defer p.mu.Unlock()

	alerts := p.Alerts(ctx)
	next := make([]models.PriceAlert, 0, len(alerts)+1)
	for _, a := range alerts {
		if a.Ticker != alert.Ticker {
			next = append(next, a)
		}
	}
	next = append(next, alert)
	if err := p.store.SetJSON(ctx, drepo.KeyPriceAlerts, next); err != nil {
		return models.PriceAlert{}, fmt.Errorf("save alerts: %w", err)
	}
	p.log.Info("price alert set",
		applogger.String("ticker", alert.Ticker),
		applogger.Float64("target", alert.TargetPrice),
		applogger.String("condition", string(alert.Condition)),
	)
	return alert, nil
}

// RemoveAlert deletes ticker's alert.
func (p *Portfolio) RemoveAlert(ctx context.Context, ticker string) error {
	ticker = util.NormalizeTicker(ticker)

	p.mu.Lock()
	defer p.mu.Unlock()

	before := len(p.Alerts(ctx))
	if err := p.removeAlertLocked(ctx, ticker); err != nil {
		return err
	}
	if len(p.Alerts(ctx)) == before {
		return fmt.Errorf("alert %s: %w", ticker, models.ErrNotFound)
	}
	return nil
}

func (p *Portfolio) removeAlertLocked(ctx context.Context, ticker string) error {
	alerts := p.Alerts(ctx)
	kept := alerts[:0]
	for _, a := range alerts {
		if a.Ticker != ticker {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(alerts) {
		return nil
	}
	if err := p.store.SetJSON(ctx, drepo.KeyPriceAlerts, kept); err != nil {
		return fmt.Errorf("save alerts: %w", err)
	}
	return nil
}

// TriggerAlerts deactivates every active alert for ticker that price has
// crossed and returns the ones it deactivated.
func (p *Portfolio) TriggerAlerts(ctx context.Context, ticker string, crossed func(models.PriceAlert) bool) ([]models.PriceAlert, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	alerts := p.Alerts(ctx)
	var fired []models.PriceAlert
	for i := range alerts {
		a := &alerts[i]
		if a.Ticker != ticker || !a.IsActive || !crossed(*a) {
			continue
		}
		a.IsActive = false
		fired = append(fired, *a)
	}
	if len(fired) == 0 {
		return nil, nil
	}
	if err := p.store.SetJSON(ctx, drepo.KeyPriceAlerts, alerts); err != nil {
		return fired, fmt.Errorf("save alerts: %w", err)
	}
	return fired, nil
}

// Preferences returns the saved preferences or the defaults.
func (p *Portfolio) Preferences(ctx context.Context) models.UserPreferences {
	prefs := models.DefaultPreferences()
	if !p.store.GetJSON(ctx, drepo.KeyUserPreferences, &prefs) {
		return models.DefaultPreferences()
	}
	return prefs
}

// UpdatePreferences replaces the stored preferences wholesale.
func (p *Portfolio) UpdatePreferences(ctx context.Context, prefs models.UserPreferences) (models.UserPreferences, error) {
	prefs.Email = strings.TrimSpace(prefs.Email)
	prefs.Phone = strings.TrimSpace(prefs.Phone)
	prefs.CustomAPIKey = strings.TrimSpace(prefs.CustomAPIKey)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.SetJSON(ctx, drepo.KeyUserPreferences, prefs); err != nil {
		return models.UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	p.log.Info("preferences updated",
		applogger.Bool("browser_push", prefs.EnableBrowserPush),
		applogger.Bool("monitoring", prefs.EnableBackgroundMonitoring),
		applogger.Bool("only_high_impact", prefs.OnlyHighImpact),
		applogger.Bool("custom_key", prefs.CustomAPIKey != ""),
	)
	return prefs, nil
}
