package usecase

import (
	"context"
	"errors"
	"testing"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
)

func TestWatchlistAddRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	item, err := h.portfolio.AddToWatchlist(ctx, " nvda ", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Ticker != "NVDA" || item.Name != "NVDA" || item.AddedAt == 0 {
		t.Fatalf("unexpected item %+v", item)
	}
	if _, err := h.portfolio.AddToWatchlist(ctx, "NVDA", "Nvidia"); !errors.Is(err, models.ErrDuplicateTicker) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := h.portfolio.AddToWatchlist(ctx, "  ", ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if got := h.portfolio.Watchlist(ctx); len(got) != 1 {
		t.Fatalf("unexpected watchlist %+v", got)
	}
}

func TestWatchlistRemoveAlsoRemovesAlert(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.portfolio.AddToWatchlist(ctx, "AAPL", "Apple"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.portfolio.AddToWatchlist(ctx, "MSFT", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.portfolio.SetAlert(ctx, models.PriceAlert{Ticker: "AAPL", TargetPrice: 200, Condition: models.ConditionAbove}); err != nil {
		t.Fatalf("set alert: %v", err)
	}

	if err := h.portfolio.RemoveFromWatchlist(ctx, "aapl"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if wl := h.portfolio.Watchlist(ctx); len(wl) != 1 || wl[0].Ticker != "MSFT" {
		t.Fatalf("unexpected watchlist %+v", wl)
	}
	if alerts := h.portfolio.Alerts(ctx); len(alerts) != 0 {
		t.Fatalf("alert should be removed with the ticker: %+v", alerts)
	}
	if err := h.portfolio.RemoveFromWatchlist(ctx, "AAPL"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetAlertReplacesPerTicker(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.portfolio.SetAlert(ctx, models.PriceAlert{Ticker: "TSLA", TargetPrice: 300, Condition: models.ConditionAbove}); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	h.alerts.CheckPrice(ctx, "TSLA", 301)

	got, err := h.portfolio.SetAlert(ctx, models.PriceAlert{Ticker: "tsla", TargetPrice: 250, Condition: models.ConditionBelow})
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if !got.IsActive {
		t.Fatalf("new alert must be active")
	}
	alerts := h.portfolio.Alerts(ctx)
	if len(alerts) != 1 || alerts[0].TargetPrice != 250 || !alerts[0].IsActive {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestSetAlertValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	bad := []models.PriceAlert{
		{Ticker: "", TargetPrice: 1, Condition: models.ConditionAbove},
		{Ticker: "AAPL", TargetPrice: 0, Condition: models.ConditionAbove},
		{Ticker: "AAPL", TargetPrice: 1, Condition: "sideways"},
	}
	for _, a := range bad {
		if _, err := h.portfolio.SetAlert(ctx, a); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("alert %+v: expected input error, got %v", a, err)
		}
	}
}

func TestRemoveAlert(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.portfolio.SetAlert(ctx, models.PriceAlert{Ticker: "AAPL", TargetPrice: 1, Condition: models.ConditionAbove}); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if err := h.portfolio.RemoveAlert(ctx, "AAPL"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := h.portfolio.RemoveAlert(ctx, "AAPL"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPreferencesDefaultsAndCorruption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if got := h.portfolio.Preferences(ctx); got != models.DefaultPreferences() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if err := h.store.SetString(ctx, drepo.KeyUserPreferences, "{oops"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := h.portfolio.Preferences(ctx); !got.OnlyHighImpact {
		t.Fatalf("corrupt preferences should read as defaults, got %+v", got)
	}

	want := models.UserPreferences{Email: "a@b.c", EnableBackgroundMonitoring: true, CustomAPIKey: "k"}
	if _, err := h.portfolio.UpdatePreferences(ctx, want); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := h.portfolio.Preferences(ctx); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
