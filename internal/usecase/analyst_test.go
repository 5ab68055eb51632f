package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/pkg/util"
)

const analysisJSON = `{
  "currentPrice": 187.42,
  "priceTimestamp": "Mar 2, 10:30 AM ET",
  "summary": ["Strong services growth", "Buyback continues"],
  "fundamental": "P/E 29",
  "technical": "Above 50-day MA",
  "supportLevel": "$180.00",
  "resistanceLevel": "$195.00",
  "news": [{"title": "New product", "impact": "Positive demand", "sentiment": "POSITIVE"}, {"title": "Probe", "impact": "Risk", "sentiment": "mixed"}],
  "entryLevel": "$182-185",
  "exitLevel": "$200 target",
  "dailySummary": "Up 1%",
  "recommendation": "Buy"
}`

func TestAnalyzeDecodesAndStamps(t *testing.T) {
	h := newHarness(t)
	h.script(reply{resp: &dservice.GenerateResponse{
		Text:    "```json\n" + analysisJSON + "\n```",
		Sources: []models.Source{{Title: "", URI: "https://example.com/a"}, {Title: "Quote", URI: ""}},
	}})

	res, err := h.analyst.Analyze(context.Background(), " aapl ")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Ticker != "AAPL" || res.CurrentPrice != 187.42 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.LastUpdated != util.EpochMillis(h.clock.Now()) {
		t.Fatalf("lastUpdated not stamped: %d", res.LastUpdated)
	}
	if res.News[0].Sentiment != models.NewsPositive || res.News[1].Sentiment != models.NewsNeutral {
		t.Fatalf("news sentiment not normalized: %+v", res.News)
	}
	if res.Sources[0].Title != "Source" || res.Sources[1].URI != "#" {
		t.Fatalf("source defaults not applied: %+v", res.Sources)
	}

	req := h.gen.calls[0]
	if !req.Grounded || req.Schema == nil {
		t.Fatalf("analysis must be grounded and schema constrained")
	}
	if !strings.Contains(req.Prompt, `"AAPL"`) || !strings.Contains(req.Prompt, "Previous Close") {
		t.Fatalf("prompt missing ticker or live price instruction: %s", req.Prompt)
	}
	if h.factory.keys[0] != testKey {
		t.Fatalf("unexpected credential %q", h.factory.keys[0])
	}
}

func TestAnalyzeRejectsUnparseableResponse(t *testing.T) {
	for _, text := range []string{"", "not json", `{"summary": []}`} {
		h := newHarness(t)
		h.script(textReply(text))
		if _, err := h.analyst.Analyze(context.Background(), "AAPL"); !errors.Is(err, models.ErrParse) {
			t.Fatalf("text %q: expected parse error, got %v", text, err)
		}
	}
}

func TestAnalystUsesCustomKeyOverDefault(t *testing.T) {
	h := newHarness(t)
	prefs := models.DefaultPreferences()
	prefs.CustomAPIKey = "user-key-abcdefghij"
	if _, err := h.portfolio.UpdatePreferences(context.Background(), prefs); err != nil {
		t.Fatalf("prefs: %v", err)
	}
	h.script(textReply("Calm session."))
	if _, err := h.analyst.MarketPulse(context.Background(), models.RegionUS); err != nil {
		t.Fatalf("pulse: %v", err)
	}
	if h.factory.keys[0] != "user-key-abcdefghij" {
		t.Fatalf("custom key not used: %v", h.factory.keys)
	}
}

func TestAnalystRejectsShortCredentialBeforeNetwork(t *testing.T) {
	for _, key := range []string{"", "undefined", "short"} {
		h := newHarness(t)
		h.creds = NewCredentials(key, h.portfolio)
		h.analyst.creds = h.creds
		_, err := h.analyst.Analyze(context.Background(), "AAPL")
		if !errors.Is(err, models.ErrInvalidCredential) {
			t.Fatalf("key %q: expected credential error, got %v", key, err)
		}
		if h.gen.Calls() != 0 || len(h.factory.keys) != 0 {
			t.Fatalf("key %q: remote side must not be reached", key)
		}
	}
}

func TestAnalystShortCircuitsDuringCooldown(t *testing.T) {
	h := newHarness(t)
	h.gate.Trip(context.Background(), "test")
	_, err := h.analyst.TrendingStocks(context.Background(), models.RegionUS)
	if !errors.Is(err, models.ErrCooldownActive) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if h.gen.Calls() != 0 {
		t.Fatalf("no remote call expected during cooldown")
	}
}

func TestAnalystExhaustionTripsGate(t *testing.T) {
	h := newHarness(t)
	h.script(errReply(&models.RemoteError{Status: 429, Err: errors.New("quota")}))
	_, err := h.analyst.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if h.gen.Calls() != 5 {
		t.Fatalf("expected 5 attempts, got %d", h.gen.Calls())
	}
	if !h.gate.IsActive(context.Background()) {
		t.Fatalf("quota exhaustion must trip the gate")
	}
}

func TestCheckSignificantChangeFallsBackOnGarbage(t *testing.T) {
	h := newHarness(t)
	h.script(textReply("I could not find anything"))
	got, err := h.analyst.CheckSignificantChange(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got != models.NoChange() {
		t.Fatalf("expected no-change default, got %+v", got)
	}
}

func TestCheckSignificantChangeNormalizes(t *testing.T) {
	h := newHarness(t)
	h.script(textReply(`{"hasChange": true, "alertMessage": " Earnings beat ", "sentiment": "Bullish", "impactLevel": "HIGH"}`))
	got, err := h.analyst.CheckSignificantChange(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := models.ChangeCheck{HasChange: true, AlertMessage: "Earnings beat", Sentiment: models.SentimentBullish, ImpactLevel: models.ImpactHigh}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMarketPulseDefaultsWhenEmpty(t *testing.T) {
	h := newHarness(t)
	h.script(textReply("   "))
	got, err := h.analyst.MarketPulse(context.Background(), models.RegionIndia)
	if err != nil || got != MsgPulseUnavailable {
		t.Fatalf("unexpected pulse %q, %v", got, err)
	}
	if !strings.Contains(h.gen.calls[0].Prompt, "NSE/BSE") {
		t.Fatalf("India prompt expected")
	}
}

func TestTrendingStocksFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		region models.Region
		first  string
	}{
		{"garbage us", "not json", models.RegionUS, "AAPL"},
		{"empty india", "[]", models.RegionIndia, "NSE:RELIANCE"},
		{"blank tickers", `[{"ticker": " ", "reason": "x"}]`, models.RegionUS, "AAPL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.script(textReply(tc.text))
			got, err := h.analyst.TrendingStocks(context.Background(), tc.region)
			if err != nil {
				t.Fatalf("trending: %v", err)
			}
			if len(got) != 5 || got[0].Ticker != tc.first {
				t.Fatalf("unexpected fallback %+v", got)
			}
		})
	}
}

func TestTrendingStocksCapsAtFive(t *testing.T) {
	h := newHarness(t)
	h.script(textReply(`[{"ticker":"a","reason":"1"},{"ticker":"b","reason":"2"},{"ticker":"c","reason":"3"},{"ticker":"d","reason":"4"},{"ticker":"e","reason":"5"},{"ticker":"f","reason":"6"}]`))
	got, err := h.analyst.TrendingStocks(context.Background(), models.RegionUS)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(got) != 5 || got[0].Ticker != "A" {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestFallbackTrendingReturnsCopy(t *testing.T) {
	a := FallbackTrending(models.RegionUS)
	a[0].Ticker = "CHANGED"
	if FallbackTrending(models.RegionUS)[0].Ticker != "AAPL" {
		t.Fatalf("fallback list must not be shared")
	}
}

func TestChatInstructionCarriesDate(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := chatInstruction(at); !strings.Contains(got, "Monday, March 2, 2026") {
		t.Fatalf("date missing from %q", got)
	}
}
