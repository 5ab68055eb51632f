package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

const maxTrending = 5

// Analyst performs the four remote analysis operations. Every call checks the
// cooldown gate, resolves the credential, and goes through the retry executor.
// Rate-limit failures trip the gate before they are returned.
type Analyst struct {
	factory  dservice.GeneratorFactory
	creds    *Credentials
	gate     *CooldownGate
	executor *Executor
	now      Clock
	log      *applogger.Logger
	metrics  drepo.Metrics
}

func NewAnalyst(
	factory dservice.GeneratorFactory,
	creds *Credentials,
	gate *CooldownGate,
	executor *Executor,
	now Clock,
	l *applogger.Logger,
	m drepo.Metrics,
) *Analyst {
	return &Analyst{
		factory:  factory,
		creds:    creds,
		gate:     gate,
		executor: executor,
		now:      now,
		log:      l,
		metrics:  m,
	}
}

func (a *Analyst) generate(ctx context.Context, op string, req dservice.GenerateRequest) (*dservice.GenerateResponse, error) {
	if a.gate.IsActive(ctx) {
		return nil, models.ErrCooldownActive
	}
	key, err := a.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := a.factory.ForKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	start := time.Now()
	resp, err := Do(ctx, a.executor, op, func(ctx context.Context) (*dservice.GenerateResponse, error) {
		return gen.Generate(ctx, req)
	})
	a.metrics.RecordLatency(op, time.Since(start).Seconds())
	if err != nil {
		if IsRateLimit(err) {
			a.metrics.RecordRemoteCall(op, "rate_limited")
			a.gate.Trip(ctx, op)
		} else {
			a.metrics.RecordRemoteCall(op, "error")
		}
		return nil, err
	}
	a.metrics.RecordRemoteCall(op, "ok")
	return resp, nil
}

// Analyze returns a full analysis of ticker. A response without a usable
// price or that is not the expected JSON document fails with models.ErrParse.
func (a *Analyst) Analyze(ctx context.Context, ticker string) (*models.AnalysisResult, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", models.ErrInvalidInput)
	}

	resp, err := a.generate(ctx, "analyze", dservice.GenerateRequest{
		Prompt:   analyzePrompt(ticker, a.now()),
		Schema:   analysisSchema,
		Grounded: true,
	})
	if err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if err := decodeJSON(resp.Text, &result); err != nil {
		return nil, fmt.Errorf("%w: analysis for %s: %v", models.ErrParse, ticker, err)
	}
	if result.CurrentPrice <= 0 {
		return nil, fmt.Errorf("%w: analysis for %s has no current price", models.ErrParse, ticker)
	}

	result.Ticker = ticker
	result.LastUpdated = util.EpochMillis(a.now())
	result.RecommendationReason = ""
	if result.Summary == nil {
		result.Summary = []string{}
	}
	if result.News == nil {
		result.News = []models.NewsItem{}
	}
	for i := range result.News {
		result.News[i].Sentiment = normalizeNewsSentiment(result.News[i].Sentiment)
	}
	result.Sources = make([]models.Source, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		if s.Title == "" {
			s.Title = "Source"
		}
		if s.URI == "" {
			s.URI = "#"
		}
		result.Sources = append(result.Sources, s)
	}
	return &result, nil
}

// CheckSignificantChange asks whether anything high-impact happened to ticker
// in the last day. An unreadable answer means no change.
func (a *Analyst) CheckSignificantChange(ctx context.Context, ticker string) (models.ChangeCheck, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return models.NoChange(), fmt.Errorf("%w: empty ticker", models.ErrInvalidInput)
	}

	resp, err := a.generate(ctx, "check_change", dservice.GenerateRequest{
		Prompt:   changePrompt(ticker),
		Schema:   changeSchema,
		Grounded: true,
	})
	if err != nil {
		return models.NoChange(), err
	}

	var check models.ChangeCheck
	if err := decodeJSON(resp.Text, &check); err != nil {
		a.log.Warn("unreadable change check, assuming no change",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return models.NoChange(), nil
	}
	check.AlertMessage = strings.TrimSpace(check.AlertMessage)
	check.Sentiment = normalizeSentiment(check.Sentiment)
	check.ImpactLevel = normalizeImpact(check.ImpactLevel)
	return check, nil
}

// MarketPulse returns a short free-text market summary for region.
func (a *Analyst) MarketPulse(ctx context.Context, region models.Region) (string, error) {
	resp, err := a.generate(ctx, "market_pulse", dservice.GenerateRequest{
		Prompt:   pulsePrompt(region, a.now()),
		Grounded: true,
	})
	if err != nil {
		return "", err
	}
	if text := strings.TrimSpace(resp.Text); text != "" {
		return text, nil
	}
	return MsgPulseUnavailable, nil
}

// TrendingStocks returns up to five trending tickers for region. It never
// returns an empty list on success: unreadable answers fall back to a fixed list.
func (a *Analyst) TrendingStocks(ctx context.Context, region models.Region) ([]models.TrendingStock, error) {
	resp, err := a.generate(ctx, "trending", dservice.GenerateRequest{
		Prompt:   trendingPrompt(region),
		Schema:   trendingSchema,
		Grounded: true,
	})
	if err != nil {
		return nil, err
	}

	var raw []models.TrendingStock
	if err := decodeJSON(resp.Text, &raw); err != nil {
		a.log.Warn("unreadable trending list, using fallback",
			applogger.String("region", string(region)),
			applogger.Error(err),
		)
		return FallbackTrending(region), nil
	}

	stocks := make([]models.TrendingStock, 0, maxTrending)
	for _, s := range raw {
		s.Ticker = util.NormalizeTicker(s.Ticker)
		if s.Ticker == "" {
			continue
		}
		s.Reason = strings.TrimSpace(s.Reason)
		stocks = append(stocks, s)
		if len(stocks) == maxTrending {
			break
		}
	}
	if len(stocks) == 0 {
		return FallbackTrending(region), nil
	}
	return stocks, nil
}

var errEmptyResponse = errors.New("empty response")

// decodeJSON unmarshals the JSON document in text. Grounded responses are
// sometimes wrapped in a markdown fence, which is stripped first.
func decodeJSON(text string, dest interface{}) error {
	text = extractJSON(text)
	if text == "" {
		return errEmptyResponse
	}
	return json.Unmarshal([]byte(text), dest)
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

func normalizeSentiment(s models.Sentiment) models.Sentiment {
	switch models.Sentiment(strings.ToLower(strings.TrimSpace(string(s)))) {
	case models.SentimentBullish:
		return models.SentimentBullish
	case models.SentimentBearish:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

func normalizeImpact(l models.ImpactLevel) models.ImpactLevel {
	switch models.ImpactLevel(strings.ToLower(strings.TrimSpace(string(l)))) {
	case models.ImpactHigh:
		return models.ImpactHigh
	case models.ImpactMedium:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

func normalizeNewsSentiment(s models.NewsSentiment) models.NewsSentiment {
	switch models.NewsSentiment(strings.ToLower(strings.TrimSpace(string(s)))) {
	case models.NewsPositive:
		return models.NewsPositive
	case models.NewsNegative:
		return models.NewsNegative
	default:
		return models.NewsNeutral
	}
}
