package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// StockAnalyzer is the subset of Analyst the search flow needs.
type StockAnalyzer interface {
	Analyze(ctx context.Context, ticker string) (*models.AnalysisResult, error)
}

// PriceChecker evaluates price alerts against an observed price.
type PriceChecker interface {
	CheckPrice(ctx context.Context, ticker string, price float64) []models.Notification
}

// SearchResult is a finished analysis plus any price alerts it fired.
type SearchResult struct {
	Analysis *models.AnalysisResult `json:"analysis"`
	Alerts   []models.Notification  `json:"alerts"`
}

// Search is the manual analysis entry point. Only one search runs at a time.
type Search struct {
	analyzer StockAnalyzer
	alerts   PriceChecker
	gate     *CooldownGate
	busy     atomic.Bool
	log      *applogger.Logger
	metrics  drepo.Metrics
}

func NewSearch(analyzer StockAnalyzer, alerts PriceChecker, gate *CooldownGate, l *applogger.Logger, m drepo.Metrics) *Search {
	return &Search{analyzer: analyzer, alerts: alerts, gate: gate, log: l, metrics: m}
}

// Run analyzes ticker. reason, when set, is the trending-card reason the
// search started from and is attached to the result.
func (s *Search) Run(ctx context.Context, ticker, reason string) (*SearchResult, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, models.NewFailure(models.FailureInput, "Ticker is required.", models.ErrInvalidInput)
	}
	if s.gate.IsActive(ctx) {
		return nil, models.NewFailure(models.FailureCooldown, MsgCooldownSearch, models.ErrCooldownActive)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, models.NewFailure(models.FailureBusy, MsgAnalysisBusy, models.ErrBusy)
	}
	defer s.busy.Store(false)

	start := time.Now()
	analysis, err := s.analyzer.Analyze(ctx, ticker)
	s.metrics.RecordLatency("search", time.Since(start).Seconds())
	if err != nil {
		f := classifySearchError(err)
		s.log.Warn("analysis failed",
			applogger.String("ticker", ticker),
			applogger.String("kind", string(f.Kind)),
			applogger.Error(err),
		)
		return nil, f
	}

	if reason = strings.TrimSpace(reason); reason != "" {
		analysis.RecommendationReason = reason
	}
	fired := s.alerts.CheckPrice(ctx, ticker, analysis.CurrentPrice)
	s.log.Info("analysis complete",
		applogger.String("ticker", ticker),
		applogger.Float64("price", analysis.CurrentPrice),
		applogger.Int("sources", len(analysis.Sources)),
		applogger.Int("alerts_fired", len(fired)),
	)
	return &SearchResult{Analysis: analysis, Alerts: fired}, nil
}

// Busy reports whether a search is running.
func (s *Search) Busy() bool {
	return s.busy.Load()
}

func classifySearchError(err error) *models.Failure {
	switch {
	case errors.Is(err, models.ErrCooldownActive):
		return models.NewFailure(models.FailureCooldown, MsgCooldownSearch, err)
	case IsRateLimit(err):
		return models.NewFailure(models.FailureQuota, MsgQuotaExceeded, err)
	case errors.Is(err, models.ErrInvalidCredential):
		return models.NewFailure(models.FailureCredential, MsgAnalyzeFailed+err.Error(), err)
	case errors.Is(err, models.ErrInvalidInput):
		return models.NewFailure(models.FailureInput, MsgAnalyzeFailed+err.Error(), err)
	case errors.Is(err, models.ErrParse):
		return models.NewFailure(models.FailureParse, MsgAnalyzeFailed+err.Error(), err)
	default:
		return models.NewFailure(models.FailureRemote, MsgAnalyzeFailed+err.Error(), err)
	}
}
