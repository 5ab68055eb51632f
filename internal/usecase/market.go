package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// MarketAnalyst is the subset of Analyst the market cache needs.
type MarketAnalyst interface {
	TrendingStocks(ctx context.Context, region models.Region) ([]models.TrendingStock, error)
	MarketPulse(ctx context.Context, region models.Region) (string, error)
}

// MarketPolicy holds the market cache timings.
type MarketPolicy struct {
	// TTL is how long a bundle is served without a remote call.
	TTL time.Duration
	// Spacing separates the trending and pulse calls of one fetch.
	Spacing time.Duration
	// RefreshGuard is the window in which only one fetch per region may start.
	RefreshGuard time.Duration
}

func DefaultMarketPolicy() MarketPolicy {
	return MarketPolicy{TTL: time.Hour, Spacing: 2 * time.Second, RefreshGuard: 10 * time.Second}
}

// MarketData serves the per-region market bundle, fetching at most once per
// TTL and degrading to whatever is cached when the remote side fails.
type MarketData struct {
	analyst MarketAnalyst
	creds   *Credentials
	gate    *CooldownGate
	store   drepo.Store
	policy  MarketPolicy
	now     Clock
	sleep   Sleeper
	log     *applogger.Logger
	metrics drepo.Metrics
}

func NewMarketData(
	analyst MarketAnalyst,
	creds *Credentials,
	gate *CooldownGate,
	store drepo.Store,
	policy MarketPolicy,
	now Clock,
	sleep Sleeper,
	l *applogger.Logger,
	m drepo.Metrics,
) *MarketData {
	if sleep == nil {
		sleep = SleepContext
	}
	return &MarketData{
		analyst: analyst,
		creds:   creds,
		gate:    gate,
		store:   store,
		policy:  policy,
		now:     now,
		sleep:   sleep,
		log:     l,
		metrics: m,
	}
}

// Load returns the market bundle for region. Degraded results carry a
// Notice; an error means there was nothing at all to serve.
func (m *MarketData) Load(ctx context.Context, region models.Region) (*models.MarketView, error) {
	return m.load(ctx, region, false)
}

// Refresh fetches region even when the cached bundle is still fresh. The
// cooldown and refresh guard still apply, and a failed fetch falls back to
// the cached bundle like Load does.
func (m *MarketData) Refresh(ctx context.Context, region models.Region) (*models.MarketView, error) {
	m.log.Info("market refresh requested", applogger.String("region", string(region)))
	return m.load(ctx, region, true)
}

func (m *MarketData) load(ctx context.Context, region models.Region, force bool) (*models.MarketView, error) {
	start := time.Now()
	defer func() { m.metrics.RecordLatency("market_load", time.Since(start).Seconds()) }()

	if _, err := m.creds.Resolve(ctx); err != nil {
		return nil, models.NewFailure(models.FailureCredential, err.Error(), err)
	}

	cached, hasCache := m.cached(ctx, region)

	if m.gate.IsActive(ctx) {
		if hasCache {
			return m.view(region, cached, models.SourceCooldown, MsgCooldownCached), nil
		}
		m.metrics.RecordMarketLoad(string(region), "cooldown_empty")
		return nil, models.NewFailure(models.FailureCooldown, MsgCooldownNoData, models.ErrCooldownActive)
	}

	if hasCache && !force && m.fresh(cached) {
		return m.view(region, cached, models.SourceCache, ""), nil
	}

	locked, err := m.store.TryLock(ctx, drepo.MarketDataKey(region), m.policy.RefreshGuard)
	if err != nil {
		m.log.Warn("refresh guard unavailable, fetching anyway", applogger.String("region", string(region)), applogger.Error(err))
		locked = true
	}
	if !locked {
		if hasCache {
			return m.view(region, cached, models.SourceStale, MsgRefreshInProgress), nil
		}
		return nil, models.NewFailure(models.FailureBusy, MsgRefreshInProgress, models.ErrRefreshInProgress)
	}

	bundle, err := m.fetch(ctx, region)
	if err != nil {
		notice := MsgMarketUnavailable + err.Error()
		kind := models.FailureRemote
		switch {
		case errors.Is(err, models.ErrCooldownActive):
			notice = MsgCooldownNoData
			kind = models.FailureCooldown
		case IsRateLimit(err):
			// the analyst has already tripped the gate
			notice = MsgQuotaExceeded
			kind = models.FailureQuota
		}
		m.log.Warn("market fetch failed",
			applogger.String("region", string(region)),
			applogger.Bool("has_cache", hasCache),
			applogger.Error(err),
		)
		if hasCache {
			return m.view(region, cached, models.SourceStale, notice), nil
		}
		m.metrics.RecordMarketLoad(string(region), "failed")
		return nil, models.NewFailure(kind, notice, err)
	}

	if err := m.store.SetJSON(ctx, drepo.MarketDataKey(region), bundle); err != nil {
		m.log.Error("failed to cache market bundle", applogger.String("region", string(region)), applogger.Error(err))
	}
	m.gate.Clear(ctx)
	m.log.Info("market bundle refreshed",
		applogger.String("region", string(region)),
		applogger.Int("stocks", len(bundle.Stocks)),
	)
	return m.view(region, bundle, models.SourceFresh, ""), nil
}

// fetch runs the two remote calls sequentially with a fixed gap between them.
func (m *MarketData) fetch(ctx context.Context, region models.Region) (models.MarketBundle, error) {
	stocks, err := m.analyst.TrendingStocks(ctx, region)
	if err != nil {
		return models.MarketBundle{}, fmt.Errorf("trending stocks: %w", err)
	}
	if err := m.sleep(ctx, m.policy.Spacing); err != nil {
		return models.MarketBundle{}, err
	}
	pulse, err := m.analyst.MarketPulse(ctx, region)
	if err != nil {
		return models.MarketBundle{}, fmt.Errorf("market pulse: %w", err)
	}
	return models.MarketBundle{
		Pulse:     pulse,
		Stocks:    stocks,
		Timestamp: util.EpochMillis(m.now()),
	}, nil
}

// cached reads the stored bundle. An entry that cannot be decoded is removed.
func (m *MarketData) cached(ctx context.Context, region models.Region) (models.MarketBundle, bool) {
	key := drepo.MarketDataKey(region)
	var b models.MarketBundle
	if m.store.GetJSON(ctx, key, &b) && b.Timestamp > 0 {
		return b, true
	}
	if _, present := m.store.GetString(ctx, key); present {
		m.log.Warn("dropping corrupt market cache entry", applogger.String("region", string(region)))
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Error("failed to drop market cache entry", applogger.String("region", string(region)), applogger.Error(err))
		}
	}
	return models.MarketBundle{}, false
}

func (m *MarketData) fresh(b models.MarketBundle) bool {
	return m.now().Sub(util.FromEpochMillis(b.Timestamp)) < m.policy.TTL
}

func (m *MarketData) view(region models.Region, b models.MarketBundle, src models.MarketSource, notice string) *models.MarketView {
	m.metrics.RecordMarketLoad(string(region), string(src))
	if b.Stocks == nil {
		b.Stocks = []models.TrendingStock{}
	}
	return &models.MarketView{Region: region, Bundle: b, Source: src, Notice: notice}
}
