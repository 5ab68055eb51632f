package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

const platformNotifyTimeout = 10 * time.Second

// PushPermission reports whether the host allowed platform notifications.
type PushPermission interface {
	PushGranted() bool
}

// AlertEngine evaluates price alerts and significant-change reports and fans
// the resulting notifications out to the in-app sink and platform notifiers.
// Sink failures are logged and never returned.
type AlertEngine struct {
	portfolio  *Portfolio
	store      drepo.Store
	sink       drepo.AlertSink
	notifier   drepo.PlatformNotifier
	permission PushPermission
	historyCap int
	now        Clock
	newID      func() string
	log        *applogger.Logger
	metrics    drepo.Metrics
}

func NewAlertEngine(
	portfolio *Portfolio,
	store drepo.Store,
	sink drepo.AlertSink,
	notifier drepo.PlatformNotifier,
	permission PushPermission,
	historyCap int,
	now Clock,
	l *applogger.Logger,
	m drepo.Metrics,
) *AlertEngine {
	if historyCap <= 0 {
		historyCap = 50
	}
	return &AlertEngine{
		portfolio:  portfolio,
		store:      store,
		sink:       sink,
		notifier:   notifier,
		permission: permission,
		historyCap: historyCap,
		now:        now,
		newID:      uuid.NewString,
		log:        l,
		metrics:    m,
	}
}

// CheckPrice fires every active alert for ticker that price has crossed.
// Prices compare at cent precision. Fired alerts are deactivated so each
// triggers once.
func (e *AlertEngine) CheckPrice(ctx context.Context, ticker string, price float64) []models.Notification {
	ticker = util.NormalizeTicker(ticker)
	observed := decimal.NewFromFloat(price).Round(2)

	fired, err := e.portfolio.TriggerAlerts(ctx, ticker, func(a models.PriceAlert) bool {
		target := decimal.NewFromFloat(a.TargetPrice).Round(2)
		switch a.Condition {
		case models.ConditionAbove:
			return observed.GreaterThanOrEqual(target)
		case models.ConditionBelow:
			return observed.LessThanOrEqual(target)
		}
		return false
	})
	if err != nil {
		e.log.Error("failed to persist fired alerts", applogger.String("ticker", ticker), applogger.Error(err))
	}

	out := make([]models.Notification, 0, len(fired))
	for _, a := range fired {
		sentiment := models.SentimentBullish
		if a.Condition == models.ConditionBelow {
			sentiment = models.SentimentBearish
		}
		n := e.notification(models.KindPriceAlert, ticker,
			fmt.Sprintf("%s target hit! Price is now %s $%s.", ticker, a.Condition, decimal.NewFromFloat(a.TargetPrice).StringFixed(2)),
			sentiment, models.ImpactHigh)

		e.log.Info("price alert triggered",
			applogger.String("ticker", ticker),
			applogger.Float64("price", price),
			applogger.Float64("target", a.TargetPrice),
			applogger.String("condition", string(a.Condition)),
		)
		e.publish(ctx, n)
		e.notifyPlatform(ctx, n.Kind, "Price Alert: "+ticker, n.Message)
		out = append(out, n)
	}
	return out
}

// HandleChange turns a significant-change report into at most one
// notification. Each ticker/message pair notifies once; low and medium
// impact reports are recorded silently when the user only wants high impact.
func (e *AlertEngine) HandleChange(ctx context.Context, ticker string, change models.ChangeCheck) (*models.Notification, bool) {
	if !change.HasChange {
		return nil, false
	}
	ticker = util.NormalizeTicker(ticker)
	key := ticker + "-" + change.AlertMessage

	for _, seen := range e.History(ctx) {
		if seen == key {
			e.log.Debug("change already reported", applogger.String("ticker", ticker))
			return nil, false
		}
	}

	prefs := e.portfolio.Preferences(ctx)
	if prefs.OnlyHighImpact && change.ImpactLevel != models.ImpactHigh {
		e.record(ctx, key)
		e.log.Info("change below impact threshold",
			applogger.String("ticker", ticker),
			applogger.String("impact", string(change.ImpactLevel)),
		)
		return nil, false
	}

	n := e.notification(models.KindChangeAlert, ticker,
		fmt.Sprintf("IMPACT ALERT (%s): %s", ticker, change.AlertMessage),
		change.Sentiment, change.ImpactLevel)
	e.publish(ctx, n)
	e.notifyPlatform(ctx, n.Kind,
		fmt.Sprintf("%s IMPACT: %s", strings.ToUpper(string(change.ImpactLevel)), ticker),
		change.AlertMessage)
	e.record(ctx, key)
	return &n, true
}

// History returns the dedup keys of changes already reported, oldest first.
func (e *AlertEngine) History(ctx context.Context) []string {
	var keys []string
	if !e.store.GetJSON(ctx, drepo.KeyAlertHistory, &keys) {
		return nil
	}
	return keys
}

func (e *AlertEngine) record(ctx context.Context, key string) {
	if _, err := e.store.AppendCapped(ctx, drepo.KeyAlertHistory, key, e.historyCap); err != nil {
		e.log.Error("failed to record alert history", applogger.String("key", key), applogger.Error(err))
	}
}

func (e *AlertEngine) notification(kind models.NotificationKind, ticker, msg string, s models.Sentiment, impact models.ImpactLevel) models.Notification {
	return models.Notification{
		ID:          e.newID(),
		Kind:        kind,
		Ticker:      ticker,
		Message:     msg,
		Sentiment:   s,
		ImpactLevel: impact,
		CreatedAt:   util.EpochMillis(e.now()),
	}
}

func (e *AlertEngine) publish(ctx context.Context, n models.Notification) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(ctx, n)
	e.metrics.RecordNotification(string(n.Kind), "in_app")
}

func (e *AlertEngine) notifyPlatform(ctx context.Context, kind models.NotificationKind, title, body string) {
	if e.notifier == nil {
		return
	}
	if !e.portfolio.Preferences(ctx).EnableBrowserPush || e.permission == nil || !e.permission.PushGranted() {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), platformNotifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, title, body); err != nil {
		e.log.Warn("platform notification failed",
			applogger.String("notifier", e.notifier.Name()),
			applogger.String("title", title),
			applogger.Error(err),
		)
		return
	}
	e.metrics.RecordNotification(string(kind), e.notifier.Name())
}
