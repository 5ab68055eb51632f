package repository

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

// Store is the persistent key/value contract. Values are JSON documents
// except where a raw string is documented (the cooldown marker). Reads never
// fail: a missing or unreadable value reports false.
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}) error
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string) error
	// AppendCapped appends item to the JSON string list at key, keeping only
	// the newest max entries, and returns the resulting list.
	AppendCapped(ctx context.Context, key, item string, max int) ([]string, error)
	Delete(ctx context.Context, key string) error
	// TryLock takes a short-lived guard named key. It reports false when the
	// guard is already held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// AlertSink receives in-app notifications (the alert banner feed).
type AlertSink interface {
	Publish(ctx context.Context, n models.Notification)
}

// PlatformNotifier delivers an OS/platform level notification.
type PlatformNotifier interface {
	Notify(ctx context.Context, title, body string) error
	Name() string
}

type Metrics interface {
	RecordRemoteCall(op, result string)
	RecordRetry(op string)
	RecordCooldownTrip(origin string)
	RecordNotification(kind, channel string)
	RecordMarketLoad(region, source string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRemoteCall(string, string)   {}
func (NopMetrics) RecordRetry(string)                {}
func (NopMetrics) RecordCooldownTrip(string)         {}
func (NopMetrics) RecordNotification(string, string) {}
func (NopMetrics) RecordMarketLoad(string, string)   {}
func (NopMetrics) RecordLatency(string, float64)     {}
