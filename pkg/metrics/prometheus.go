package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	remoteCalls   *prometheus.CounterVec
	retries       *prometheus.CounterVec
	cooldownTrips *prometheus.CounterVec
	notifications *prometheus.CounterVec
	marketLoads   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		remoteCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_remote_calls_total",
				Help: "Calls made to the generative AI API",
			},
			[]string{"operation", "result"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_remote_retries_total",
				Help: "Backoff retries after rate-limit failures",
			},
			[]string{"operation"},
		),
		cooldownTrips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_cooldown_trips_total",
				Help: "Times the quota cooldown gate was tripped",
			},
			[]string{"origin"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_notifications_total",
				Help: "Notifications emitted",
			},
			[]string{"kind", "channel"},
		),
		marketLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_market_loads_total",
				Help: "Market data loads by region and where the data came from",
			},
			[]string{"region", "source"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRemoteCall(op, result string) {
	r.remoteCalls.WithLabelValues(op, result).Inc()
}

func (r *Recorder) RecordRetry(op string) {
	r.retries.WithLabelValues(op).Inc()
}

func (r *Recorder) RecordCooldownTrip(origin string) {
	r.cooldownTrips.WithLabelValues(origin).Inc()
}

func (r *Recorder) RecordNotification(kind, channel string) {
	r.notifications.WithLabelValues(kind, channel).Inc()
}

func (r *Recorder) RecordMarketLoad(region, source string) {
	r.marketLoads.WithLabelValues(region, source).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
