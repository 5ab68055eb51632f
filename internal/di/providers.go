package di

import (
	"fmt"
	"math/rand"
	"time"

	"StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/internal/handler/api"
	"StockPulse/internal/handler/ws"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/service/gemini"
	"StockPulse/internal/service/openai"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/queue"
	"StockPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// ProvideKafkaProducer creates a Kafka producer. It returns nil when no
// brokers are configured; notifications and log digests then stay local.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Notify.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Notify.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Notify.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Notify.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Notify.Kafka.WriteTimeout, cfg.Notify.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Notify.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Notify.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the root logger. Warnings and errors are also
// digested onto the log topic when Kafka is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Notify.Kafka.LogTopic != "" {
		l.AttachDigest(applogger.NewDigest(applogger.DigestConfig{
			Topic:     cfg.Notify.Kafka.LogTopic,
			Publisher: producer,
		}))
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCacheBackend selects the key-value backend named in the config.
func ProvideCacheBackend(cfg *config.Config) (cache.Service, error) {
	redisOpts := []cache.RedisOption{
		cache.WithRedisHost(cfg.Store.Redis.Host),
		cache.WithRedisPort(cfg.Store.Redis.Port),
		cache.WithRedisPassword(cfg.Store.Redis.Password),
		cache.WithRedisDB(cfg.Store.Redis.DB),
		cache.WithRedisPool(cfg.Store.Redis.PoolSize, 2, 4*time.Second),
		cache.WithRedisPrefix(cfg.Store.Prefix),
	}

	switch cfg.Store.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(redisOpts...)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return rc, nil
	case "layered":
		rc, err := cache.NewRedisCache(redisOpts...)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(time.Minute)), nil
	case "postgres":
		pc, err := cache.NewPostgresCache(cfg.Store.Postgres.DSN,
			cache.WithPostgresTable(cfg.Store.Postgres.Table),
			cache.WithPostgresPrefix(cfg.Store.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return pc, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// ProvideStore wraps the backend in the JSON key-value store.
func ProvideStore(backend cache.Service, l *applogger.Logger) *internalrepo.KVStore {
	return internalrepo.NewKVStore(backend, l.Named("store"))
}

// ProvideClock returns the wall clock.
func ProvideClock() usecase.Clock {
	return time.Now
}

func ProvidePortfolio(store *internalrepo.KVStore, now usecase.Clock, l *applogger.Logger) *usecase.Portfolio {
	return usecase.NewPortfolio(store, now, l.Named("portfolio"))
}

// ProvideCredentials resolves the deployment key for the selected provider.
func ProvideCredentials(cfg *config.Config, portfolio *usecase.Portfolio) *usecase.Credentials {
	key := cfg.AI.APIKey
	if cfg.AI.Provider == "openai" {
		key = cfg.AI.OpenAI.APIKey
	}
	return usecase.NewCredentials(key, portfolio)
}

func ProvideCooldownGate(cfg *config.Config, store *internalrepo.KVStore, now usecase.Clock, l *applogger.Logger, m repository.Metrics) *usecase.CooldownGate {
	return usecase.NewCooldownGate(store, cfg.Policy.Cooldown, now, l.Named("cooldown"), m)
}

func ProvideExecutor(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *usecase.Executor {
	return usecase.NewExecutor(usecase.RetryPolicy{
		MaxAttempts: cfg.Policy.MaxAttempts,
		Base:        cfg.Policy.BackoffBase,
		Jitter:      cfg.Policy.BackoffJitter,
	}, l.Named("retry"), m)
}

// ProvideGeneratorFactory selects the language-model provider.
func ProvideGeneratorFactory(cfg *config.Config, l *applogger.Logger) dservice.GeneratorFactory {
	if cfg.AI.Provider == "openai" {
		return openai.NewFactory(cfg.AI.OpenAI.Model, cfg.AI.OpenAI.BaseURL, l.Named("openai"))
	}
	return gemini.NewFactory(cfg.AI.Model, l.Named("gemini"))
}

func ProvideAnalyst(
	factory dservice.GeneratorFactory,
	creds *usecase.Credentials,
	gate *usecase.CooldownGate,
	executor *usecase.Executor,
	now usecase.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.Analyst {
	return usecase.NewAnalyst(factory, creds, gate, executor, now, l.Named("analyst"), m)
}

func ProvidePresence(cfg *config.Config, now usecase.Clock) *usecase.Presence {
	return usecase.NewPresence(cfg.Policy.PresenceTTL, now)
}

func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l.Named("hub"), cfg.Policy.HistoryCap)
}

// ProvideNotifier fans platform notifications out to every configured sink.
func ProvideNotifier(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.MultiNotifier {
	var sinks []repository.PlatformNotifier
	if cfg.Notify.Webhook.URL != "" {
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Notify.Webhook.Timeout),
			xhttp.WithUserAgent("stockpulse/1.0"),
		)
		sinks = append(sinks, internalrepo.NewWebhookNotifier(client, cfg.Notify.Webhook.URL))
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaNotifier(producer, cfg.Notify.Kafka.Topic))
	}
	return internalrepo.NewMultiNotifier(sinks...)
}

// ProvideDeliveryQueue creates the Redis-backed notification queue when it is
// enabled. Queued notifications are delivered to sinks by a worker job.
func ProvideDeliveryQueue(cfg *config.Config, sinks *internalrepo.MultiNotifier, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Notify.Queue.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Store.Redis.Host, cfg.Store.Redis.Port),
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	})
	q := queue.NewRedisQueue(l.Named("queue"), client, queue.Config{
		Workers:    cfg.Notify.Queue.Workers,
		RetryLimit: cfg.Notify.Queue.RetryLimit,
		RetryDelay: cfg.Notify.Queue.RetryDelay,
	}, queue.WithKeyPrefix(cfg.Store.Prefix+":notify"))
	q.RegisterJob(internalrepo.NewDeliveryJob(sinks.Sinks()...))
	return q
}

// ProvidePlatformNotifier routes platform notifications through the queue
// when there is one.
func ProvidePlatformNotifier(sinks *internalrepo.MultiNotifier, q *queue.RedisQueue) repository.PlatformNotifier {
	if q == nil {
		return sinks
	}
	return internalrepo.NewQueuedNotifier(q, sinks.Sinks()...)
}

func ProvideAlertEngine(
	cfg *config.Config,
	portfolio *usecase.Portfolio,
	store *internalrepo.KVStore,
	hub *ws.Hub,
	notifier repository.PlatformNotifier,
	presence *usecase.Presence,
	now usecase.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.AlertEngine {
	return usecase.NewAlertEngine(portfolio, store, hub, notifier, presence, cfg.Policy.HistoryCap, now, l.Named("alerts"), m)
}

func ProvideMarketData(
	cfg *config.Config,
	analyst *usecase.Analyst,
	creds *usecase.Credentials,
	gate *usecase.CooldownGate,
	store *internalrepo.KVStore,
	now usecase.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.MarketData {
	policy := usecase.MarketPolicy{
		TTL:          cfg.Policy.MarketTTL,
		Spacing:      cfg.Policy.BundleSpacing,
		RefreshGuard: cfg.Policy.RefreshGuard,
	}
	return usecase.NewMarketData(analyst, creds, gate, store, policy, now, usecase.SleepContext, l.Named("market"), m)
}

func ProvideSearch(analyst *usecase.Analyst, alerts *usecase.AlertEngine, gate *usecase.CooldownGate, l *applogger.Logger, m repository.Metrics) *usecase.Search {
	return usecase.NewSearch(analyst, alerts, gate, l.Named("search"), m)
}

func ProvideChatChannel(
	factory dservice.GeneratorFactory,
	creds *usecase.Credentials,
	gate *usecase.CooldownGate,
	now usecase.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.ChatChannel {
	return usecase.NewChatChannel(factory, creds, gate, now, l.Named("chat"), m)
}

// ProvideWatchdog creates the background news scanner. It only scans while
// a client reports the app as visible.
func ProvideWatchdog(
	cfg *config.Config,
	analyst *usecase.Analyst,
	alerts *usecase.AlertEngine,
	portfolio *usecase.Portfolio,
	gate *usecase.CooldownGate,
	presence *usecase.Presence,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.Watchdog {
	wcfg := usecase.WatchdogConfig{
		Interval: cfg.Policy.WatchdogInterval,
		Settle:   cfg.Policy.ScanSettle,
		Random:   rand.Intn,
	}
	return usecase.NewWatchdog(analyst, alerts, portfolio, gate, presence.Visible, wcfg, usecase.SleepContext, l.Named("watchdog"), m)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideHandlers assembles every HTTP and WebSocket route.
func ProvideHandlers(
	l *applogger.Logger,
	search *usecase.Search,
	market *usecase.MarketData,
	portfolio *usecase.Portfolio,
	presence *usecase.Presence,
	chat *usecase.ChatChannel,
	gate *usecase.CooldownGate,
	watchdog *usecase.Watchdog,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	hl := l.Named("http")
	return xhttp.Handlers{
		api.NewAnalysisHandler(hl, search, market, limiter),
		api.NewPortfolioHandler(hl, portfolio),
		api.NewSessionHandler(hl, presence, chat, gate, watchdog, search),
		hub,
		ws.NewChatHandler(l.Named("ws"), chat, limiter),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l.Named("http")),
	}
	if len(cfg.Server.AllowOrigins) > 0 {
		opts = append(opts, xhttp.WithAllowOrigins(cfg.Server.AllowOrigins))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	watchdog *usecase.Watchdog,
	chat *usecase.ChatChannel,
	store *internalrepo.KVStore,
	producer *pkgkafka.Producer,
	deliveries *queue.RedisQueue,
) *server.App {
	return server.New(cfg, l, httpServer, watchdog, chat, store, producer, deliveries)
}
