package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockPulse/internal/repository"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	watchdog   *usecase.Watchdog
	chat       *usecase.ChatChannel
	store      *repository.KVStore
	producer   *pkgkafka.Producer
	deliveries *queue.RedisQueue
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	watchdog *usecase.Watchdog,
	chat *usecase.ChatChannel,
	store *repository.KVStore,
	producer *pkgkafka.Producer,
	deliveries *queue.RedisQueue,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		watchdog:   watchdog,
		chat:       chat,
		store:      store,
		producer:   producer,
		deliveries: deliveries,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.deliveries != nil {
		if err := a.deliveries.Start(ctx); err != nil {
			a.log.Error("notification queue start error", applogger.Error(err))
			return err
		}
	}

	a.watchdog.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	a.watchdog.Stop()
	a.chat.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.deliveries != nil {
		if err := a.deliveries.Stop(shutdownCtx); err != nil {
			a.log.Warn("notification queue stop error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")

	// Flush the log digest before the producer it publishes through.
	a.log.Close()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return nil
}
