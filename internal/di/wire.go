//go:build wireinject
// +build wireinject

package di

import (
	"StockPulse/pkg/config"
	"StockPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideCacheBackend,
		ProvideStore,
		ProvideClock,

		// Use cases
		ProvidePortfolio,
		ProvideCredentials,
		ProvideCooldownGate,
		ProvideExecutor,
		ProvideGeneratorFactory,
		ProvideAnalyst,
		ProvidePresence,
		ProvideHub,
		ProvideNotifier,
		ProvideDeliveryQueue,
		ProvidePlatformNotifier,
		ProvideAlertEngine,
		ProvideMarketData,
		ProvideSearch,
		ProvideChatChannel,
		ProvideWatchdog,

		// Transport
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
