//go:build wireinject
// +build wireinject

package di

import (
	"wickengine/pkg/config"
	"wickengine/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCacheService,

		// Market data sources
		ProvideTradeStream,
		ProvideBookStream,
		ProvideBookCache,
		ProvideRateLimiter,
		ProvideDerivativesProvider,
		ProvideMacroMonitor,
		ProvideMacroProvider,

		// Analytics
		ProvideFusion,
		ProvideScorer,
		ProvideVoidWallDetector,

		// Persistence and notification
		ProvideEventLog,
		ProvideEventStore,
		ProvideEventPublisher,
		ProvideEventsHandler,
		ProvideNotifier,

		// Use cases
		ProvideEventProcessor,
		ProvideEngine,
		ProvideStatusWriter,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
