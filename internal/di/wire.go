//go:build wireinject
// +build wireinject

package di

import (
	"GlassLens/pkg/config"
	"GlassLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideLocalFrames,
		ProvideFrameCache,
		ProvideKafkaProducer,
		ProvideDecisionPublisher,

		// Scoring and landscape
		ProvideScorer,
		ProvideSampler,
		ProvideRenderer,
		ProvideSurface,

		// Use cases
		ProvideHub,
		ProvideLens,
		ProvideHealthMonitor,
		ProvideKafkaConsumer,

		// Transport
		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
