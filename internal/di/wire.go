//go:build wireinject
// +build wireinject

package di

import (
	"SigRoute/pkg/config"
	"SigRoute/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Scoring and routing
		ProvideScorer,
		ProvideRoutingTable,
		ProvideEstimator,
		ProvideSelector,

		// Execution
		ProvideRandSource,
		ProvideVenues,
		ProvideDispatcher,

		// Attribution
		ProvideSnapshotStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideLedger,

		// Pipeline and ingestion
		ProvideRouter,
		ProvidePipeline,
		ProvideCollector,
		ProvideKafkaConsumer,
		ProvideKafkaHandlers,

		// Feedback and API
		ProvideFeedback,
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
