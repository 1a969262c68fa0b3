//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"trendscout/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideCloudWatchMetrics,
	ProvideExplorationMetrics,
	ProvideCaches,
	ProvideExplorationConfig,
	ProvideTunablesWatcher,
	ProvideSearchProvider,
	ProvideHistoryStore,
	ProvideExplorationRepository,
	ProvideEventPublisher,
	ProvideInsightSummarizer,
	ProvideExplorationEngine,
	ProvideExploreTrendsHandler,
	ProvideGenerateInsightsHandler,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
