package di

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"trendscout/application/commands"
	"trendscout/application/ports"
	querybus "trendscout/application/queries/bus"
	"trendscout/infrastructure/config"
	"trendscout/interfaces/http/rest"
	"trendscout/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Metrics         *observability.Collector
	Tracing         *observability.TracerProvider
	CloudWatch      *observability.CloudWatchMetrics
	DynamoDB        *awsdynamodb.Client
	Caches          *Caches
	Tunables        *config.ExplorationConfigHolder
	TunablesWatcher *config.TunablesWatcher
	SearchProvider  ports.ContentSearchProvider
	ExplorationRepo ports.ExplorationRepository
	Publisher       ports.EventPublisher
	ExploreHandler  *commands.ExploreTrendsHandler
	InsightsHandler *commands.GenerateInsightsHandler
	QueryBus        *querybus.QueryBus
}

// Close releases background resources. The logger is synced last.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.TunablesWatcher != nil {
		errs = append(errs, c.TunablesWatcher.Close())
	}
	if c.CloudWatch != nil {
		errs = append(errs, c.CloudWatch.Flush(ctx))
	}
	if c.Tracing != nil {
		errs = append(errs, c.Tracing.Shutdown(ctx))
	}
	if c.Logger != nil {
		// Sync reports EINVAL on terminals
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}

// DynamoDBReadiness probes the configured table
func DynamoDBReadiness(c *Container) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.DynamoDB.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
			TableName: aws.String(c.Config.DynamoDBTable),
		})
		return err
	}
}

// Router builds the HTTP router over the container's handlers
func (c *Container) Router() *rest.Router {
	var metrics *observability.Collector
	if c.Config.EnableMetrics {
		metrics = c.Metrics
	}

	router := rest.NewRouter(
		c.ExploreHandler,
		c.InsightsHandler,
		c.QueryBus,
		metrics,
		rest.RouterConfig{
			EnableCORS:         c.Config.EnableCORS,
			AllowedOrigins:     c.Config.AllowedOrigins,
			ExplorationTimeout: c.Config.ExplorationTimeout,
			Debug:              c.Config.IsDevelopment(),
		},
		c.Logger,
	)
	if c.Config.PersistenceBackend == config.PersistenceDynamoDB {
		router.AddReadinessCheck("dynamodb", DynamoDBReadiness(c))
	}
	return router
}
