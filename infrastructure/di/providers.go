package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"trendscout/application/commands"
	"trendscout/application/ports"
	"trendscout/application/queries"
	querybus "trendscout/application/queries/bus"
	"trendscout/application/services"
	domainconfig "trendscout/domain/config"
	"trendscout/infrastructure/cache"
	"trendscout/infrastructure/config"
	"trendscout/infrastructure/insights"
	"trendscout/infrastructure/messaging/eventbridge"
	"trendscout/infrastructure/messaging/logbus"
	"trendscout/infrastructure/persistence/dynamodb"
	"trendscout/infrastructure/persistence/memory"
	"trendscout/infrastructure/search"
	"trendscout/pkg/observability"
)

const (
	serviceName      = "trendscout"
	metricsNamespace = "trendscout"
	queryCacheSize   = 500
)

// Caches groups the in-process caches so each consumer gets its own
type Caches struct {
	Search *cache.MemoryCache
	Query  *cache.MemoryCache
}

// Sweep purges expired entries from both caches every interval until ctx ends
func (c *Caches) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Search.PurgeExpired(ctx)
			c.Query.PurgeExpired(ctx)
		}
	}
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = level
	}

	return zapCfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing starts the OTLP exporter when tracing is enabled. It
// returns nil otherwise.
func ProvideTracing(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	tp, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.TracingEndpoint))
	return tp, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCloudWatchMetrics creates the CloudWatch sink when a namespace is
// configured. It returns nil otherwise.
func ProvideCloudWatchMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) *observability.CloudWatchMetrics {
	if cfg.CloudWatchNamespace == "" {
		return nil
	}
	namespace := fmt.Sprintf("%s/%s", cfg.CloudWatchNamespace, cfg.Environment)
	return observability.NewCloudWatchMetrics(namespace, client, logger.Named("cloudwatch"))
}

// ProvideExplorationMetrics sends engine measurements to Prometheus and, when
// enabled, to CloudWatch
func ProvideExplorationMetrics(collector *observability.Collector, cw *observability.CloudWatchMetrics) ports.Metrics {
	if cw == nil {
		return collector
	}
	return observability.MultiMetrics{collector, cw}
}

// ProvideCaches creates the search and query caches and exposes their hit
// rates as gauges
func ProvideCaches(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*Caches, error) {
	caches := &Caches{
		Search: cache.NewMemoryCache(cfg.SearchCacheSize, logger.Named("search-cache")),
		Query:  cache.NewMemoryCache(queryCacheSize, logger.Named("query-cache")),
	}

	gauges := []struct {
		name  string
		cache *cache.MemoryCache
	}{
		{"search_cache_hit_rate", caches.Search},
		{"query_cache_hit_rate", caches.Query},
	}
	for _, g := range gauges {
		c := g.cache
		if err := metrics.RegisterGaugeFunc(metricsNamespace, g.name, "Cache hit rate since start", func() float64 {
			return c.GetStats().HitRate
		}); err != nil {
			return nil, fmt.Errorf("registering %s: %w", g.name, err)
		}
	}
	return caches, nil
}

// ProvideExplorationConfig loads the tunables file when one is configured
func ProvideExplorationConfig(cfg *config.Config, logger *zap.Logger) (*config.ExplorationConfigHolder, error) {
	if cfg.ExplorationConfigPath == "" {
		return config.NewExplorationConfigHolder(domainconfig.DefaultExplorationConfig()), nil
	}

	tunables, err := config.LoadExplorationConfig(cfg.ExplorationConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded exploration tunables", zap.String("path", cfg.ExplorationConfigPath))
	return config.NewExplorationConfigHolder(tunables), nil
}

// ProvideTunablesWatcher hot reloads the tunables file in development. It
// returns nil when there is nothing to watch.
func ProvideTunablesWatcher(
	cfg *config.Config,
	holder *config.ExplorationConfigHolder,
	logger *zap.Logger,
) (*config.TunablesWatcher, error) {
	if cfg.ExplorationConfigPath == "" || !cfg.IsDevelopment() || cfg.IsLambda {
		return nil, nil
	}
	return config.NewTunablesWatcher(cfg.ExplorationConfigPath, holder, logger)
}

// ProvideSearchProvider builds the configured content search provider behind
// the result cache
func ProvideSearchProvider(
	cfg *config.Config,
	caches *Caches,
	logger *zap.Logger,
) (ports.ContentSearchProvider, error) {
	var provider ports.ContentSearchProvider

	switch cfg.SearchProvider {
	case config.SearchProviderHTTP:
		httpProvider, err := search.NewHTTPSearchProvider(search.HTTPProviderConfig{
			BaseURL:           cfg.SearchBaseURL,
			APIKey:            cfg.SearchAPIKey,
			Timeout:           cfg.SearchTimeout,
			RequestsPerSecond: cfg.SearchRatePerSecond,
			Breaker:           search.DefaultCircuitBreakerConfig("content-search"),
		}, logger.Named("search"))
		if err != nil {
			return nil, err
		}
		provider = httpProvider
	case config.SearchProviderFixture:
		fixtures, err := search.LoadFixtureProvider(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using fixture search provider",
			zap.String("path", cfg.FixturePath),
			zap.Int("keywords", fixtures.Keywords()),
		)
		provider = fixtures
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}

	if cfg.SearchCacheTTL <= 0 {
		return provider, nil
	}
	return search.NewCachingProvider(provider, caches.Search, cfg.SearchCacheTTL, logger.Named("search")), nil
}

// ProvideHistoryStore creates the user history store for the configured backend
func ProvideHistoryStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.UserHistoryStore {
	if cfg.PersistenceBackend == config.PersistenceDynamoDB {
		return dynamodb.NewHistoryStore(client, cfg.DynamoDBTable, logger.Named("history"))
	}
	return memory.NewInMemoryHistoryStore()
}

// ProvideExplorationRepository creates the result repository for the
// configured backend, traced when tracing is on
func ProvideExplorationRepository(
	cfg *config.Config,
	client *awsdynamodb.Client,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) ports.ExplorationRepository {
	var repo ports.ExplorationRepository
	if cfg.PersistenceBackend == config.PersistenceDynamoDB {
		repo = dynamodb.NewExplorationRepository(client, cfg.DynamoDBTable, logger.Named("explorations"))
	} else {
		repo = memory.NewInMemoryExplorationRepository()
	}

	if tracing != nil {
		repo = observability.TraceExplorationRepository(repo, tracing.Tracer())
	}
	return repo
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and
// to the log otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger.Named("events"))
	}
	return logbus.NewPublisher(logger.Named("events"))
}

// ProvideInsightSummarizer creates the OpenAI summarizer when a key is set
func ProvideInsightSummarizer(cfg *config.Config, logger *zap.Logger) ports.InsightSummarizer {
	if cfg.OpenAIAPIKey == "" {
		return insights.Disabled{}
	}
	return insights.NewOpenAISummarizer(insights.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: 30 * time.Second,
	}, logger.Named("insights"))
}

// ProvideExplorationEngine creates the exploration engine
func ProvideExplorationEngine(
	provider ports.ContentSearchProvider,
	history ports.UserHistoryStore,
	holder *config.ExplorationConfigHolder,
	metrics ports.Metrics,
	logger *zap.Logger,
) *services.ExplorationEngine {
	return services.NewExplorationEngine(provider, history, holder, metrics, logger.Named("engine"))
}

// ProvideExploreTrendsHandler creates the explore command handler
func ProvideExploreTrendsHandler(
	engine *services.ExplorationEngine,
	repo ports.ExplorationRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *commands.ExploreTrendsHandler {
	return commands.NewExploreTrendsHandler(engine, repo, publisher, logger)
}

// ProvideGenerateInsightsHandler creates the insights command handler
func ProvideGenerateInsightsHandler(
	repo ports.ExplorationRepository,
	summarizer ports.InsightSummarizer,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *commands.GenerateInsightsHandler {
	return commands.NewGenerateInsightsHandler(repo, summarizer, publisher, logger)
}

// ProvideQueryBus creates and configures the query bus
func ProvideQueryBus(
	cfg *config.Config,
	repo ports.ExplorationRepository,
	holder *config.ExplorationConfigHolder,
	caches *Caches,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	metricsMW := querybus.NewMetricsMiddleware(metrics)
	cachingMW := querybus.NewCachingMiddleware(caches.Query, cfg.QueryCacheTTL, logger)

	// Stored results are immutable; listings change with every run
	handlers := []struct {
		query     querybus.Query
		handler   querybus.QueryHandler
		cacheable bool
	}{
		{queries.GetExplorationQuery{}, queries.NewGetExplorationHandler(repo), true},
		{queries.ListExplorationsQuery{}, queries.NewListExplorationsHandler(repo), false},
		{queries.GetVisualizationQuery{}, queries.NewGetVisualizationHandler(repo, holder.Current().HubNodeCount), true},
	}
	for _, h := range handlers {
		chain := []querybus.Middleware{metricsMW.Wrap}
		if h.cacheable && cfg.QueryCacheTTL > 0 {
			chain = append(chain, cachingMW.Wrap)
		}
		if err := queryBus.Register(h.query, querybus.Chain(h.handler, chain...)); err != nil {
			return nil, fmt.Errorf("failed to register query handler: %w", err)
		}
	}

	return queryBus, nil
}
