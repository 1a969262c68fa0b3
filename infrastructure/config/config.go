package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Search provider kinds
const (
	SearchProviderHTTP    = "http"
	SearchProviderFixture = "fixture"
)

// Persistence backends
const (
	PersistenceMemory   = "memory"
	PersistenceDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda bool

	// Persistence
	PersistenceBackend string

	// Content search
	SearchProvider      string
	SearchBaseURL       string
	SearchAPIKey        string
	SearchTimeout       time.Duration
	SearchRatePerSecond float64
	SearchCacheSize     int
	SearchCacheTTL      int // seconds, 0 disables caching
	FixturePath         string

	// Exploration tunables file, optional
	ExplorationConfigPath string
	ExplorationTimeout    time.Duration

	// Insight summarizer, disabled without a key
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Query cache
	QueryCacheTTL int // seconds

	// Logging
	LogLevel string

	// CloudWatch metrics sink, disabled without a namespace
	CloudWatchNamespace  string
	MetricsFlushInterval time.Duration

	// Feature flags
	EnableMetrics      bool
	EnableTracing      bool
	TracingEndpoint    string
	TracingSampleRatio float64
	EnableCORS         bool
	AllowedOrigins     []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "trendscout")),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		IsLambda: getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),

		PersistenceBackend: getEnv("PERSISTENCE_BACKEND", PersistenceMemory),

		SearchProvider:      getEnv("SEARCH_PROVIDER", SearchProviderFixture),
		SearchBaseURL:       getEnv("SEARCH_BASE_URL", ""),
		SearchAPIKey:        getEnv("SEARCH_API_KEY", ""),
		SearchTimeout:       getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		SearchRatePerSecond: getEnvFloat("SEARCH_RATE_PER_SECOND", 5),
		SearchCacheSize:     getEnvInt("SEARCH_CACHE_SIZE", 1000),
		SearchCacheTTL:      getEnvInt("SEARCH_CACHE_TTL", 300),
		FixturePath:         getEnv("SEARCH_FIXTURE_PATH", "./config/fixtures.yaml"),

		ExplorationConfigPath: getEnv("EXPLORATION_CONFIG_PATH", ""),
		ExplorationTimeout:    getEnvDuration("EXPLORATION_TIMEOUT", 2*time.Minute),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", ""),

		QueryCacheTTL: getEnvInt("QUERY_CACHE_TTL", 60),

		CloudWatchNamespace:  getEnv("CLOUDWATCH_NAMESPACE", ""),
		MetricsFlushInterval: getEnvDuration("METRICS_FLUSH_INTERVAL", time.Minute),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EnableMetrics:      getEnvBool("ENABLE_METRICS", true),
		EnableTracing:      getEnvBool("ENABLE_TRACING", false),
		TracingEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		EnableCORS:         getEnvBool("ENABLE_CORS", true),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.SearchProvider {
	case SearchProviderHTTP:
		if c.SearchBaseURL == "" {
			return fmt.Errorf("SEARCH_BASE_URL is required for the http search provider")
		}
	case SearchProviderFixture:
		if c.FixturePath == "" {
			return fmt.Errorf("SEARCH_FIXTURE_PATH is required for the fixture search provider")
		}
	default:
		return fmt.Errorf("unknown SEARCH_PROVIDER %q", c.SearchProvider)
	}

	switch c.PersistenceBackend {
	case PersistenceMemory:
	case PersistenceDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	default:
		return fmt.Errorf("unknown PERSISTENCE_BACKEND %q", c.PersistenceBackend)
	}

	if c.IsProduction() {
		if c.SearchProvider == SearchProviderFixture {
			return fmt.Errorf("the fixture search provider cannot run in production")
		}
		if c.PersistenceBackend == PersistenceMemory {
			return fmt.Errorf("PERSISTENCE_BACKEND must be %q in production", PersistenceDynamoDB)
		}
	}

	if c.SearchCacheTTL < 0 || c.QueryCacheTTL < 0 {
		return fmt.Errorf("cache TTLs cannot be negative")
	}
	if c.CloudWatchNamespace != "" && c.MetricsFlushInterval <= 0 {
		return fmt.Errorf("METRICS_FLUSH_INTERVAL must be positive")
	}
	if c.EnableTracing && (c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1) {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	if c.ExplorationTimeout <= 0 {
		return fmt.Errorf("EXPLORATION_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
