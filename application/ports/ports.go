package ports

import (
	"context"
	"time"

	"trendscout/domain/config"
	"trendscout/domain/core/entities"
	"trendscout/domain/events"
)

// ContentSearchProvider queries an external short-video platform by keyword.
// This is a port in hexagonal architecture - the engine doesn't know which
// platform answers. Timeouts belong to the implementation.
type ContentSearchProvider interface {
	// Search returns one page of content items for the keyword
	Search(ctx context.Context, keyword string, pageSize int) (*entities.SearchResult, error)
}

// UserHistoryStore loads and records the keywords a user already knows
type UserHistoryStore interface {
	// Load returns the user's keyword history
	Load(ctx context.Context, userID string) (*entities.UserKeywordHistory, error)

	// RecordExploration adds the seed to searched and keywords to explored
	RecordExploration(ctx context.Context, userID, seedKeyword string, keywords []string) error
}

// ExplorationRepository stores finished exploration results
type ExplorationRepository interface {
	// Save persists a result
	Save(ctx context.Context, result *entities.ExplorationResult) error

	// GetByID retrieves a result by its exploration ID
	GetByID(ctx context.Context, explorationID string) (*entities.ExplorationResult, error)

	// ListByUser returns a user's results, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.ExplorationResult, error)
}

// InsightSummarizer narrates the discoveries of a finished run. It may return
// nil insights and never feeds back into the run it was computed from.
type InsightSummarizer interface {
	// Analyze produces insights for the request
	Analyze(ctx context.Context, req entities.InsightRequest) (*entities.TrendInsights, error)

	// Enabled reports whether a backing model is configured
	Enabled() bool
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Metrics records exploration outcomes
type Metrics interface {
	RecordExploration(strategy string, duration time.Duration, discoveries int, cancelled bool)
	RecordSearch(outcome string)
	RecordDiscovery(trending bool)
}

// Search outcomes reported through Metrics.RecordSearch
const (
	SearchOutcomeSuccess = "success"
	SearchOutcomeEmpty   = "empty"
	SearchOutcomeFailure = "failure"
	SearchOutcomeSkipped = "skipped"
)

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordExploration(string, time.Duration, int, bool) {}
func (NoopMetrics) RecordSearch(string)                                {}
func (NoopMetrics) RecordDiscovery(bool)                               {}

// ExplorationConfigSource hands out the tunables in force for a new run
type ExplorationConfigSource interface {
	Current() *config.ExplorationConfig
}
