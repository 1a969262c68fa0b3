package events

import (
	"time"

	"trendscout/domain/core/entities"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Exploration events

const (
	EventTypeExplorationCompleted = "exploration.completed"
	EventTypeInsightsGenerated    = "exploration.insights_generated"
)

// ExplorationCompleted is raised when a run has produced its result
type ExplorationCompleted struct {
	BaseEvent
	UserID           string   `json:"user_id,omitempty"`
	SeedKeyword      string   `json:"seed_keyword"`
	Strategy         string   `json:"strategy"`
	Depth            int      `json:"depth"`
	DiscoveriesFound int      `json:"discoveries_found"`
	TotalSearches    int      `json:"total_searches"`
	TopKeywords      []string `json:"top_keywords"`
	Cancelled        bool     `json:"cancelled,omitempty"`
}

// NewExplorationCompleted creates an ExplorationCompleted event from a result
func NewExplorationCompleted(result *entities.ExplorationResult) ExplorationCompleted {
	summary := result.Summary()
	return ExplorationCompleted{
		BaseEvent: BaseEvent{
			AggregateID: result.ExplorationID,
			EventType:   EventTypeExplorationCompleted,
			Timestamp:   result.CompletedAt,
			Version:     1,
		},
		UserID:           result.UserID,
		SeedKeyword:      result.SeedKeyword,
		Strategy:         result.Strategy.String(),
		Depth:            result.Depth,
		DiscoveriesFound: summary.DiscoveriesFound,
		TotalSearches:    result.Stats.TotalSearches,
		TopKeywords:      summary.TopKeywords,
		Cancelled:        result.Stats.Cancelled,
	}
}

// InsightsGenerated is raised when the summarizer narrated a stored run
type InsightsGenerated struct {
	BaseEvent
	KeyTrends int `json:"key_trends"`
}

// NewInsightsGenerated creates an InsightsGenerated event
func NewInsightsGenerated(explorationID string, insights *entities.TrendInsights) InsightsGenerated {
	return InsightsGenerated{
		BaseEvent: BaseEvent{
			AggregateID: explorationID,
			EventType:   EventTypeInsightsGenerated,
			Timestamp:   insights.GeneratedAt,
			Version:     1,
		},
		KeyTrends: len(insights.KeyTrends),
	}
}
