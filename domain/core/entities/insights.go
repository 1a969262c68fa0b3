package entities

import "time"

// InsightRequest is the subset of an exploration handed to the summarizer
type InsightRequest struct {
	ExplorationID string           `json:"explorationId"`
	SeedKeyword   string           `json:"seedKeyword"`
	Strategy      string           `json:"strategy"`
	Discoveries   []Discovery      `json:"discoveries"`
	Stats         ExplorationStats `json:"stats"`
}

// MaxInsightDiscoveries caps the discoveries passed to the summarizer
const MaxInsightDiscoveries = 10

// NewInsightRequest selects the top discoveries of a result for narration
func NewInsightRequest(result *ExplorationResult) InsightRequest {
	discoveries := result.Discoveries
	if len(discoveries) > MaxInsightDiscoveries {
		discoveries = discoveries[:MaxInsightDiscoveries]
	}
	return InsightRequest{
		ExplorationID: result.ExplorationID,
		SeedKeyword:   result.SeedKeyword,
		Strategy:      result.Strategy.String(),
		Discoveries:   discoveries,
		Stats:         result.Stats,
	}
}

// TrendInsights is the narrated output of the summarizer
type TrendInsights struct {
	Summary         string    `json:"summary"`
	KeyTrends       []string  `json:"keyTrends"`
	Opportunities   []string  `json:"opportunities"`
	Recommendations []string  `json:"recommendations"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
