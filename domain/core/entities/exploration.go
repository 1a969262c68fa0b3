package entities

import (
	"time"

	"trendscout/domain/core/valueobjects"
)

const (
	MinExplorationDepth     = 1
	MaxExplorationDepth     = 3
	DefaultExplorationDepth = 3
)

// ExplorationRequest is the immutable input of a run
type ExplorationRequest struct {
	SeedKeyword  string                `json:"seedKeyword"`
	Depth        int                   `json:"depth"`
	Strategy     valueobjects.Strategy `json:"strategy"`
	ExcludeKnown bool                  `json:"excludeKnown"`
	UserID       string                `json:"userId,omitempty"`
}

// ExplorationStats summarizes the work done by a run
type ExplorationStats struct {
	TotalSearches    int   `json:"totalSearches"`
	ContentAnalyzed  int   `json:"contentAnalyzed"`
	UniqueKeywords   int   `json:"uniqueKeywords"`
	DiscoveriesFound int   `json:"discoveriesFound"`
	DurationMs       int64 `json:"durationMs"`
	LevelsCompleted  int   `json:"levelsCompleted"`
	Cancelled        bool  `json:"cancelled,omitempty"`
}

// ExplorationResult is the sole output contract of the engine
type ExplorationResult struct {
	ExplorationID string                `json:"explorationId"`
	UserID        string                `json:"userId,omitempty"`
	SeedKeyword   string                `json:"seedKeyword"`
	Depth         int                   `json:"depth"`
	Strategy      valueobjects.Strategy `json:"strategy"`
	Discoveries   []Discovery           `json:"discoveries"`
	Network       ExplorationNetwork    `json:"network"`
	Stats         ExplorationStats      `json:"stats"`
	CompletedAt   time.Time             `json:"completedAt"`
}

// ExplorationSummary is the listing view of a stored result
type ExplorationSummary struct {
	ExplorationID    string                `json:"explorationId"`
	SeedKeyword      string                `json:"seedKeyword"`
	Depth            int                   `json:"depth"`
	Strategy         valueobjects.Strategy `json:"strategy"`
	DiscoveriesFound int                   `json:"discoveriesFound"`
	TopKeywords      []string              `json:"topKeywords"`
	CompletedAt      time.Time             `json:"completedAt"`
}

// Summary builds the listing view of the result
func (r *ExplorationResult) Summary() ExplorationSummary {
	top := make([]string, 0, 3)
	for i := 0; i < len(r.Discoveries) && i < 3; i++ {
		top = append(top, r.Discoveries[i].Keyword)
	}
	return ExplorationSummary{
		ExplorationID:    r.ExplorationID,
		SeedKeyword:      r.SeedKeyword,
		Depth:            r.Depth,
		Strategy:         r.Strategy,
		DiscoveriesFound: len(r.Discoveries),
		TopKeywords:      top,
		CompletedAt:      r.CompletedAt,
	}
}

// IsSoftFailure reports a run that neither searched nor discovered anything.
// Callers may surface this differently from an ordinary empty result.
func (r *ExplorationResult) IsSoftFailure() bool {
	return r.Stats.TotalSearches == 0 && len(r.Discoveries) == 0
}
