package valueobjects

import "fmt"

// Strategy selects how novelty and popularity are blended into a total score.
type Strategy string

const (
	StrategyNovelty    Strategy = "novelty"
	StrategyPopularity Strategy = "popularity"
	StrategyBalanced   Strategy = "balanced"
)

// DefaultStrategy is used when a request does not name one.
const DefaultStrategy = StrategyBalanced

// StrategyWeights holds the blend applied to the two component scores.
type StrategyWeights struct {
	Novelty    float64
	Popularity float64
}

var strategyWeights = map[Strategy]StrategyWeights{
	StrategyNovelty:    {Novelty: 0.7, Popularity: 0.3},
	StrategyPopularity: {Novelty: 0.3, Popularity: 0.7},
	StrategyBalanced:   {Novelty: 0.5, Popularity: 0.5},
}

// ParseStrategy converts user input into a Strategy. Empty input yields the default.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	strategy := Strategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("unknown strategy %q", s)
	}
	return strategy, nil
}

// IsValid checks whether the strategy is one of the known values
func (s Strategy) IsValid() bool {
	_, ok := strategyWeights[s]
	return ok
}

// Weights returns the blend for the strategy; unknown strategies blend evenly.
func (s Strategy) Weights() StrategyWeights {
	if w, ok := strategyWeights[s]; ok {
		return w
	}
	return strategyWeights[StrategyBalanced]
}

// String returns the string representation of the strategy
func (s Strategy) String() string {
	return string(s)
}
