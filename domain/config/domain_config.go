package config

// ExplorationConfig holds the tunable business rules of the exploration engine
type ExplorationConfig struct {
	// Scoring thresholds
	NoveltyThreshold  int `yaml:"novelty_threshold" validate:"min=0,max=100"`
	MinExpansionScore int `yaml:"min_expansion_score" validate:"min=0,max=100"`

	// Search and frontier limits
	SearchPageSize int `yaml:"search_page_size" validate:"min=1,max=100"`
	FrontierSize   int `yaml:"frontier_size" validate:"min=1,max=50"`
	MaxSearches    int `yaml:"max_searches" validate:"min=0"`

	// Level fan-out. 1 explores keywords one at a time.
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1,max=16"`

	// History write-back
	HistoryRecordLimit int `yaml:"history_record_limit" validate:"min=0,max=100"`

	// Graph output
	HubNodeCount int `yaml:"hub_node_count" validate:"min=1,max=100"`
}

// DefaultExplorationConfig returns the default exploration configuration
func DefaultExplorationConfig() *ExplorationConfig {
	return &ExplorationConfig{
		NoveltyThreshold:   50,
		MinExpansionScore:  30,
		SearchPageSize:     30,
		FrontierSize:       5,
		MaxSearches:        0, // unlimited
		MaxConcurrency:     1,
		HistoryRecordLimit: 10,
		HubNodeCount:       10,
	}
}

// Clone returns a copy that can be modified without affecting the receiver
func (c *ExplorationConfig) Clone() *ExplorationConfig {
	if c == nil {
		return DefaultExplorationConfig()
	}
	clone := *c
	return &clone
}

// Current returns a copy of the configuration. A plain ExplorationConfig can
// therefore be used wherever a reloadable source is expected.
func (c *ExplorationConfig) Current() *ExplorationConfig {
	return c.Clone()
}
