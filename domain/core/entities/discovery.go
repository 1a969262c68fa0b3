package entities

import "time"

// MaxSampleContent caps the sample content IDs kept per keyword
const MaxSampleContent = 5

// MaxRelatedCreators caps the creators attached to a Discovery
const MaxRelatedCreators = 5

// TrendingEngagementThreshold is the average engagement percentage above
// which a discovered keyword is flagged as trending.
const TrendingEngagementThreshold = 5.0

// RelatedCreator summarizes a creator seen alongside a hashtag
type RelatedCreator struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"displayName"`
	VideoCount    int     `json:"videoCount"`
	AvgEngagement float64 `json:"avgEngagement"`
}

// DiscoveryMetadata carries the aggregate statistics behind a Discovery
type DiscoveryMetadata struct {
	Occurrences   int       `json:"occurrences"`
	AvgEngagement float64   `json:"avgEngagement"`
	AvgViews      float64   `json:"avgViews"`
	DiscoveredAt  time.Time `json:"discoveredAt"`
	IsTrending    bool      `json:"isTrending"`
}

// Discovery is a keyword first encountered during a run, with its scores and
// the chain of keywords that led to it. A Discovery is never modified once
// recorded.
type Discovery struct {
	Keyword         string            `json:"keyword"`
	NoveltyScore    int               `json:"noveltyScore"`
	PopularityScore int               `json:"popularityScore"`
	TotalScore      int               `json:"totalScore"`
	DiscoveryPath   []string          `json:"discoveryPath"`
	Depth           int               `json:"depth"`
	SampleContent   []string          `json:"sampleContent"`
	RelatedCreators []RelatedCreator  `json:"relatedCreators"`
	Metadata        DiscoveryMetadata `json:"metadata"`
}

// HashtagCandidate is the per-search aggregate for one hashtag. Candidates
// only live for the duration of a level.
type HashtagCandidate struct {
	Tag             string
	Occurrences     int
	AvgEngagement   float64
	AvgViews        float64
	SampleContent   []string
	RelatedCreators []RelatedCreator
	FirstSeenAt     *time.Time

	// Assigned during ranking
	NoveltyScore    int
	PopularityScore int
	TotalScore      int
}

// IsTrending reports whether the candidate clears the trending threshold
func (c HashtagCandidate) IsTrending() bool {
	return c.AvgEngagement > TrendingEngagementThreshold
}
