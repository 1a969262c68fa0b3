package entities

import "time"

// Creator is the author of a content item
type Creator struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// EngagementStats are the raw counters reported for a content item
type EngagementStats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// EngagementRate returns (likes+comments+shares)/views as a percentage.
// Items without views have an engagement rate of zero.
func (s EngagementStats) EngagementRate() float64 {
	if s.Views <= 0 {
		return 0
	}
	interactions := float64(s.Likes + s.Comments + s.Shares)
	return interactions / float64(s.Views) * 100
}

// ContentItem is one video returned by a content search
type ContentItem struct {
	ID        string          `json:"id"`
	Hashtags  []string        `json:"hashtags"`
	Creator   Creator         `json:"creator"`
	Stats     EngagementStats `json:"stats"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// SearchResult is a single page returned by a ContentSearchProvider
type SearchResult struct {
	Success bool          `json:"success"`
	Items   []ContentItem `json:"items"`
	HasMore bool          `json:"hasMore"`
	Cursor  string        `json:"cursor,omitempty"`
}
