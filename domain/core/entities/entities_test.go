package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementStats{Likes: 10}.EngagementRate())
	assert.InDelta(t, 8.0, EngagementStats{Views: 1000, Likes: 60, Comments: 15, Shares: 5}.EngagementRate(), 1e-9)
}

func TestUserKeywordHistory(t *testing.T) {
	h := NewUserKeywordHistory("user-1", []string{"#Nashville"}, []string{"@bluegrass"}, []string{" Fiddle "})

	assert.True(t, h.HasSearched("nashville"))
	assert.True(t, h.HasSearched("#NASHVILLE"))
	assert.False(t, h.HasTracked("nashville"))
	assert.True(t, h.HasTracked("bluegrass"))
	assert.True(t, h.HasClicked("#fiddle"))
	assert.Equal(t, []string{"nashville"}, h.Searched())
	assert.False(t, h.IsEmpty())

	var missing *UserKeywordHistory
	assert.True(t, missing.IsEmpty())
	assert.False(t, missing.HasSearched("nashville"))
}

func TestHashtagCandidate_IsTrending(t *testing.T) {
	assert.True(t, HashtagCandidate{AvgEngagement: 8}.IsTrending())
	assert.False(t, HashtagCandidate{AvgEngagement: 5}.IsTrending())
}

func TestExplorationResult_Summary(t *testing.T) {
	result := &ExplorationResult{
		ExplorationID: "id-1",
		SeedKeyword:   "countrymusic",
		Discoveries: []Discovery{
			{Keyword: "nashville"}, {Keyword: "newartist"}, {Keyword: "fiddle"}, {Keyword: "banjo"},
		},
		Stats: ExplorationStats{TotalSearches: 3},
	}

	summary := result.Summary()
	assert.Equal(t, 4, summary.DiscoveriesFound)
	assert.Equal(t, []string{"nashville", "newartist", "fiddle"}, summary.TopKeywords)
	assert.False(t, result.IsSoftFailure())
	assert.True(t, (&ExplorationResult{}).IsSoftFailure())
}

func TestNewInsightRequest_CapsDiscoveries(t *testing.T) {
	result := &ExplorationResult{SeedKeyword: "countrymusic"}
	for i := 0; i < 15; i++ {
		result.Discoveries = append(result.Discoveries, Discovery{Keyword: "k"})
	}
	req := NewInsightRequest(result)
	assert.Len(t, req.Discoveries, MaxInsightDiscoveries)
	assert.Equal(t, "countrymusic", req.SeedKeyword)
}
