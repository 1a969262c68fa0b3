package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trendscout/domain/config"
	"trendscout/domain/core/entities"
	domainservices "trendscout/domain/services"
)

func TestPoolCandidates_KeepsHigherOccurrences(t *testing.T) {
	pooled := PoolCandidates([]entities.HashtagCandidate{
		{Tag: "banjo", Occurrences: 2, AvgEngagement: 1},
		{Tag: "fiddle", Occurrences: 4},
		{Tag: "#Banjo", Occurrences: 6, AvgEngagement: 9},
		{Tag: "fiddle", Occurrences: 1},
		{Tag: "#", Occurrences: 10},
	})

	require.Len(t, pooled, 2)
	assert.Equal(t, "banjo", pooled[0].Tag)
	assert.Equal(t, 6, pooled[0].Occurrences)
	assert.Equal(t, 9.0, pooled[0].AvgEngagement)
	assert.Equal(t, "fiddle", pooled[1].Tag)
	assert.Equal(t, 4, pooled[1].Occurrences)
}

func TestFrontierSelector_SelectMarksVisited(t *testing.T) {
	ectx := newRunContext(t, "countrymusic")
	explorer := newTestExplorer(countryMusicProvider(), config.DefaultExplorationConfig())
	candidates := explorer.Explore(context.Background(), ectx, "countrymusic", 1)

	selector := NewFrontierSelector(domainservices.NewNoveltyScorer(fixedClock, 30), 5, zap.NewNop())
	frontier := selector.Select(ectx, candidates, 1)

	assert.Equal(t, []string{"nashville", "newartist"}, frontier)
	assert.True(t, ectx.IsVisited("nashville"))
	assert.True(t, ectx.IsVisited("newartist"))

	// a second pass over the same candidates finds nothing new
	assert.Empty(t, selector.Select(ectx, candidates, 1))
}

func TestFrontierSelector_RespectsCap(t *testing.T) {
	ectx := newRunContext(t, "countrymusic")
	explorer := newTestExplorer(countryMusicProvider(), config.DefaultExplorationConfig())
	candidates := explorer.Explore(context.Background(), ectx, "countrymusic", 1)

	selector := NewFrontierSelector(domainservices.NewNoveltyScorer(fixedClock, 30), 1, nil)
	assert.Equal(t, []string{"nashville"}, selector.Select(ectx, candidates, 1))
	assert.False(t, ectx.IsVisited("newartist"))
}
