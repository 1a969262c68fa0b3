package aggregates

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

func newTestContext(t *testing.T) *ExplorationContext {
	t.Helper()
	ctx, err := NewExplorationContext(
		valueobjects.NewExplorationID(),
		"#CountryMusic",
		3,
		valueobjects.StrategyBalanced,
		"",
		nil,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return ctx
}

func TestNewExplorationContext_SeedsVisitedAndNode(t *testing.T) {
	ctx := newTestContext(t)

	assert.Equal(t, "countrymusic", ctx.Seed())
	assert.True(t, ctx.IsVisited("countrymusic"))

	node, ok := ctx.Node("countrymusic")
	require.True(t, ok)
	assert.Equal(t, entities.NodeTypeSeed, node.Type)
	assert.Equal(t, float64(entities.SeedNodeWeight), node.Weight)
	assert.Equal(t, 0, node.Depth)
}

func TestNewExplorationContext_RejectsEmptySeed(t *testing.T) {
	_, err := NewExplorationContext(valueobjects.NewExplorationID(), "  #", 1, valueobjects.StrategyBalanced, "", nil, time.Now())
	assert.Error(t, err)
}

func TestAddNode_FirstWriterWins(t *testing.T) {
	ctx := newTestContext(t)

	assert.True(t, ctx.AddNode(entities.NetworkNode{ID: "Nashville", Type: entities.NodeTypeDiscovered, Weight: 68, Depth: 1}))
	assert.False(t, ctx.AddNode(entities.NetworkNode{ID: "nashville", Type: entities.NodeTypeIntermediate, Weight: 10, Depth: 2}))

	node, ok := ctx.Node("nashville")
	require.True(t, ok)
	assert.Equal(t, entities.NodeTypeDiscovered, node.Type)
	assert.Equal(t, 68.0, node.Weight)
}

func TestAddEdge_SkipsSelfLoopsAndDuplicates(t *testing.T) {
	ctx := newTestContext(t)

	assert.True(t, ctx.AddEdge("countrymusic", "nashville", 20))
	assert.False(t, ctx.AddEdge("countrymusic", "#Nashville", 3))
	assert.False(t, ctx.AddEdge("nashville", "nashville", 1))
	assert.True(t, ctx.AddEdge("nashville", "countrymusic", 4))

	edges := ctx.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, 20.0, edges[0].Weight)
}

func TestMarkVisited_RequiresNode(t *testing.T) {
	ctx := newTestContext(t)

	assert.Error(t, ctx.MarkVisited("nashville"))

	ctx.AddNode(entities.NetworkNode{ID: "nashville", Depth: 1})
	require.NoError(t, ctx.MarkVisited("nashville"))
	assert.True(t, ctx.IsVisited("#nashville"))
}

func TestRecordDiscovery_OncePerKeyword(t *testing.T) {
	ctx := newTestContext(t)

	first := entities.Discovery{Keyword: "nashville", NoveltyScore: 63, DiscoveryPath: []string{"countrymusic", "nashville"}}
	assert.True(t, ctx.RecordDiscovery(first, entities.NetworkNode{ID: "nashville", Depth: 1}))
	assert.False(t, ctx.RecordDiscovery(entities.Discovery{Keyword: "Nashville", NoveltyScore: 99}, entities.NetworkNode{ID: "nashville", Depth: 2}))
	assert.False(t, ctx.RecordDiscovery(entities.Discovery{Keyword: "countrymusic"}, entities.NetworkNode{ID: "countrymusic"}))

	got, ok := ctx.DiscoveryFor("nashville")
	require.True(t, ok)
	assert.Equal(t, 63, got.NoveltyScore)
	assert.Len(t, ctx.Discoveries(), 1)
	assert.Equal(t, 2, ctx.NodeCount())
}

func TestNodes_SortedByDepthThenID(t *testing.T) {
	ctx := newTestContext(t)
	ctx.AddNode(entities.NetworkNode{ID: "zydeco", Depth: 1})
	ctx.AddNode(entities.NetworkNode{ID: "banjo", Depth: 2})
	ctx.AddNode(entities.NetworkNode{ID: "acoustic", Depth: 1})

	var ids []string
	for _, n := range ctx.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"countrymusic", "acoustic", "zydeco", "banjo"}, ids)
}

func TestPathFromSeed(t *testing.T) {
	ctx := newTestContext(t)
	ctx.AddEdge("countrymusic", "nashville", 20)
	ctx.AddEdge("countrymusic", "newartist", 5)
	ctx.AddEdge("nashville", "honkytonk", 4)
	ctx.AddEdge("honkytonk", "broadway", 2)

	assert.Equal(t, []string{"countrymusic"}, ctx.PathFromSeed("countrymusic"))
	assert.Equal(t, []string{"countrymusic", "nashville", "honkytonk", "broadway"}, ctx.PathFromSeed("broadway"))
	assert.Nil(t, ctx.PathFromSeed("unreachable"))
}

func TestCounters_ConcurrentUpdates(t *testing.T) {
	ctx := newTestContext(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.IncrementSearches()
			ctx.AddContentAnalyzed(3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, ctx.SearchCount())
	assert.Equal(t, 60, ctx.ContentAnalyzed())

	ctx.CompleteLevel()
	assert.Equal(t, 1, ctx.LevelsCompleted())
}

func TestReserveSearch_RespectsBudget(t *testing.T) {
	ctx := newTestContext(t)

	assert.True(t, ctx.ReserveSearch(2))
	assert.True(t, ctx.ReserveSearch(2))
	assert.False(t, ctx.ReserveSearch(2))
	assert.Equal(t, 2, ctx.SearchCount())

	assert.True(t, ctx.ReserveSearch(0))
	assert.Equal(t, 3, ctx.SearchCount())
}
