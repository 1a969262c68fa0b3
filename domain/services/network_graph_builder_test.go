package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/domain/core/aggregates"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

func intPtr(v int) *int { return &v }

// buildCountryContext records countrymusic -> nashville -> honkytonk with
// newartist as a low-novelty intermediate.
func buildCountryContext(t *testing.T) *aggregates.ExplorationContext {
	t.Helper()

	ctx, err := aggregates.NewExplorationContext(
		valueobjects.NewExplorationID(), "countrymusic", 2, valueobjects.StrategyBalanced, "", nil, fixedNow,
	)
	require.NoError(t, err)

	require.True(t, ctx.RecordDiscovery(entities.Discovery{
		Keyword: "nashville", NoveltyScore: 63, PopularityScore: 72, TotalScore: 68,
		DiscoveryPath: []string{"countrymusic", "nashville"}, Depth: 1,
	}, entities.NetworkNode{
		ID: "nashville", Label: "nashville", Type: entities.NodeTypeDiscovered, Weight: 68, Depth: 1,
		NoveltyScore: intPtr(63), PopularityScore: intPtr(72),
	}))
	require.True(t, ctx.RecordDiscovery(entities.Discovery{
		Keyword: "newartist", NoveltyScore: 40, TotalScore: 37,
		DiscoveryPath: []string{"countrymusic", "newartist"}, Depth: 1,
	}, entities.NetworkNode{
		ID: "newartist", Label: "newartist", Type: entities.NodeTypeIntermediate, Weight: 37, Depth: 1,
	}))
	require.True(t, ctx.RecordDiscovery(entities.Discovery{
		Keyword: "honkytonk", NoveltyScore: 70, TotalScore: 55,
		DiscoveryPath: []string{"countrymusic", "nashville", "honkytonk"}, Depth: 2,
	}, entities.NetworkNode{
		ID: "honkytonk", Label: "honkytonk", Type: entities.NodeTypeDiscovered, Weight: 55, Depth: 2,
	}))

	ctx.AddEdge("countrymusic", "nashville", 20)
	ctx.AddEdge("countrymusic", "newartist", 5)
	ctx.AddEdge("nashville", "honkytonk", 4)
	ctx.AddEdge("nashville", "newartist", 2)
	return ctx
}

func TestBuildNetworkFromContext_HighlightsPaths(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	network := builder.BuildNetworkFromContext(buildCountryContext(t))

	require.Len(t, network.Nodes, 4)
	assert.Equal(t, "countrymusic", network.Nodes[0].ID)

	flags := map[string]bool{}
	for _, e := range network.Edges {
		flags[e.Source+">"+e.Target] = e.IsDiscoveryPath
	}
	assert.True(t, flags["countrymusic>nashville"])
	assert.True(t, flags["countrymusic>newartist"])
	assert.True(t, flags["nashville>honkytonk"])
	assert.False(t, flags["nashville>newartist"])
}

func TestHighlightDiscoveryPaths_DoesNotMutateInput(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	network := entities.ExplorationNetwork{
		Edges: []entities.NetworkEdge{{Source: "a", Target: "b", Weight: 1}},
	}

	out := builder.HighlightDiscoveryPaths(network, []entities.Discovery{{Keyword: "b", DiscoveryPath: []string{"a", "b"}}})

	assert.True(t, out.Edges[0].IsDiscoveryPath)
	assert.False(t, network.Edges[0].IsDiscoveryPath)
}

func TestCalculateNetworkStats(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	stats := builder.CalculateNetworkStats(builder.BuildNetworkFromContext(buildCountryContext(t)))

	assert.Equal(t, NetworkStats{
		TotalNodes:         4,
		TotalEdges:         4,
		SeedNodes:          1,
		DiscoveredNodes:    2,
		IntermediateNodes:  1,
		DiscoveryPathEdges: 3,
		AverageDepth:       1.0,
		MaxDepth:           2,
	}, stats)

	assert.Equal(t, NetworkStats{}, builder.CalculateNetworkStats(entities.ExplorationNetwork{}))
}

func TestFindHubNodes(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	network := builder.BuildNetworkFromContext(buildCountryContext(t))

	hubs := builder.FindHubNodes(network, 2)
	require.Len(t, hubs, 2)
	// nashville: in 1 + out 2; countrymusic: out 2; newartist: in 2
	assert.Equal(t, "nashville", hubs[0].ID)
	assert.Equal(t, 3, hubs[0].Degree)
	assert.Equal(t, "countrymusic", hubs[1].ID)

	assert.Empty(t, builder.FindHubNodes(network, 0))
	assert.Len(t, builder.FindHubNodes(network, 50), 4)
}

func TestExtractDiscoveryPaths(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	discoveries := []entities.Discovery{
		{Keyword: "honkytonk", Depth: 2, DiscoveryPath: []string{"countrymusic", "nashville", "honkytonk"}},
	}

	paths := builder.ExtractDiscoveryPaths(discoveries)
	require.Len(t, paths, 1)
	assert.Equal(t, DiscoveryPath{Keyword: "honkytonk", Depth: 2, Path: []string{"countrymusic", "nashville", "honkytonk"}}, paths[0])

	paths[0].Path[0] = "changed"
	assert.Equal(t, "countrymusic", discoveries[0].DiscoveryPath[0])
}

func TestToVisualizationFormat(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	visual := builder.ToVisualizationFormat(builder.BuildNetworkFromContext(buildCountryContext(t)))

	nodes := map[string]VisualNode{}
	for _, n := range visual.Nodes {
		nodes[n.ID] = n
	}
	assert.Equal(t, seedColor, nodes["countrymusic"].Color)
	assert.InDelta(t, 40.0, nodes["countrymusic"].Size, 1e-9)
	assert.Equal(t, discoveredColor, nodes["nashville"].Color)
	assert.Equal(t, "nashville (novelty 63, popularity 72)", nodes["nashville"].Title)
	assert.Equal(t, intermediateColor, nodes["newartist"].Color)
	assert.Equal(t, "intermediate", nodes["newartist"].Group)

	edges := map[string]VisualEdge{}
	for _, e := range visual.Edges {
		edges[e.From+">"+e.To] = e
	}
	assert.Equal(t, discoveryEdgeColor, edges["countrymusic>nashville"].Color)
	assert.False(t, edges["countrymusic>nashville"].Dashes)
	assert.InDelta(t, 6.0, edges["countrymusic>nashville"].Width, 1e-9)
	assert.True(t, edges["nashville>newartist"].Dashes)
	assert.InDelta(t, 2.0, edges["nashville>newartist"].Width, 1e-9)
}

func TestCalculateLayeredLayout(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	positions := builder.CalculateLayeredLayout(builder.BuildNetworkFromContext(buildCountryContext(t)))

	require.Len(t, positions, 4)
	assert.Equal(t, Position{X: 500, Y: 50}, positions["countrymusic"])
	assert.Equal(t, Position{X: 1000.0 / 3, Y: 200}, positions["nashville"])
	assert.Equal(t, Position{X: 2000.0 / 3, Y: 200}, positions["newartist"])
	assert.Equal(t, Position{X: 500, Y: 350}, positions["honkytonk"])

	again := builder.CalculateLayeredLayout(builder.BuildNetworkFromContext(buildCountryContext(t)))
	assert.Equal(t, positions, again)
}

func TestSerializeNetwork_RoundTrip(t *testing.T) {
	builder := NewNetworkGraphBuilder()
	network := builder.BuildNetworkFromContext(buildCountryContext(t))

	data, err := builder.SerializeNetwork(network)
	require.NoError(t, err)

	decoded, err := builder.DeserializeNetwork(data)
	require.NoError(t, err)
	assert.Equal(t, network, decoded)

	_, err = builder.DeserializeNetwork([]byte("{"))
	assert.Error(t, err)
}
