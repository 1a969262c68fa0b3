package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"trendscout/domain/core/aggregates"
	"trendscout/domain/core/entities"
)

// Visualization palette
const (
	seedColor          = "#ff6b6b"
	discoveredColor    = "#4ecdc4"
	intermediateColor  = "#95a5a6"
	discoveryEdgeColor = "#f39c12"
	plainEdgeColor     = "#bdc3c7"
)

// Layered layout geometry
const (
	layoutWidth      = 1000.0
	layoutBandHeight = 150.0
	layoutTopMargin  = 50.0
)

// NetworkStats summarizes the shape of an exploration network
type NetworkStats struct {
	TotalNodes         int     `json:"totalNodes"`
	TotalEdges         int     `json:"totalEdges"`
	SeedNodes          int     `json:"seedNodes"`
	DiscoveredNodes    int     `json:"discoveredNodes"`
	IntermediateNodes  int     `json:"intermediateNodes"`
	DiscoveryPathEdges int     `json:"discoveryPathEdges"`
	AverageDepth       float64 `json:"averageDepth"`
	MaxDepth           int     `json:"maxDepth"`
}

// HubNode is a node ranked by its number of incident edges
type HubNode struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Type      entities.NodeType `json:"type"`
	InDegree  int               `json:"inDegree"`
	OutDegree int               `json:"outDegree"`
	Degree    int               `json:"degree"`
}

// DiscoveryPath is the chain that led to one Discovery
type DiscoveryPath struct {
	Keyword string   `json:"keyword"`
	Path    []string `json:"path"`
	Depth   int      `json:"depth"`
}

// VisualNode is a node in the rendering format consumed by graph widgets
type VisualNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Size  float64 `json:"size"`
	Group string  `json:"group"`
	Color string  `json:"color"`
	Level int     `json:"level"`
	Title string  `json:"title"`
}

// VisualEdge is an edge in the rendering format
type VisualEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Width  float64 `json:"width"`
	Color  string  `json:"color"`
	Dashes bool    `json:"dashes"`
}

// VisualNetwork is the rendering format of a network
type VisualNetwork struct {
	Nodes []VisualNode `json:"nodes"`
	Edges []VisualEdge `json:"edges"`
}

// Position is a layout coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NetworkGraphBuilder turns a finished run into a graph and derives
// statistics, hubs and layouts from it. It holds no state.
type NetworkGraphBuilder struct{}

// NewNetworkGraphBuilder creates a new graph builder
func NewNetworkGraphBuilder() *NetworkGraphBuilder {
	return &NetworkGraphBuilder{}
}

// BuildNetworkFromContext flattens the run's nodes and edges and marks the
// edges that lie on a recorded discovery path.
func (b *NetworkGraphBuilder) BuildNetworkFromContext(ctx *aggregates.ExplorationContext) entities.ExplorationNetwork {
	network := entities.ExplorationNetwork{
		Nodes: ctx.Nodes(),
		Edges: ctx.Edges(),
	}
	return b.HighlightDiscoveryPaths(network, ctx.Discoveries())
}

// HighlightDiscoveryPaths sets IsDiscoveryPath on every edge whose exact
// source/target pair appears consecutively in a discovery path.
func (b *NetworkGraphBuilder) HighlightDiscoveryPaths(
	network entities.ExplorationNetwork,
	discoveries []entities.Discovery,
) entities.ExplorationNetwork {
	onPath := make(map[[2]string]struct{})
	for _, d := range discoveries {
		for i := 0; i+1 < len(d.DiscoveryPath); i++ {
			onPath[[2]string{d.DiscoveryPath[i], d.DiscoveryPath[i+1]}] = struct{}{}
		}
	}

	edges := make([]entities.NetworkEdge, len(network.Edges))
	for i, e := range network.Edges {
		if _, ok := onPath[[2]string{e.Source, e.Target}]; ok {
			e.IsDiscoveryPath = true
		}
		edges[i] = e
	}
	network.Edges = edges
	return network
}

// CalculateNetworkStats counts nodes by type and measures depth
func (b *NetworkGraphBuilder) CalculateNetworkStats(network entities.ExplorationNetwork) NetworkStats {
	stats := NetworkStats{
		TotalNodes: len(network.Nodes),
		TotalEdges: len(network.Edges),
	}

	depthSum := 0
	for _, n := range network.Nodes {
		switch n.Type {
		case entities.NodeTypeSeed:
			stats.SeedNodes++
		case entities.NodeTypeDiscovered:
			stats.DiscoveredNodes++
		case entities.NodeTypeIntermediate:
			stats.IntermediateNodes++
		}
		depthSum += n.Depth
		if n.Depth > stats.MaxDepth {
			stats.MaxDepth = n.Depth
		}
	}
	if len(network.Nodes) > 0 {
		stats.AverageDepth = float64(depthSum) / float64(len(network.Nodes))
	}

	for _, e := range network.Edges {
		if e.IsDiscoveryPath {
			stats.DiscoveryPathEdges++
		}
	}
	return stats
}

// FindHubNodes ranks nodes by in+out degree and returns the top k. Ties are
// broken by id.
func (b *NetworkGraphBuilder) FindHubNodes(network entities.ExplorationNetwork, k int) []HubNode {
	if k <= 0 {
		return []HubNode{}
	}

	inDegree := make(map[string]int)
	outDegree := make(map[string]int)
	for _, e := range network.Edges {
		outDegree[e.Source]++
		inDegree[e.Target]++
	}

	hubs := make([]HubNode, 0, len(network.Nodes))
	for _, n := range network.Nodes {
		hubs = append(hubs, HubNode{
			ID:        n.ID,
			Label:     n.Label,
			Type:      n.Type,
			InDegree:  inDegree[n.ID],
			OutDegree: outDegree[n.ID],
			Degree:    inDegree[n.ID] + outDegree[n.ID],
		})
	}

	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].ID < hubs[j].ID
	})

	if len(hubs) > k {
		hubs = hubs[:k]
	}
	return hubs
}

// ExtractDiscoveryPaths lists keyword, path and depth for every Discovery
func (b *NetworkGraphBuilder) ExtractDiscoveryPaths(discoveries []entities.Discovery) []DiscoveryPath {
	paths := make([]DiscoveryPath, 0, len(discoveries))
	for _, d := range discoveries {
		path := make([]string, len(d.DiscoveryPath))
		copy(path, d.DiscoveryPath)
		paths = append(paths, DiscoveryPath{
			Keyword: d.Keyword,
			Path:    path,
			Depth:   d.Depth,
		})
	}
	return paths
}

// ToVisualizationFormat maps the network onto sizes, colors and dash styles
func (b *NetworkGraphBuilder) ToVisualizationFormat(network entities.ExplorationNetwork) VisualNetwork {
	visual := VisualNetwork{
		Nodes: make([]VisualNode, 0, len(network.Nodes)),
		Edges: make([]VisualEdge, 0, len(network.Edges)),
	}

	for _, n := range network.Nodes {
		visual.Nodes = append(visual.Nodes, VisualNode{
			ID:    n.ID,
			Label: n.Label,
			Size:  10 + n.Weight/100*30,
			Group: string(n.Type),
			Color: nodeColor(n.Type),
			Level: n.Depth,
			Title: nodeTitle(n),
		})
	}

	for _, e := range network.Edges {
		edge := VisualEdge{
			From:   e.Source,
			To:     e.Target,
			Width:  1 + math.Min(e.Weight, 10)*0.5,
			Color:  plainEdgeColor,
			Dashes: true,
		}
		if e.IsDiscoveryPath {
			edge.Color = discoveryEdgeColor
			edge.Dashes = false
		}
		visual.Edges = append(visual.Edges, edge)
	}
	return visual
}

func nodeColor(t entities.NodeType) string {
	switch t {
	case entities.NodeTypeSeed:
		return seedColor
	case entities.NodeTypeDiscovered:
		return discoveredColor
	default:
		return intermediateColor
	}
}

func nodeTitle(n entities.NetworkNode) string {
	if n.NoveltyScore == nil || n.PopularityScore == nil {
		return n.Label
	}
	return fmt.Sprintf("%s (novelty %d, popularity %d)", n.Label, *n.NoveltyScore, *n.PopularityScore)
}

// CalculateLayeredLayout places nodes in horizontal bands by depth, spaced
// evenly across each band. Nodes inside a band are ordered by id.
func (b *NetworkGraphBuilder) CalculateLayeredLayout(network entities.ExplorationNetwork) map[string]Position {
	bands := make(map[int][]string)
	for _, n := range network.Nodes {
		bands[n.Depth] = append(bands[n.Depth], n.ID)
	}

	positions := make(map[string]Position, len(network.Nodes))
	for depth, ids := range bands {
		sort.Strings(ids)
		y := float64(depth)*layoutBandHeight + layoutTopMargin
		spacing := layoutWidth / float64(len(ids)+1)
		for i, id := range ids {
			positions[id] = Position{X: float64(i+1) * spacing, Y: y}
		}
	}
	return positions
}

// SerializeNetwork encodes a network as JSON
func (b *NetworkGraphBuilder) SerializeNetwork(network entities.ExplorationNetwork) ([]byte, error) {
	data, err := json.Marshal(network)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize network: %w", err)
	}
	return data, nil
}

// DeserializeNetwork decodes a network produced by SerializeNetwork
func (b *NetworkGraphBuilder) DeserializeNetwork(data []byte) (entities.ExplorationNetwork, error) {
	var network entities.ExplorationNetwork
	if err := json.Unmarshal(data, &network); err != nil {
		return entities.ExplorationNetwork{}, fmt.Errorf("failed to deserialize network: %w", err)
	}
	return network, nil
}
