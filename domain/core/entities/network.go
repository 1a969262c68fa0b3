package entities

// NodeType classifies a node in the exploration network
type NodeType string

const (
	NodeTypeSeed         NodeType = "seed"
	NodeTypeDiscovered   NodeType = "discovered"
	NodeTypeIntermediate NodeType = "intermediate"
)

// SeedNodeWeight is the visual weight given to the seed node
const SeedNodeWeight = 100

// NetworkNode is one keyword in the exploration graph
type NetworkNode struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Type            NodeType `json:"type"`
	Weight          float64  `json:"weight"`
	Depth           int      `json:"depth"`
	NoveltyScore    *int     `json:"noveltyScore,omitempty"`
	PopularityScore *int     `json:"popularityScore,omitempty"`
}

// NetworkEdge connects the keyword that was searched to a hashtag found in
// its results. Weight is the co-occurrence count at creation time.
type NetworkEdge struct {
	Source          string  `json:"source"`
	Target          string  `json:"target"`
	Weight          float64 `json:"weight"`
	IsDiscoveryPath bool    `json:"isDiscoveryPath"`
}

// ExplorationNetwork is the graph emitted with an exploration result
type ExplorationNetwork struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// NodeByID returns the node with the given id, if present
func (n ExplorationNetwork) NodeByID(id string) (NetworkNode, bool) {
	for _, node := range n.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return NetworkNode{}, false
}
