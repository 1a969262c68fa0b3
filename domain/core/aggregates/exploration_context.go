package aggregates

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

// ExplorationContext is the traversal state of a single run. The engine owns
// it for the lifetime of the run; nothing in it outlives the call. All
// mutations take the lock, so keywords of one level may be explored
// concurrently while node and edge insertion stay serialized.
type ExplorationContext struct {
	mu sync.RWMutex

	id        valueobjects.ExplorationID
	seed      string
	depth     int
	strategy  valueobjects.Strategy
	userID    string
	history   *entities.UserKeywordHistory
	startedAt time.Time

	visited     map[string]struct{}
	nodes       map[string]entities.NetworkNode
	nodeOrder   []string
	edges       []entities.NetworkEdge
	edgeIndex   map[edgeKey]struct{}
	discoveries []entities.Discovery
	byKeyword   map[string]int

	searches        int
	contentAnalyzed int
	levelsCompleted int
}

type edgeKey struct {
	source string
	target string
}

// NewExplorationContext creates the traversal state with the seed already
// visited and present as the seed node.
func NewExplorationContext(
	id valueobjects.ExplorationID,
	seedKeyword string,
	depth int,
	strategy valueobjects.Strategy,
	userID string,
	history *entities.UserKeywordHistory,
	startedAt time.Time,
) (*ExplorationContext, error) {
	seed := valueobjects.NormalizeKeyword(seedKeyword)
	if seed == "" {
		return nil, fmt.Errorf("seed keyword is required")
	}

	ctx := &ExplorationContext{
		id:        id,
		seed:      seed,
		depth:     depth,
		strategy:  strategy,
		userID:    userID,
		history:   history,
		startedAt: startedAt,
		visited:   make(map[string]struct{}),
		nodes:     make(map[string]entities.NetworkNode),
		edgeIndex: make(map[edgeKey]struct{}),
		byKeyword: make(map[string]int),
	}

	ctx.nodes[seed] = entities.NetworkNode{
		ID:     seed,
		Label:  seed,
		Type:   entities.NodeTypeSeed,
		Weight: entities.SeedNodeWeight,
		Depth:  0,
	}
	ctx.nodeOrder = append(ctx.nodeOrder, seed)
	ctx.visited[seed] = struct{}{}

	return ctx, nil
}

// ID returns the exploration identifier
func (c *ExplorationContext) ID() valueobjects.ExplorationID { return c.id }

// Seed returns the normalized seed keyword
func (c *ExplorationContext) Seed() string { return c.seed }

// Depth returns the configured number of levels
func (c *ExplorationContext) Depth() int { return c.depth }

// Strategy returns the scoring strategy of the run
func (c *ExplorationContext) Strategy() valueobjects.Strategy { return c.strategy }

// UserID returns the requesting user, if any
func (c *ExplorationContext) UserID() string { return c.userID }

// History returns the user history loaded for the run, nil when unavailable
func (c *ExplorationContext) History() *entities.UserKeywordHistory { return c.history }

// StartedAt returns when the run began
func (c *ExplorationContext) StartedAt() time.Time { return c.startedAt }

// IsVisited reports whether the keyword was selected for exploration
func (c *ExplorationContext) IsVisited(keyword string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.visited[valueobjects.NormalizeKeyword(keyword)]
	return ok
}

// MarkVisited adds a keyword to the visited set. Only keywords that already
// have a node may be visited.
func (c *ExplorationContext) MarkVisited(keyword string) error {
	key := valueobjects.NormalizeKeyword(keyword)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[key]; !ok {
		return fmt.Errorf("cannot visit %q: no node recorded", key)
	}
	c.visited[key] = struct{}{}
	return nil
}

// HasNode reports whether the keyword has a node in the network
func (c *ExplorationContext) HasNode(keyword string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.nodes[valueobjects.NormalizeKeyword(keyword)]
	return ok
}

// Node returns the node for a keyword
func (c *ExplorationContext) Node(keyword string) (entities.NetworkNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	node, ok := c.nodes[valueobjects.NormalizeKeyword(keyword)]
	return node, ok
}

// AddNode inserts a node unless one already exists for its id. The first
// writer wins; it returns false when the node was already present.
func (c *ExplorationContext) AddNode(node entities.NetworkNode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addNodeLocked(node)
}

func (c *ExplorationContext) addNodeLocked(node entities.NetworkNode) bool {
	node.ID = valueobjects.NormalizeKeyword(node.ID)
	if _, exists := c.nodes[node.ID]; exists {
		return false
	}
	c.nodes[node.ID] = node
	c.nodeOrder = append(c.nodeOrder, node.ID)
	return true
}

// AddEdge appends a source->target edge. Self loops and repeated pairs are
// ignored, and the weight of an existing edge is never changed.
func (c *ExplorationContext) AddEdge(source, target string, weight float64) bool {
	key := edgeKey{
		source: valueobjects.NormalizeKeyword(source),
		target: valueobjects.NormalizeKeyword(target),
	}
	if key.source == key.target {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.edgeIndex[key]; exists {
		return false
	}
	c.edgeIndex[key] = struct{}{}
	c.edges = append(c.edges, entities.NetworkEdge{
		Source: key.source,
		Target: key.target,
		Weight: weight,
	})
	return true
}

// RecordDiscovery atomically records a first encounter: the node and its
// Discovery are stored together, and nothing is written when the keyword is
// already visited or node-present.
func (c *ExplorationContext) RecordDiscovery(discovery entities.Discovery, node entities.NetworkNode) bool {
	key := valueobjects.NormalizeKeyword(discovery.Keyword)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, visited := c.visited[key]; visited {
		return false
	}
	if _, exists := c.nodes[key]; exists {
		return false
	}
	if _, exists := c.byKeyword[key]; exists {
		return false
	}

	node.ID = key
	c.addNodeLocked(node)
	discovery.Keyword = key
	c.byKeyword[key] = len(c.discoveries)
	c.discoveries = append(c.discoveries, discovery)
	return true
}

// DiscoveryFor returns the Discovery recorded for a keyword
func (c *ExplorationContext) DiscoveryFor(keyword string) (entities.Discovery, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byKeyword[valueobjects.NormalizeKeyword(keyword)]
	if !ok {
		return entities.Discovery{}, false
	}
	return c.discoveries[idx], true
}

// Discoveries returns a copy of every Discovery in recording order
func (c *ExplorationContext) Discoveries() []entities.Discovery {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.Discovery, len(c.discoveries))
	copy(out, c.discoveries)
	return out
}

// Nodes returns the nodes sorted by depth, then id
func (c *ExplorationContext) Nodes() []entities.NetworkNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.NetworkNode, 0, len(c.nodes))
	for _, id := range c.nodeOrder {
		out = append(out, c.nodes[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NodeCount returns the number of nodes including the seed
func (c *ExplorationContext) NodeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// Edges returns a copy of the edge list
func (c *ExplorationContext) Edges() []entities.NetworkEdge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.NetworkEdge, len(c.edges))
	copy(out, c.edges)
	return out
}

// PathFromSeed finds the shortest seed->keyword chain over the recorded
// edges using BFS. It returns nil when the keyword is unreachable.
func (c *ExplorationContext) PathFromSeed(keyword string) []string {
	target := valueobjects.NormalizeKeyword(keyword)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if target == c.seed {
		return []string{c.seed}
	}

	adjacency := make(map[string][]string)
	for _, e := range c.edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	parent := map[string]string{}
	visited := map[string]bool{c.seed: true}
	queue := []string{c.seed}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current
			if next == target {
				return reconstructPath(c.seed, target, parent)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstructPath(start, end string, parent map[string]string) []string {
	path := []string{end}
	for current := end; current != start; {
		current = parent[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// IncrementSearches counts a search attempt and returns the new total
func (c *ExplorationContext) IncrementSearches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches++
	return c.searches
}

// ReserveSearch counts a search attempt unless the budget is spent. A limit
// of zero or less means unlimited.
func (c *ExplorationContext) ReserveSearch(limit int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > 0 && c.searches >= limit {
		return false
	}
	c.searches++
	return true
}

// AddContentAnalyzed counts content items returned by a search
func (c *ExplorationContext) AddContentAnalyzed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contentAnalyzed += n
}

// SearchCount returns the number of search attempts so far
func (c *ExplorationContext) SearchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.searches
}

// ContentAnalyzed returns the number of content items analyzed so far
func (c *ExplorationContext) ContentAnalyzed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contentAnalyzed
}

// CompleteLevel records that a level finished
func (c *ExplorationContext) CompleteLevel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levelsCompleted++
}

// LevelsCompleted returns how many levels finished
func (c *ExplorationContext) LevelsCompleted() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.levelsCompleted
}
