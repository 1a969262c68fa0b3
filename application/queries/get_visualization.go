package queries

import (
	"context"
	"errors"
	"strconv"

	"trendscout/application/ports"
	"trendscout/application/queries/bus"
	domainservices "trendscout/domain/services"
	pkgerrors "trendscout/pkg/errors"
)

// GetVisualizationQuery asks for the render-ready view of a stored exploration
type GetVisualizationQuery struct {
	ExplorationID string
	HubCount      int
}

// Validate validates the query
func (q GetVisualizationQuery) Validate() error {
	if q.ExplorationID == "" {
		return pkgerrors.NewValidationError("exploration ID is required")
	}
	if q.HubCount < 0 {
		return pkgerrors.NewValidationError("hub count cannot be negative")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetVisualizationQuery) CacheKey() string {
	return q.ExplorationID + "/" + strconv.Itoa(q.HubCount)
}

// VisualizationResult bundles everything a graph widget needs
type VisualizationResult struct {
	ExplorationID  string                             `json:"explorationId"`
	SeedKeyword    string                             `json:"seedKeyword"`
	Graph          domainservices.VisualNetwork       `json:"graph"`
	Layout         map[string]domainservices.Position `json:"layout"`
	Hubs           []domainservices.HubNode           `json:"hubs"`
	Stats          domainservices.NetworkStats        `json:"stats"`
	DiscoveryPaths []domainservices.DiscoveryPath     `json:"discoveryPaths"`
}

// GetVisualizationHandler derives the visualization of a stored exploration
type GetVisualizationHandler struct {
	repo            ports.ExplorationRepository
	builder         *domainservices.NetworkGraphBuilder
	defaultHubCount int
}

// NewGetVisualizationHandler creates a new handler
func NewGetVisualizationHandler(repo ports.ExplorationRepository, defaultHubCount int) *GetVisualizationHandler {
	return &GetVisualizationHandler{
		repo:            repo,
		builder:         domainservices.NewNetworkGraphBuilder(),
		defaultHubCount: defaultHubCount,
	}
}

// Handle implements bus.QueryHandler
func (h *GetVisualizationHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(GetVisualizationQuery)
	if !ok {
		return nil, errors.New("invalid query type")
	}

	result, err := loadExploration(ctx, h.repo, q.ExplorationID)
	if err != nil {
		return nil, err
	}

	hubCount := q.HubCount
	if hubCount == 0 {
		hubCount = h.defaultHubCount
	}

	network := result.Network
	return &VisualizationResult{
		ExplorationID:  result.ExplorationID,
		SeedKeyword:    result.SeedKeyword,
		Graph:          h.builder.ToVisualizationFormat(network),
		Layout:         h.builder.CalculateLayeredLayout(network),
		Hubs:           h.builder.FindHubNodes(network, hubCount),
		Stats:          h.builder.CalculateNetworkStats(network),
		DiscoveryPaths: h.builder.ExtractDiscoveryPaths(result.Discoveries),
	}, nil
}
