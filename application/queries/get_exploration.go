package queries

import (
	"context"
	"errors"

	"trendscout/application/ports"
	"trendscout/application/queries/bus"
	"trendscout/domain/core/entities"
	pkgerrors "trendscout/pkg/errors"
)

// GetExplorationQuery represents a query to get a stored exploration
type GetExplorationQuery struct {
	ExplorationID string
}

// Validate validates the query
func (q GetExplorationQuery) Validate() error {
	if q.ExplorationID == "" {
		return pkgerrors.NewValidationError("exploration ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetExplorationQuery) CacheKey() string { return q.ExplorationID }

// GetExplorationHandler loads a stored exploration result
type GetExplorationHandler struct {
	repo ports.ExplorationRepository
}

// NewGetExplorationHandler creates a new handler
func NewGetExplorationHandler(repo ports.ExplorationRepository) *GetExplorationHandler {
	return &GetExplorationHandler{repo: repo}
}

// Handle implements bus.QueryHandler
func (h *GetExplorationHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(GetExplorationQuery)
	if !ok {
		return nil, errors.New("invalid query type")
	}
	return loadExploration(ctx, h.repo, q.ExplorationID)
}

func loadExploration(ctx context.Context, repo ports.ExplorationRepository, id string) (*entities.ExplorationResult, error) {
	result, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, pkgerrors.NewNotFoundError("exploration")
	}
	return result, nil
}
