package queries

import (
	"context"
	"errors"

	"trendscout/application/ports"
	"trendscout/application/queries/bus"
	"trendscout/domain/core/entities"
	pkgerrors "trendscout/pkg/errors"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListExplorationsQuery represents a query to list a user's explorations
type ListExplorationsQuery struct {
	UserID string
	Limit  int
}

// Validate validates the query
func (q ListExplorationsQuery) Validate() error {
	if q.UserID == "" {
		return pkgerrors.NewValidationError("user ID is required")
	}
	if q.Limit < 0 {
		return pkgerrors.NewValidationError("limit cannot be negative")
	}
	if q.Limit > MaxListLimit {
		return pkgerrors.NewValidationError("limit cannot exceed 100")
	}
	return nil
}

// ListExplorationsResult represents the result of listing explorations
type ListExplorationsResult struct {
	Explorations []entities.ExplorationSummary `json:"explorations"`
	Count        int                           `json:"count"`
	Limit        int                           `json:"limit"`
}

// ListExplorationsHandler lists stored exploration summaries, newest first
type ListExplorationsHandler struct {
	repo ports.ExplorationRepository
}

// NewListExplorationsHandler creates a new handler
func NewListExplorationsHandler(repo ports.ExplorationRepository) *ListExplorationsHandler {
	return &ListExplorationsHandler{repo: repo}
}

// Handle implements bus.QueryHandler
func (h *ListExplorationsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(ListExplorationsQuery)
	if !ok {
		return nil, errors.New("invalid query type")
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	results, err := h.repo.ListByUser(ctx, q.UserID, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]entities.ExplorationSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.Summary())
	}
	return &ListExplorationsResult{
		Explorations: summaries,
		Count:        len(summaries),
		Limit:        limit,
	}, nil
}
