package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trendscout/application/commands"
	"trendscout/application/queries"
	querybus "trendscout/application/queries/bus"
	"trendscout/domain/core/entities"
	"trendscout/interfaces/http/rest/middleware"
	pkgerrors "trendscout/pkg/errors"
)

const maxRequestBody = 64 << 10

// ExploreCommandHandler runs an exploration command
type ExploreCommandHandler interface {
	Handle(ctx context.Context, cmd commands.ExploreTrendsCommand) (*entities.ExplorationResult, error)
}

// InsightsCommandHandler narrates a stored exploration
type InsightsCommandHandler interface {
	Handle(ctx context.Context, cmd commands.GenerateInsightsCommand) (*entities.TrendInsights, error)
}

// ExplorationHandler handles exploration HTTP requests
type ExplorationHandler struct {
	explore  ExploreCommandHandler
	insights InsightsCommandHandler
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExplorationHandler creates a new exploration handler. A positive
// timeout bounds each exploration run; the engine returns what it found
// when the deadline passes.
func NewExplorationHandler(
	explore ExploreCommandHandler,
	insights InsightsCommandHandler,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	timeout time.Duration,
	logger *zap.Logger,
) *ExplorationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorHandler == nil {
		errorHandler = pkgerrors.NewErrorHandler(logger, false)
	}
	return &ExplorationHandler{
		explore:  explore,
		insights: insights,
		queryBus: queryBus,
		errors:   errorHandler,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateExplorationRequest represents the request body for running an exploration
type CreateExplorationRequest struct {
	SeedKeyword  string `json:"seedKeyword"`
	Depth        int    `json:"depth,omitempty"`
	Strategy     string `json:"strategy,omitempty"`
	ExcludeKnown *bool  `json:"excludeKnown,omitempty"` // defaults to true
	UserID       string `json:"userId,omitempty"`
}

// CreateExploration handles POST /api/v1/explorations
func (h *ExplorationHandler) CreateExploration(w http.ResponseWriter, r *http.Request) {
	var req CreateExplorationRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	excludeKnown := true
	if req.ExcludeKnown != nil {
		excludeKnown = *req.ExcludeKnown
	}
	userID := req.UserID
	if userID == "" {
		userID = r.Header.Get(middleware.UserIDHeader)
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.explore.Handle(ctx, commands.ExploreTrendsCommand{
		SeedKeyword:  req.SeedKeyword,
		Depth:        req.Depth,
		Strategy:     req.Strategy,
		ExcludeKnown: excludeKnown,
		UserID:       userID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if result.IsSoftFailure() {
		h.logger.Warn("Exploration found nothing",
			zap.String("exploration_id", result.ExplorationID),
			zap.String("seed", result.SeedKeyword),
		)
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListExplorations handles GET /api/v1/explorations
func (h *ExplorationHandler) ListExplorations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.Header.Get(middleware.UserIDHeader)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be an integer"))
			return
		}
		limit = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListExplorationsQuery{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// GetExploration handles GET /api/v1/explorations/{explorationID}
func (h *ExplorationHandler) GetExploration(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetExplorationQuery{
		ExplorationID: chi.URLParam(r, "explorationID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// GetVisualization handles GET /api/v1/explorations/{explorationID}/visualization
func (h *ExplorationHandler) GetVisualization(w http.ResponseWriter, r *http.Request) {
	hubs := 0
	if raw := r.URL.Query().Get("hubs"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("hubs must be an integer"))
			return
		}
		hubs = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetVisualizationQuery{
		ExplorationID: chi.URLParam(r, "explorationID"),
		HubCount:      hubs,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// GenerateInsights handles POST /api/v1/explorations/{explorationID}/insights
func (h *ExplorationHandler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		h.errors.Handle(w, r, pkgerrors.NewNotImplementedError("trend insights"))
		return
	}

	insights, err := h.insights.Handle(r.Context(), commands.GenerateInsightsCommand{
		ExplorationID: chi.URLParam(r, "explorationID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if insights == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, insights)
}
