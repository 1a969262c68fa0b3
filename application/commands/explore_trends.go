package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"trendscout/application/ports"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
	"trendscout/domain/events"
	pkgerrors "trendscout/pkg/errors"
	"trendscout/pkg/utils"
)

// ExploreTrendsCommand represents the command to run an exploration
type ExploreTrendsCommand struct {
	SeedKeyword  string `json:"seedKeyword" validate:"required,max=100"`
	Depth        int    `json:"depth" validate:"min=0,max=3"`
	Strategy     string `json:"strategy" validate:"omitempty,oneof=novelty popularity balanced"`
	ExcludeKnown bool   `json:"excludeKnown"`
	UserID       string `json:"userId" validate:"max=128"`
}

// ToRequest converts the command into the engine's request
func (c ExploreTrendsCommand) ToRequest() entities.ExplorationRequest {
	return entities.ExplorationRequest{
		SeedKeyword:  c.SeedKeyword,
		Depth:        c.Depth,
		Strategy:     valueobjects.Strategy(c.Strategy),
		ExcludeKnown: c.ExcludeKnown,
		UserID:       c.UserID,
	}
}

// Explorer runs explorations
type Explorer interface {
	Explore(ctx context.Context, req entities.ExplorationRequest) (*entities.ExplorationResult, error)
}

// ExploreTrendsHandler handles the ExploreTrendsCommand
type ExploreTrendsHandler struct {
	engine    Explorer
	repo      ports.ExplorationRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewExploreTrendsHandler creates a new handler instance
func NewExploreTrendsHandler(
	engine Explorer,
	repo ports.ExplorationRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ExploreTrendsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExploreTrendsHandler{
		engine:    engine,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle runs the exploration, stores the result and announces it. Storage
// and publishing failures are logged; the result is still returned.
func (h *ExploreTrendsHandler) Handle(ctx context.Context, cmd ExploreTrendsCommand) (*entities.ExplorationResult, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, validationError(err)
	}

	result, err := h.engine.Explore(ctx, cmd.ToRequest())
	if err != nil {
		return nil, err
	}

	// The run is complete; a caller hanging up must not lose the record
	detached := context.WithoutCancel(ctx)

	if h.repo != nil {
		if err := h.repo.Save(detached, result); err != nil {
			h.logger.Error("Failed to store exploration result",
				zap.String("exploration_id", result.ExplorationID),
				zap.Error(err),
			)
		}
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(detached, events.NewExplorationCompleted(result)); err != nil {
			h.logger.Warn("Failed to publish exploration event",
				zap.String("exploration_id", result.ExplorationID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// validationError carries per-field messages into the error details
func validationError(err error) error {
	appErr := pkgerrors.NewValidationError(err.Error())
	var fields utils.FieldErrors
	if errors.As(err, &fields) {
		appErr = appErr.WithDetails(fields.Map())
	}
	return appErr
}
