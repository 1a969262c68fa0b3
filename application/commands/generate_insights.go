package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"trendscout/application/ports"
	"trendscout/domain/core/entities"
	"trendscout/domain/events"
	pkgerrors "trendscout/pkg/errors"
	"trendscout/pkg/utils"
)

// GenerateInsightsCommand asks for a narrated summary of a stored exploration
type GenerateInsightsCommand struct {
	ExplorationID string `json:"explorationId" validate:"required,uuid"`
}

// GenerateInsightsHandler handles the GenerateInsightsCommand
type GenerateInsightsHandler struct {
	repo       ports.ExplorationRepository
	summarizer ports.InsightSummarizer
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewGenerateInsightsHandler creates a new handler instance
func NewGenerateInsightsHandler(
	repo ports.ExplorationRepository,
	summarizer ports.InsightSummarizer,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *GenerateInsightsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateInsightsHandler{
		repo:       repo,
		summarizer: summarizer,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle loads the result and passes its top discoveries to the summarizer.
// A nil result with a nil error means the summarizer had nothing to say.
func (h *GenerateInsightsHandler) Handle(ctx context.Context, cmd GenerateInsightsCommand) (*entities.TrendInsights, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, validationError(err)
	}
	if h.summarizer == nil || !h.summarizer.Enabled() {
		return nil, pkgerrors.NewNotImplementedError("trend insights")
	}

	result, err := h.repo.GetByID(ctx, cmd.ExplorationID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, pkgerrors.NewNotFoundError("exploration")
	}
	if len(result.Discoveries) == 0 {
		return nil, nil
	}

	insights, err := h.summarizer.Analyze(ctx, entities.NewInsightRequest(result))
	if err != nil {
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewExternalError("insight summarizer", err)
	}
	if insights == nil {
		return nil, nil
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, events.NewInsightsGenerated(result.ExplorationID, insights)); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("Failed to publish insights event",
				zap.String("exploration_id", result.ExplorationID),
				zap.Error(err),
			)
		}
	}
	return insights, nil
}
