package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trendscout/application/ports"
	"trendscout/domain/config"
	"trendscout/domain/core/aggregates"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
	domainservices "trendscout/domain/services"
	pkgerrors "trendscout/pkg/errors"
)

// ExplorationEngine drives a run level by level: it seeds the context,
// explores each frontier keyword, selects the next frontier and finally
// builds the ranked discoveries and network.
type ExplorationEngine struct {
	provider ports.ContentSearchProvider
	history  ports.UserHistoryStore
	config   ports.ExplorationConfigSource
	builder  *domainservices.NetworkGraphBuilder
	metrics  ports.Metrics
	tracer   trace.Tracer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExplorationEngine creates an engine. history may be nil, in which case
// runs never load or record user history.
func NewExplorationEngine(
	provider ports.ContentSearchProvider,
	history ports.UserHistoryStore,
	cfg ports.ExplorationConfigSource,
	metrics ports.Metrics,
	logger *zap.Logger,
) *ExplorationEngine {
	if cfg == nil {
		cfg = config.DefaultExplorationConfig()
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExplorationEngine{
		provider: provider,
		history:  history,
		config:   cfg,
		builder:  domainservices.NewNetworkGraphBuilder(),
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the engine's clock
func (e *ExplorationEngine) WithClock(now func() time.Time) *ExplorationEngine {
	if now != nil {
		e.now = now
	}
	return e
}

// Explore runs one exploration. Only an invalid request is an error; search
// and history failures degrade the result instead. A cancelled context stops
// the run between keywords and returns what was found so far.
func (e *ExplorationEngine) Explore(ctx context.Context, req entities.ExplorationRequest) (*entities.ExplorationResult, error) {
	if reason := valueobjects.ValidateSeedKeyword(req.SeedKeyword); reason != "" {
		return nil, pkgerrors.NewValidationError(reason)
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = valueobjects.DefaultStrategy
	}
	if !strategy.IsValid() {
		return nil, pkgerrors.NewValidationError("strategy must be one of novelty, popularity, balanced")
	}
	depth := ClampDepth(req.Depth)

	cfg := e.config.Current()
	start := e.now()
	id := valueobjects.NewExplorationID()
	logger := e.logger.With(
		zap.String("exploration_id", id.String()),
		zap.String("seed", valueobjects.NormalizeKeyword(req.SeedKeyword)),
	)

	ctx, span := e.tracer.Start(ctx, "engine.Explore",
		trace.WithAttributes(
			attribute.String("exploration.id", id.String()),
			attribute.String("exploration.strategy", strategy.String()),
			attribute.Int("exploration.depth", depth),
		),
	)
	defer span.End()

	history := e.loadHistory(ctx, req, logger)

	ectx, err := aggregates.NewExplorationContext(id, req.SeedKeyword, depth, strategy, req.UserID, history, start)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	scorer := domainservices.NewNoveltyScorer(e.now, cfg.MinExpansionScore)
	explorer := NewKeywordExplorer(e.provider, scorer, cfg, e.metrics, logger, e.now)
	selector := NewFrontierSelector(scorer, cfg.FrontierSize, logger)

	logger.Info("Starting exploration",
		zap.Int("depth", depth),
		zap.String("strategy", strategy.String()),
		zap.Bool("history_loaded", history != nil),
	)

	frontier := []string{ectx.Seed()}
	cancelled := false
	for level := 1; level <= depth; level++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		candidates, interrupted := e.exploreLevel(ctx, explorer, ectx, frontier, level, cfg.MaxConcurrency)
		if interrupted {
			cancelled = true
			break
		}
		ectx.CompleteLevel()

		if level == depth {
			break
		}
		frontier = selector.Select(ectx, candidates, level)
		if len(frontier) == 0 {
			logger.Info("Frontier empty, stopping early", zap.Int("level", level))
			break
		}
	}

	if cancelled {
		logger.Warn("Exploration cancelled", zap.Int("levels_completed", ectx.LevelsCompleted()))
	}

	result := e.finalize(ctx, ectx, cfg, cancelled, logger)
	span.SetAttributes(
		attribute.Int("exploration.searches", result.Stats.TotalSearches),
		attribute.Int("exploration.discoveries", result.Stats.DiscoveriesFound),
	)
	return result, nil
}

// exploreLevel explores every frontier keyword and returns the pooled
// candidates in frontier order. Searches run detached from cancellation so an
// in-flight keyword completes; cancellation is honoured before each keyword.
// With concurrency the searches overlap but pages are still recorded in
// frontier order, so the result matches a sequential run.
func (e *ExplorationEngine) exploreLevel(
	ctx context.Context,
	explorer *KeywordExplorer,
	ectx *aggregates.ExplorationContext,
	frontier []string,
	level int,
	maxConcurrency int,
) ([]entities.HashtagCandidate, bool) {
	searchCtx := context.WithoutCancel(ctx)
	var candidates []entities.HashtagCandidate

	if maxConcurrency <= 1 || len(frontier) == 1 {
		for _, keyword := range frontier {
			if ctx.Err() != nil {
				return candidates, true
			}
			candidates = append(candidates, explorer.Explore(searchCtx, ectx, keyword, level)...)
		}
		return candidates, false
	}

	pages := make([]*KeywordPage, len(frontier))
	interrupted := false
	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, keyword := range frontier {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if !explorer.Reserve(ectx, keyword) {
			continue
		}
		g.Go(func() error {
			pages[i] = explorer.Search(searchCtx, ectx, keyword, level)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range pages {
		candidates = append(candidates, explorer.Record(ectx, p)...)
	}
	return candidates, interrupted
}

func (e *ExplorationEngine) loadHistory(
	ctx context.Context,
	req entities.ExplorationRequest,
	logger *zap.Logger,
) *entities.UserKeywordHistory {
	if req.UserID == "" || !req.ExcludeKnown || e.history == nil {
		return nil
	}

	history, err := e.history.Load(ctx, req.UserID)
	if err != nil {
		logger.Warn("User history unavailable, continuing without it",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil
	}
	return history
}

func (e *ExplorationEngine) finalize(
	ctx context.Context,
	ectx *aggregates.ExplorationContext,
	cfg *config.ExplorationConfig,
	cancelled bool,
	logger *zap.Logger,
) *entities.ExplorationResult {
	discoveries := make([]entities.Discovery, 0)
	for _, d := range ectx.Discoveries() {
		if d.NoveltyScore >= cfg.NoveltyThreshold {
			discoveries = append(discoveries, d)
		}
	}
	sort.SliceStable(discoveries, func(i, j int) bool {
		if discoveries[i].TotalScore != discoveries[j].TotalScore {
			return discoveries[i].TotalScore > discoveries[j].TotalScore
		}
		return discoveries[i].Keyword < discoveries[j].Keyword
	})

	completedAt := e.now()
	duration := completedAt.Sub(ectx.StartedAt())

	result := &entities.ExplorationResult{
		ExplorationID: ectx.ID().String(),
		UserID:        ectx.UserID(),
		SeedKeyword:   ectx.Seed(),
		Depth:         ectx.Depth(),
		Strategy:      ectx.Strategy(),
		Discoveries:   discoveries,
		Network:       e.builder.BuildNetworkFromContext(ectx),
		Stats: entities.ExplorationStats{
			TotalSearches:    ectx.SearchCount(),
			ContentAnalyzed:  ectx.ContentAnalyzed(),
			UniqueKeywords:   ectx.NodeCount() - 1,
			DiscoveriesFound: len(discoveries),
			DurationMs:       duration.Milliseconds(),
			LevelsCompleted:  ectx.LevelsCompleted(),
			Cancelled:        cancelled,
		},
		CompletedAt: completedAt,
	}

	e.recordHistory(context.WithoutCancel(ctx), result, cfg.HistoryRecordLimit, logger)
	e.metrics.RecordExploration(result.Strategy.String(), duration, len(discoveries), cancelled)

	logger.Info("Exploration completed",
		zap.Int("searches", result.Stats.TotalSearches),
		zap.Int("content_analyzed", result.Stats.ContentAnalyzed),
		zap.Int("unique_keywords", result.Stats.UniqueKeywords),
		zap.Int("discoveries", result.Stats.DiscoveriesFound),
		zap.Int64("duration_ms", result.Stats.DurationMs),
	)
	return result
}

func (e *ExplorationEngine) recordHistory(
	ctx context.Context,
	result *entities.ExplorationResult,
	limit int,
	logger *zap.Logger,
) {
	if result.UserID == "" || e.history == nil {
		return
	}

	keywords := make([]string, 0, limit)
	for i := 0; i < len(result.Discoveries) && i < limit; i++ {
		keywords = append(keywords, result.Discoveries[i].Keyword)
	}

	if err := e.history.RecordExploration(ctx, result.UserID, result.SeedKeyword, keywords); err != nil {
		logger.Warn("Failed to record user history",
			zap.String("user_id", result.UserID),
			zap.Error(err),
		)
	}
}

// ClampDepth maps a requested depth onto the supported range. Zero selects
// the default depth.
func ClampDepth(depth int) int {
	switch {
	case depth == 0:
		return entities.DefaultExplorationDepth
	case depth < entities.MinExplorationDepth:
		return entities.MinExplorationDepth
	case depth > entities.MaxExplorationDepth:
		return entities.MaxExplorationDepth
	}
	return depth
}
