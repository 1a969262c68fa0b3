package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trendscout/application/ports"
	"trendscout/domain/config"
	"trendscout/domain/core/aggregates"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
	domainservices "trendscout/domain/services"
)

const tracerName = "trendscout/application/services"

// KeywordExplorer runs one content search for a keyword and records what it
// finds into the run's context.
type KeywordExplorer struct {
	provider ports.ContentSearchProvider
	scorer   *domainservices.NoveltyScorer
	config   *config.ExplorationConfig
	metrics  ports.Metrics
	tracer   trace.Tracer
	logger   *zap.Logger
	now      func() time.Time
}

// NewKeywordExplorer creates an explorer bound to one run's configuration
func NewKeywordExplorer(
	provider ports.ContentSearchProvider,
	scorer *domainservices.NoveltyScorer,
	cfg *config.ExplorationConfig,
	metrics ports.Metrics,
	logger *zap.Logger,
	now func() time.Time,
) *KeywordExplorer {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &KeywordExplorer{
		provider: provider,
		scorer:   scorer,
		config:   cfg,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
		now:      now,
	}
}

// KeywordPage is the aggregated outcome of one keyword's search. It holds
// nothing from the run's context until Record commits it.
type KeywordPage struct {
	Keyword    string
	Depth      int
	Items      int
	Candidates []entities.HashtagCandidate
}

// Explore searches for keyword at the given depth and records the page. Every
// hashtag found becomes a node and edge, and first encounters become
// Discoveries. The aggregated candidates are returned for frontier selection.
// Search failures are logged and produce no candidates.
func (x *KeywordExplorer) Explore(
	ctx context.Context,
	ectx *aggregates.ExplorationContext,
	keyword string,
	depth int,
) []entities.HashtagCandidate {
	if !x.Reserve(ectx, keyword) {
		return nil
	}
	return x.Record(ectx, x.Search(ctx, ectx, keyword, depth))
}

// Reserve takes one search from the run's budget. A false result means the
// keyword is skipped.
func (x *KeywordExplorer) Reserve(ectx *aggregates.ExplorationContext, keyword string) bool {
	if ectx.ReserveSearch(x.config.MaxSearches) {
		return true
	}
	x.metrics.RecordSearch(ports.SearchOutcomeSkipped)
	x.logger.Debug("Search budget exhausted, skipping keyword",
		zap.String("keyword", valueobjects.NormalizeKeyword(keyword)),
		zap.Int("max_searches", x.config.MaxSearches),
	)
	return false
}

// Search runs a reserved search and aggregates its hashtags. It only reads the
// run's context, so searches of one level may run concurrently. A nil page
// means the search failed or found nothing.
func (x *KeywordExplorer) Search(
	ctx context.Context,
	ectx *aggregates.ExplorationContext,
	keyword string,
	depth int,
) *KeywordPage {
	keyword = valueobjects.NormalizeKeyword(keyword)

	ctx, span := x.tracer.Start(ctx, "explorer.Search",
		trace.WithAttributes(
			attribute.String("exploration.id", ectx.ID().String()),
			attribute.String("keyword", keyword),
			attribute.Int("depth", depth),
		),
	)
	defer span.End()

	result, err := x.provider.Search(ctx, keyword, x.config.SearchPageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		x.metrics.RecordSearch(ports.SearchOutcomeFailure)
		x.logger.Warn("Content search failed, skipping keyword",
			zap.String("keyword", keyword),
			zap.Int("depth", depth),
			zap.Error(err),
		)
		return nil
	}
	if result == nil || !result.Success || len(result.Items) == 0 {
		x.metrics.RecordSearch(ports.SearchOutcomeEmpty)
		x.logger.Info("Content search returned no items",
			zap.String("keyword", keyword),
			zap.Int("depth", depth),
		)
		return nil
	}
	x.metrics.RecordSearch(ports.SearchOutcomeSuccess)

	candidates := AggregateHashtags(result.Items)
	span.SetAttributes(
		attribute.Int("items", len(result.Items)),
		attribute.Int("candidates", len(candidates)),
	)
	return &KeywordPage{
		Keyword:    keyword,
		Depth:      depth,
		Items:      len(result.Items),
		Candidates: candidates,
	}
}

// Record commits a page to the run's context and returns its candidates. The
// first page to reach a hashtag owns its Discovery, so pages must be recorded
// in frontier order. A nil page records nothing.
func (x *KeywordExplorer) Record(ectx *aggregates.ExplorationContext, p *KeywordPage) []entities.HashtagCandidate {
	if p == nil {
		return nil
	}

	ectx.AddContentAnalyzed(p.Items)
	for _, candidate := range p.Candidates {
		x.record(ectx, p.Keyword, p.Depth, candidate)
	}

	x.logger.Debug("Explored keyword",
		zap.String("keyword", p.Keyword),
		zap.Int("depth", p.Depth),
		zap.Int("items", p.Items),
		zap.Int("candidates", len(p.Candidates)),
	)
	return p.Candidates
}

func (x *KeywordExplorer) record(ectx *aggregates.ExplorationContext, input string, depth int, candidate entities.HashtagCandidate) {
	tag := candidate.Tag
	weight := float64(candidate.Occurrences)

	// Known keywords only gain the traversal edge
	if ectx.IsVisited(tag) || ectx.HasNode(tag) {
		ectx.AddEdge(input, tag, weight)
		return
	}

	scored, _ := x.scorer.ScoreCandidate(candidate, ectx.Seed(), depth, ectx.History(), ectx.Strategy())

	discovery := entities.Discovery{
		Keyword:         tag,
		NoveltyScore:    scored.NoveltyScore,
		PopularityScore: scored.PopularityScore,
		TotalScore:      scored.TotalScore,
		DiscoveryPath:   x.discoveryPath(ectx, input, tag),
		Depth:           depth,
		SampleContent:   scored.SampleContent,
		RelatedCreators: scored.RelatedCreators,
		Metadata: entities.DiscoveryMetadata{
			Occurrences:   scored.Occurrences,
			AvgEngagement: scored.AvgEngagement,
			AvgViews:      scored.AvgViews,
			DiscoveredAt:  x.now(),
			IsTrending:    scored.IsTrending(),
		},
	}

	novelty, popularity := scored.NoveltyScore, scored.PopularityScore
	nodeType := entities.NodeTypeIntermediate
	if novelty >= x.config.NoveltyThreshold {
		nodeType = entities.NodeTypeDiscovered
	}
	node := entities.NetworkNode{
		ID:              tag,
		Label:           tag,
		Type:            nodeType,
		Weight:          float64(scored.TotalScore),
		Depth:           depth,
		NoveltyScore:    &novelty,
		PopularityScore: &popularity,
	}

	if ectx.RecordDiscovery(discovery, node) && nodeType == entities.NodeTypeDiscovered {
		x.metrics.RecordDiscovery(discovery.Metadata.IsTrending)
	}
	ectx.AddEdge(input, tag, weight)
}

// discoveryPath chains tag onto the path that reached input. The input's own
// Discovery is used first, then a search over the recorded edges, and only
// then the approximate [seed, input, tag].
func (x *KeywordExplorer) discoveryPath(ectx *aggregates.ExplorationContext, input, tag string) []string {
	seed := ectx.Seed()
	if input == seed {
		return []string{seed, tag}
	}

	if d, ok := ectx.DiscoveryFor(input); ok && len(d.DiscoveryPath) > 0 {
		return appendPath(d.DiscoveryPath, tag)
	}

	if path := ectx.PathFromSeed(input); path != nil {
		return appendPath(path, tag)
	}

	x.logger.Debug("No recorded path to keyword, using approximate path",
		zap.String("keyword", input),
		zap.String("hashtag", tag),
	)
	return []string{seed, input, tag}
}

func appendPath(path []string, tag string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, tag)
}

type creatorAggregate struct {
	id            string
	displayName   string
	videos        int
	engagementSum float64
}

type hashtagAggregate struct {
	tag           string
	count         int
	engagementSum float64
	viewsSum      float64
	samples       []string
	firstSeen     *time.Time
	creators      map[string]*creatorAggregate
}

// AggregateHashtags folds a page of items into one candidate per hashtag, in
// order of first appearance. A tag repeated within one item counts once.
func AggregateHashtags(items []entities.ContentItem) []entities.HashtagCandidate {
	byTag := make(map[string]*hashtagAggregate)
	var order []string

	for _, item := range items {
		engagement := item.Stats.EngagementRate()
		views := float64(item.Stats.Views)
		if views < 0 {
			views = 0
		}

		seenInItem := make(map[string]struct{}, len(item.Hashtags))
		for _, raw := range item.Hashtags {
			tag := valueobjects.NormalizeKeyword(raw)
			if tag == "" {
				continue
			}
			if _, dup := seenInItem[tag]; dup {
				continue
			}
			seenInItem[tag] = struct{}{}

			agg, ok := byTag[tag]
			if !ok {
				agg = &hashtagAggregate{tag: tag, creators: make(map[string]*creatorAggregate)}
				byTag[tag] = agg
				order = append(order, tag)
			}

			agg.count++
			agg.engagementSum += engagement
			agg.viewsSum += views
			if len(agg.samples) < entities.MaxSampleContent && item.ID != "" {
				agg.samples = append(agg.samples, item.ID)
			}
			if !item.CreatedAt.IsZero() && (agg.firstSeen == nil || item.CreatedAt.Before(*agg.firstSeen)) {
				created := item.CreatedAt
				agg.firstSeen = &created
			}

			if item.Creator.ID != "" {
				c, ok := agg.creators[item.Creator.ID]
				if !ok {
					c = &creatorAggregate{id: item.Creator.ID, displayName: item.Creator.DisplayName}
					agg.creators[item.Creator.ID] = c
				}
				c.videos++
				c.engagementSum += engagement
			}
		}
	}

	candidates := make([]entities.HashtagCandidate, 0, len(order))
	for _, tag := range order {
		agg := byTag[tag]
		candidates = append(candidates, entities.HashtagCandidate{
			Tag:             tag,
			Occurrences:     agg.count,
			AvgEngagement:   agg.engagementSum / float64(agg.count),
			AvgViews:        agg.viewsSum / float64(agg.count),
			SampleContent:   agg.samples,
			RelatedCreators: topCreators(agg.creators),
			FirstSeenAt:     agg.firstSeen,
		})
	}
	return candidates
}

func topCreators(creators map[string]*creatorAggregate) []entities.RelatedCreator {
	related := make([]entities.RelatedCreator, 0, len(creators))
	for _, c := range creators {
		related = append(related, entities.RelatedCreator{
			ID:            c.id,
			DisplayName:   c.displayName,
			VideoCount:    c.videos,
			AvgEngagement: c.engagementSum / float64(c.videos),
		})
	}

	sort.Slice(related, func(i, j int) bool {
		if related[i].AvgEngagement != related[j].AvgEngagement {
			return related[i].AvgEngagement > related[j].AvgEngagement
		}
		return related[i].ID < related[j].ID
	})

	if len(related) > entities.MaxRelatedCreators {
		related = related[:entities.MaxRelatedCreators]
	}
	return related
}
