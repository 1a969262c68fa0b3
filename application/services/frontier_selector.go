package services

import (
	"go.uber.org/zap"

	"trendscout/domain/core/aggregates"
	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
	domainservices "trendscout/domain/services"
)

// FrontierSelector picks the keywords to expand at the next level
type FrontierSelector struct {
	scorer       *domainservices.NoveltyScorer
	frontierSize int
	logger       *zap.Logger
}

// NewFrontierSelector creates a selector keeping at most frontierSize keywords per level
func NewFrontierSelector(scorer *domainservices.NoveltyScorer, frontierSize int, logger *zap.Logger) *FrontierSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrontierSelector{
		scorer:       scorer,
		frontierSize: frontierSize,
		logger:       logger,
	}
}

// Select ranks the level's pooled candidates and returns the next frontier.
// Every returned keyword is marked visited before Select returns.
func (s *FrontierSelector) Select(
	ectx *aggregates.ExplorationContext,
	candidates []entities.HashtagCandidate,
	depth int,
) []string {
	pooled := PoolCandidates(candidates)
	ranked := s.scorer.RankHashtagCandidates(pooled, ectx.Seed(), depth, ectx.History(), ectx.Strategy())
	selected := s.scorer.SelectTopCandidatesForExpansion(ranked, ectx.IsVisited, s.frontierSize)

	frontier := make([]string, 0, len(selected))
	for _, c := range selected {
		if err := ectx.MarkVisited(c.Tag); err != nil {
			s.logger.Warn("Skipping frontier keyword", zap.String("keyword", c.Tag), zap.Error(err))
			continue
		}
		frontier = append(frontier, valueobjects.NormalizeKeyword(c.Tag))
	}

	s.logger.Debug("Selected frontier",
		zap.Int("depth", depth),
		zap.Int("candidates", len(pooled)),
		zap.Strings("frontier", frontier),
	)
	return frontier
}

// PoolCandidates merges candidates for the same tag, keeping the one with the
// higher occurrence count. First-appearance order is preserved.
func PoolCandidates(candidates []entities.HashtagCandidate) []entities.HashtagCandidate {
	index := make(map[string]int, len(candidates))
	pooled := make([]entities.HashtagCandidate, 0, len(candidates))

	for _, c := range candidates {
		key := valueobjects.NormalizeKeyword(c.Tag)
		if key == "" {
			continue
		}
		c.Tag = key
		if i, ok := index[key]; ok {
			if c.Occurrences > pooled[i].Occurrences {
				pooled[i] = c
			}
			continue
		}
		index[key] = len(pooled)
		pooled = append(pooled, c)
	}
	return pooled
}
