package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

// Component weights of the novelty total
const (
	unfamiliarityWeight = 0.4
	recencyWeight       = 0.3
	distanceWeight      = 0.3
)

// Unfamiliarity penalties applied per history set
const (
	defaultUnfamiliarity = 80.0
	searchedPenalty      = 40.0
	trackedPenalty       = 30.0
	clickedPenalty       = 20.0
)

// NoveltyMetadata is the per-keyword input to recency scoring
type NoveltyMetadata struct {
	FirstSeenAt   *time.Time
	AvgEngagement float64
}

// NoveltyBreakdown exposes the components behind a novelty score
type NoveltyBreakdown struct {
	Total             int     `json:"total"`
	UserUnfamiliarity float64 `json:"userUnfamiliarity"`
	RecencyScore      float64 `json:"recencyScore"`
	DistanceScore     float64 `json:"distanceScore"`
}

// NoveltyScorer computes novelty, popularity and strategy-weighted scores.
// It has no side effects; the clock is injectable so recency is reproducible.
type NoveltyScorer struct {
	now               func() time.Time
	minExpansionScore int
}

// NewNoveltyScorer creates a scorer. A nil clock uses time.Now.
func NewNoveltyScorer(now func() time.Time, minExpansionScore int) *NoveltyScorer {
	if now == nil {
		now = time.Now
	}
	return &NoveltyScorer{
		now:               now,
		minExpansionScore: minExpansionScore,
	}
}

// CalculateNoveltyScore scores how unfamiliar, fresh and far from the seed a keyword is
func (s *NoveltyScorer) CalculateNoveltyScore(
	keyword, seedKeyword string,
	distanceFromSeed int,
	history *entities.UserKeywordHistory,
	metadata NoveltyMetadata,
) NoveltyBreakdown {
	unfamiliarity := s.userUnfamiliarity(keyword, history)
	recency := s.recencyScore(metadata)
	distance := distanceScore(keyword, seedKeyword, distanceFromSeed)

	total := unfamiliarityWeight*unfamiliarity + recencyWeight*recency + distanceWeight*distance

	return NoveltyBreakdown{
		Total:             clampScore(math.Round(total)),
		UserUnfamiliarity: unfamiliarity,
		RecencyScore:      recency,
		DistanceScore:     distance,
	}
}

func (s *NoveltyScorer) userUnfamiliarity(keyword string, history *entities.UserKeywordHistory) float64 {
	if history == nil {
		return defaultUnfamiliarity
	}

	score := 100.0
	if history.HasSearched(keyword) {
		score -= searchedPenalty
	}
	if history.HasTracked(keyword) {
		score -= trackedPenalty
	}
	if history.HasClicked(keyword) {
		score -= clickedPenalty
	}
	return math.Max(0, score)
}

func (s *NoveltyScorer) recencyScore(metadata NoveltyMetadata) float64 {
	base := 50.0
	if metadata.FirstSeenAt != nil && !metadata.FirstSeenAt.IsZero() {
		age := s.now().Sub(*metadata.FirstSeenAt)
		switch {
		case age <= 24*time.Hour:
			base = 100
		case age <= 7*24*time.Hour:
			base = 70
		case age <= 30*24*time.Hour:
			base = 50
		default:
			base = 30
		}
	}

	bonus := math.Min(20, math.Max(0, metadata.AvgEngagement*2))
	return math.Min(100, base+bonus)
}

func distanceScore(keyword, seedKeyword string, depth int) float64 {
	hops := math.Min(90, float64(depth)*30)
	if hops < 0 {
		hops = 0
	}
	return math.Min(100, hops+semanticDistanceBonus(seedKeyword, keyword))
}

// semanticDistanceBonus is 0-10, higher when the two keywords share fewer
// characters. One keyword containing the other earns no bonus.
func semanticDistanceBonus(seed, target string) float64 {
	a := valueobjects.NormalizeKeyword(seed)
	b := valueobjects.NormalizeKeyword(target)
	if a == "" || b == "" || strings.Contains(a, b) || strings.Contains(b, a) {
		return 0
	}

	setA := runeSet(a)
	setB := runeSet(b)
	shared := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}

	overlap := float64(shared) / float64(union)
	return math.Round((1 - overlap) * 10)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// CalculatePopularityScore scores engagement, frequency and reach on 0-100
func (s *NoveltyScorer) CalculatePopularityScore(avgEngagement float64, occurrences int, avgViews float64) int {
	engagement := math.Min(50, math.Max(0, avgEngagement*5))
	frequency := math.Min(30, math.Log10(float64(occurrences)+1)*15)
	if occurrences <= 0 {
		frequency = 0
	}

	views := 0.0
	if avgViews > 0 {
		views = math.Min(20, math.Max(0, math.Log10(avgViews)*3))
	}

	return clampScore(math.Round(engagement + frequency + views))
}

// CalculateTotalScore blends the component scores with the strategy weights
func (s *NoveltyScorer) CalculateTotalScore(novelty, popularity int, strategy valueobjects.Strategy) int {
	w := strategy.Weights()
	return clampScore(math.Round(float64(novelty)*w.Novelty + float64(popularity)*w.Popularity))
}

// ScoreCandidate assigns novelty, popularity and total scores to a candidate
func (s *NoveltyScorer) ScoreCandidate(
	candidate entities.HashtagCandidate,
	seedKeyword string,
	depth int,
	history *entities.UserKeywordHistory,
	strategy valueobjects.Strategy,
) (entities.HashtagCandidate, NoveltyBreakdown) {
	novelty := s.CalculateNoveltyScore(candidate.Tag, seedKeyword, depth, history, NoveltyMetadata{
		FirstSeenAt:   candidate.FirstSeenAt,
		AvgEngagement: candidate.AvgEngagement,
	})
	popularity := s.CalculatePopularityScore(candidate.AvgEngagement, candidate.Occurrences, candidate.AvgViews)

	candidate.NoveltyScore = novelty.Total
	candidate.PopularityScore = popularity
	candidate.TotalScore = s.CalculateTotalScore(novelty.Total, popularity, strategy)
	return candidate, novelty
}

// RankHashtagCandidates scores every candidate and sorts them by total score,
// highest first. Ties fall back to occurrences then tag so ordering is stable
// across runs.
func (s *NoveltyScorer) RankHashtagCandidates(
	candidates []entities.HashtagCandidate,
	seedKeyword string,
	depth int,
	history *entities.UserKeywordHistory,
	strategy valueobjects.Strategy,
) []entities.HashtagCandidate {
	ranked := make([]entities.HashtagCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored, _ := s.ScoreCandidate(c, seedKeyword, depth, history, strategy)
		ranked = append(ranked, scored)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		if ranked[i].Occurrences != ranked[j].Occurrences {
			return ranked[i].Occurrences > ranked[j].Occurrences
		}
		return ranked[i].Tag < ranked[j].Tag
	})
	return ranked
}

// SelectTopCandidatesForExpansion drops visited keywords, repeats and
// candidates under the minimum expansion score, then keeps the first limit
// entries of an already ranked slice.
func (s *NoveltyScorer) SelectTopCandidatesForExpansion(
	ranked []entities.HashtagCandidate,
	isVisited func(keyword string) bool,
	limit int,
) []entities.HashtagCandidate {
	if limit <= 0 {
		return nil
	}

	selected := make([]entities.HashtagCandidate, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, c := range ranked {
		if len(selected) == limit {
			break
		}
		key := valueobjects.NormalizeKeyword(c.Tag)
		if _, dup := seen[key]; dup {
			continue
		}
		if isVisited != nil && isVisited(key) {
			continue
		}
		if c.TotalScore < s.minExpansionScore {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, c)
	}
	return selected
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}
