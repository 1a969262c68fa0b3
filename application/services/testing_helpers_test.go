package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"trendscout/domain/core/entities"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// stubSearchProvider answers from a fixed table. Keywords without an entry
// fail with an error.
type stubSearchProvider struct {
	mu       sync.Mutex
	results  map[string]*entities.SearchResult
	delays   map[string]time.Duration
	searched []string
}

func newStubSearchProvider() *stubSearchProvider {
	return &stubSearchProvider{
		results: make(map[string]*entities.SearchResult),
		delays:  make(map[string]time.Duration),
	}
}

func (p *stubSearchProvider) Search(_ context.Context, keyword string, _ int) (*entities.SearchResult, error) {
	p.mu.Lock()
	delay := p.delays[keyword]
	p.mu.Unlock()
	time.Sleep(delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.searched = append(p.searched, keyword)
	result, ok := p.results[keyword]
	if !ok {
		return nil, errors.New("provider unavailable")
	}
	return result, nil
}

func (p *stubSearchProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.searched))
	copy(out, p.searched)
	return out
}

// items builds n items carrying tags, each with 10000 views and the given
// number of interactions spread over likes, comments and shares.
func items(prefix string, n int, interactions int64, tags ...string) []entities.ContentItem {
	out := make([]entities.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entities.ContentItem{
			ID:       fmt.Sprintf("%s-%d", prefix, i),
			Hashtags: tags,
			Creator:  entities.Creator{ID: fmt.Sprintf("%s-creator-%d", prefix, i%3), DisplayName: prefix},
			Stats: entities.EngagementStats{
				Views:    10000,
				Likes:    interactions / 2,
				Comments: interactions / 4,
				Shares:   interactions - interactions/2 - interactions/4,
			},
		})
	}
	return out
}

func page(groups ...[]entities.ContentItem) *entities.SearchResult {
	result := &entities.SearchResult{Success: true}
	for _, g := range groups {
		result.Items = append(result.Items, g...)
	}
	return result
}

// countryMusicProvider returns 30 videos for the seed: 20 nashville videos at
// 8% engagement, 5 newartist videos at 2% engagement and 5 without hashtags.
func countryMusicProvider() *stubSearchProvider {
	p := newStubSearchProvider()
	p.results["countrymusic"] = page(
		items("nash", 20, 800, "#CountryMusic", "#Nashville"),
		items("new", 5, 200, "#newartist"),
		items("plain", 5, 300),
	)
	return p
}

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) Load(ctx context.Context, userID string) (*entities.UserKeywordHistory, error) {
	args := m.Called(ctx, userID)
	if h := args.Get(0); h != nil {
		return h.(*entities.UserKeywordHistory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHistoryStore) RecordExploration(ctx context.Context, userID, seedKeyword string, keywords []string) error {
	args := m.Called(ctx, userID, seedKeyword, keywords)
	return args.Error(0)
}
