package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
)

// FixtureFile is the YAML layout of a fixture search file
type FixtureFile struct {
	Keywords map[string][]FixtureItem `yaml:"keywords"`
}

// FixtureItem is one canned content item
type FixtureItem struct {
	ID       string   `yaml:"id"`
	Hashtags []string `yaml:"hashtags"`
	Creator  struct {
		ID          string `yaml:"id"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"creator"`
	Views     int64     `yaml:"views"`
	Likes     int64     `yaml:"likes"`
	Comments  int64     `yaml:"comments"`
	Shares    int64     `yaml:"shares"`
	CreatedAt time.Time `yaml:"created_at"`
}

// FixtureProvider answers searches from canned YAML data. It is meant for
// local development and demos; unknown keywords return an empty page.
type FixtureProvider struct {
	pages map[string][]entities.ContentItem
}

// LoadFixtureProvider reads a fixture file from disk
func LoadFixtureProvider(path string) (*FixtureProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures builds a provider from YAML bytes
func ParseFixtures(data []byte) (*FixtureProvider, error) {
	var file FixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing search fixtures: %w", err)
	}

	pages := make(map[string][]entities.ContentItem, len(file.Keywords))
	for keyword, fixtures := range file.Keywords {
		key := valueobjects.NormalizeKeyword(keyword)
		if key == "" {
			return nil, fmt.Errorf("fixture keyword %q is empty after normalization", keyword)
		}
		items := make([]entities.ContentItem, 0, len(fixtures))
		for _, f := range fixtures {
			items = append(items, entities.ContentItem{
				ID:       f.ID,
				Hashtags: f.Hashtags,
				Creator: entities.Creator{
					ID:          f.Creator.ID,
					DisplayName: f.Creator.DisplayName,
				},
				Stats: entities.EngagementStats{
					Views:    f.Views,
					Likes:    f.Likes,
					Comments: f.Comments,
					Shares:   f.Shares,
				},
				CreatedAt: f.CreatedAt,
			})
		}
		pages[key] = append(pages[key], items...)
	}
	return &FixtureProvider{pages: pages}, nil
}

// Search implements ports.ContentSearchProvider
func (p *FixtureProvider) Search(ctx context.Context, keyword string, pageSize int) (*entities.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := p.pages[valueobjects.NormalizeKeyword(keyword)]
	hasMore := false
	if pageSize > 0 && len(items) > pageSize {
		items = items[:pageSize]
		hasMore = true
	}

	page := make([]entities.ContentItem, len(items))
	copy(page, items)
	return &entities.SearchResult{
		Success: true,
		Items:   page,
		HasMore: hasMore,
	}, nil
}

// Keywords returns the number of keywords with fixture data
func (p *FixtureProvider) Keywords() int {
	return len(p.pages)
}
