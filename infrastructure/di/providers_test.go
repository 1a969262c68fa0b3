package di

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trendscout/application/commands"
	"trendscout/application/queries"
	"trendscout/domain/core/entities"
	"trendscout/infrastructure/config"
	"trendscout/infrastructure/insights"
	"trendscout/infrastructure/messaging/logbus"
)

// writeFixtures writes the country music search page: 20 nashville videos
// at 8% engagement and 5 newartist videos at 2%.
func writeFixtures(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("keywords:\n  countrymusic:\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "    - id: nash-%d\n      hashtags: [\"#CountryMusic\", \"#Nashville\"]\n"+
			"      creator: {id: nash-creator-%d, display_name: nash}\n"+
			"      views: 10000\n      likes: 400\n      comments: 200\n      shares: 200\n", i, i%3)
	}
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "    - id: new-%d\n      hashtags: [\"#newartist\"]\n"+
			"      creator: {id: new-creator-%d, display_name: new}\n"+
			"      views: 10000\n      likes: 100\n      comments: 50\n      shares: 50\n", i, i%3)
	}

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Environment:        "test",
		AWSRegion:          "us-west-2",
		PersistenceBackend: config.PersistenceMemory,
		SearchProvider:     config.SearchProviderFixture,
		FixturePath:        writeFixtures(t),
		SearchCacheSize:    100,
		SearchCacheTTL:     60,
		QueryCacheTTL:      60,
		LogLevel:           "error",
	}
}

func TestInitializeContainer_LocalStack(t *testing.T) {
	ctx := context.Background()
	container, err := InitializeContainer(ctx, testConfig(t))
	require.NoError(t, err)
	defer container.Close(ctx)

	assert.Nil(t, container.Tracing)
	assert.Nil(t, container.TunablesWatcher)
	assert.IsType(t, &logbus.Publisher{}, container.Publisher)

	result, err := container.ExploreHandler.Handle(ctx, commands.ExploreTrendsCommand{
		SeedKeyword:  "countrymusic",
		Depth:        1,
		ExcludeKnown: true,
		UserID:       "user-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Discoveries, 2)
	assert.Equal(t, "nashville", result.Discoveries[0].Keyword)
	assert.Equal(t, "newartist", result.Discoveries[1].Keyword)

	listed, err := container.QueryBus.Ask(ctx, queries.ListExplorationsQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, listed.(*queries.ListExplorationsResult).Count)

	stored, err := container.QueryBus.Ask(ctx, queries.GetExplorationQuery{ExplorationID: result.ExplorationID})
	require.NoError(t, err)
	assert.Equal(t, "countrymusic", stored.(*entities.ExplorationResult).SeedKeyword)

	// The engine's search for the seed is cached
	before := container.Caches.Search.GetStats().Hits
	_, err = container.SearchProvider.Search(ctx, "countrymusic", container.Tunables.Current().SearchPageSize)
	require.NoError(t, err)
	assert.Equal(t, before+1, container.Caches.Search.GetStats().Hits)

	families, err := container.Metrics.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "trendscout_search_cache_hit_rate")
	assert.Contains(t, names, "trendscout_explorations_total")
}

func TestInitializeContainer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"missing fixtures", func(c *config.Config) { c.FixturePath = "/does/not/exist.yaml" }},
		{"unknown provider", func(c *config.Config) { c.SearchProvider = "carrier-pigeon" }},
		{"http provider without url", func(c *config.Config) { c.SearchProvider = config.SearchProviderHTTP }},
		{"missing tunables", func(c *config.Config) { c.ExplorationConfigPath = "/does/not/exist.yaml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			_, err := InitializeContainer(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestProvideInsightSummarizer(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, insights.Disabled{}, ProvideInsightSummarizer(cfg, zap.NewNop()))

	cfg.OpenAIAPIKey = "sk-test"
	summarizer := ProvideInsightSummarizer(cfg, zap.NewNop())
	assert.True(t, summarizer.Enabled())
}

func TestProvideTunablesWatcher_DevelopmentOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exploration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("novelty_threshold: 40\n"), 0o600))

	cfg := testConfig(t)
	cfg.ExplorationConfigPath = path

	holder, err := ProvideExplorationConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 40, holder.Current().NoveltyThreshold)

	watcher, err := ProvideTunablesWatcher(cfg, holder, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, watcher)

	cfg.Environment = "development"
	watcher, err = ProvideTunablesWatcher(cfg, holder, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, watcher)
	assert.NoError(t, watcher.Close())
}

func TestContainerRouter_ServesExplorations(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.EnableMetrics = true
	cfg.ExplorationTimeout = time.Minute

	container, err := InitializeContainer(ctx, cfg)
	require.NoError(t, err)
	defer container.Close(ctx)

	server := httptest.NewServer(container.Router().Setup())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/explorations", "application/json",
		strings.NewReader(`{"seedKeyword":"#CountryMusic","depth":1,"userId":"user-2"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result entities.ExplorationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "countrymusic", result.SeedKeyword)
	assert.Len(t, result.Discoveries, 2)

	metrics, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
