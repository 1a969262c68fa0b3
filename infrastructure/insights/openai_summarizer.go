package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trendscout/domain/core/entities"
)

const (
	defaultModel   = openai.GPT4oMini
	defaultTimeout = 30 * time.Second
	maxListItems   = 5
)

const systemPrompt = `You are a social media trend analyst. You receive keywords discovered by
exploring hashtags outward from a seed keyword, each with novelty, popularity
and total scores (0-100) and the path that led to it. Answer with a JSON
object with the fields "summary" (two or three sentences), "keyTrends",
"opportunities" and "recommendations" (arrays of short strings, at most five
each). Only mention keywords present in the input.`

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// OpenAIConfig configures the OpenAI-compatible summarizer
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAISummarizer narrates exploration results with a chat completion model
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewOpenAISummarizer creates a summarizer. Without an API key it reports
// itself disabled.
func NewOpenAISummarizer(cfg OpenAIConfig, logger *zap.Logger) *OpenAISummarizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
		enabled: cfg.APIKey != "",
		logger:  logger,
		now:     time.Now,
	}
}

// Enabled implements ports.InsightSummarizer
func (s *OpenAISummarizer) Enabled() bool {
	return s.enabled
}

// Analyze implements ports.InsightSummarizer. An empty completion yields nil
// insights.
func (s *OpenAISummarizer) Analyze(ctx context.Context, req entities.InsightRequest) (*entities.TrendInsights, error) {
	if len(req.Discoveries) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Warn("Insight completion failed",
			zap.String("explorationID", req.ExplorationID),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insight completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	insights, err := parseInsights(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if insights == nil {
		return nil, nil
	}
	insights.GeneratedAt = s.now()

	s.logger.Debug("Insights generated",
		zap.String("explorationID", req.ExplorationID),
		zap.Int("keyTrends", len(insights.KeyTrends)),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return insights, nil
}

type promptDiscovery struct {
	Keyword    string   `json:"keyword"`
	Novelty    int      `json:"novelty"`
	Popularity int      `json:"popularity"`
	Total      int      `json:"total"`
	Path       []string `json:"path"`
	Trending   bool     `json:"trending"`
}

func buildPrompt(req entities.InsightRequest) (string, error) {
	discoveries := make([]promptDiscovery, 0, len(req.Discoveries))
	for _, d := range req.Discoveries {
		discoveries = append(discoveries, promptDiscovery{
			Keyword:    d.Keyword,
			Novelty:    d.NoveltyScore,
			Popularity: d.PopularityScore,
			Total:      d.TotalScore,
			Path:       d.DiscoveryPath,
			Trending:   d.Metadata.IsTrending,
		})
	}

	payload, err := json.Marshal(map[string]interface{}{
		"seedKeyword": req.SeedKeyword,
		"strategy":    req.Strategy,
		"searches":    req.Stats.TotalSearches,
		"discoveries": discoveries,
	})
	if err != nil {
		return "", fmt.Errorf("encoding insight prompt: %w", err)
	}
	return string(payload), nil
}

// parseInsights reads the model's JSON answer, tolerating a markdown fence.
// Blank content is not an error.
func parseInsights(content string) (*entities.TrendInsights, error) {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	if content == "" {
		return nil, nil
	}

	var raw struct {
		Summary         string   `json:"summary"`
		KeyTrends       []string `json:"keyTrends"`
		Opportunities   []string `json:"opportunities"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing insight response: %w", err)
	}

	return &entities.TrendInsights{
		Summary:         strings.TrimSpace(raw.Summary),
		KeyTrends:       capList(raw.KeyTrends),
		Opportunities:   capList(raw.Opportunities),
		Recommendations: capList(raw.Recommendations),
	}, nil
}

func capList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

// Disabled is the summarizer used when no model is configured
type Disabled struct{}

// Enabled implements ports.InsightSummarizer
func (Disabled) Enabled() bool { return false }

// Analyze implements ports.InsightSummarizer
func (Disabled) Analyze(context.Context, entities.InsightRequest) (*entities.TrendInsights, error) {
	return nil, nil
}
