package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trendscout/domain/core/entities"
	pkgerrors "trendscout/pkg/errors"
)

const (
	providerName        = "content search"
	maxResponseBytes    = 5 << 20
	defaultHTTPTimeout  = 10 * time.Second
	defaultRatePerSec   = 5
	defaultRateBurst    = 1
	defaultSearchPath   = "/search"
	apiKeyHeader        = "X-API-Key"
	searchTracerName    = "trendscout/infrastructure/search"
	maxHashtagRuneCount = 100
)

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// HTTPProviderConfig configures the HTTP search provider
type HTTPProviderConfig struct {
	BaseURL           string
	SearchPath        string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Breaker           CircuitBreakerConfig
}

// HTTPSearchProvider queries a short-video search API over HTTP. Requests are
// rate limited and guarded by a circuit breaker; the HTTP client timeout bounds
// every call.
type HTTPSearchProvider struct {
	endpoint *url.URL
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewHTTPSearchProvider creates a provider for the configured endpoint
func NewHTTPSearchProvider(cfg HTTPProviderConfig, logger *zap.Logger) (*HTTPSearchProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("search provider base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search provider URL: %w", err)
	}
	path := cfg.SearchPath
	if path == "" {
		path = defaultSearchPath
	}
	endpoint := base.JoinPath(path)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	perSecond := cfg.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = defaultRatePerSec
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = DefaultCircuitBreakerConfig("content-search")
	}

	return &HTTPSearchProvider{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker:  newCircuitBreaker(breakerCfg, logger),
		tracer:   otel.Tracer(searchTracerName),
		logger:   logger,
	}, nil
}

// Search implements ports.ContentSearchProvider
func (p *HTTPSearchProvider) Search(ctx context.Context, keyword string, pageSize int) (*entities.SearchResult, error) {
	ctx, span := p.tracer.Start(ctx, "search.Search",
		trace.WithAttributes(
			attribute.String("search.keyword", keyword),
			attribute.Int("search.page_size", pageSize),
		),
	)
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search rate limiter: %w", err)
	}

	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, keyword, pageSize)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = pkgerrors.NewUnavailableError(providerName).WithCause(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := out.(*entities.SearchResult)
	span.SetAttributes(attribute.Int("search.items", len(result.Items)))
	return result, nil
}

func (p *HTTPSearchProvider) fetch(ctx context.Context, keyword string, pageSize int) (*entities.SearchResult, error) {
	target := *p.endpoint
	query := target.Query()
	query.Set("keyword", keyword)
	query.Set("count", strconv.Itoa(pageSize))
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set(apiKeyHeader, p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerrors.NewExternalError(providerName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, pkgerrors.NewRateLimitError(providerName).
			WithRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, pkgerrors.NewExternalError(providerName, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, pkgerrors.NewExternalError(providerName, fmt.Errorf("decoding response: %w", err))
	}

	p.logger.Debug("Content search completed",
		zap.String("keyword", keyword),
		zap.Int("items", len(payload.Videos)),
	)
	return payload.toResult(), nil
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates and
// garbage yield zero.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// searchResponse is the wire format of the search API
type searchResponse struct {
	Success bool           `json:"success"`
	Videos  []videoPayload `json:"videos"`
	HasMore bool           `json:"hasMore"`
	Cursor  string         `json:"cursor"`
}

type videoPayload struct {
	ID          string   `json:"id"`
	Description string   `json:"desc"`
	Hashtags    []string `json:"hashtags"`
	Author      struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
	} `json:"author"`
	Stats struct {
		PlayCount    int64 `json:"playCount"`
		DiggCount    int64 `json:"diggCount"`
		CommentCount int64 `json:"commentCount"`
		ShareCount   int64 `json:"shareCount"`
	} `json:"stats"`
	CreateTime int64 `json:"createTime"`
}

func (r searchResponse) toResult() *entities.SearchResult {
	items := make([]entities.ContentItem, 0, len(r.Videos))
	for _, v := range r.Videos {
		item := entities.ContentItem{
			ID:       v.ID,
			Hashtags: v.Hashtags,
			Creator: entities.Creator{
				ID:          v.Author.ID,
				DisplayName: v.Author.Nickname,
			},
			Stats: entities.EngagementStats{
				Views:    v.Stats.PlayCount,
				Likes:    v.Stats.DiggCount,
				Comments: v.Stats.CommentCount,
				Shares:   v.Stats.ShareCount,
			},
		}
		if len(item.Hashtags) == 0 {
			item.Hashtags = ExtractHashtags(v.Description)
		}
		if v.CreateTime > 0 {
			item.CreatedAt = time.Unix(v.CreateTime, 0).UTC()
		}
		items = append(items, item)
	}
	return &entities.SearchResult{
		Success: r.Success,
		Items:   items,
		HasMore: r.HasMore,
		Cursor:  r.Cursor,
	}
}

// ExtractHashtags returns the #tags of a caption in order of appearance,
// without the leading '#'. Overlong tags are dropped.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.TrimSpace(m[1])
		if tag == "" || len([]rune(tag)) > maxHashtagRuneCount {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
