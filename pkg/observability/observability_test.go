package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"trendscout/application/ports"
	"trendscout/domain/core/entities"
	"trendscout/infrastructure/persistence/memory"
)

func TestCollector_ExplorationMetrics(t *testing.T) {
	c := NewCollector("trendscout")

	c.RecordExploration("balanced", 2*time.Second, 3, false)
	c.RecordExploration("balanced", time.Second, 0, true)
	c.RecordSearch(ports.SearchOutcomeSuccess)
	c.RecordSearch(ports.SearchOutcomeFailure)
	c.RecordSearch(ports.SearchOutcomeFailure)
	c.RecordDiscovery(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Explorations.WithLabelValues("balanced", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Explorations.WithLabelValues("balanced", "cancelled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Searches.WithLabelValues(ports.SearchOutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Discoveries.WithLabelValues("true")))
}

func TestCollector_QueryMetrics(t *testing.T) {
	c := NewCollector("trendscout")

	c.ObserveQuery("GetExplorationQuery", 5*time.Millisecond, true)
	c.ObserveQuery("GetExplorationQuery", time.Millisecond, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("GetExplorationQuery", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.QueryDuration))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("trendscout")
	c.RecordHTTPRequest(http.MethodPost, "/api/v1/explorations", http.StatusOK, 150*time.Millisecond)
	require.NoError(t, c.RegisterGaugeFunc("trendscout", "search_cache_hit_rate", "Search cache hit rate", func() float64 { return 0.5 }))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `trendscout_http_requests_total{method="POST",route="/api/v1/explorations",status="200"} 1`)
	assert.Contains(t, body, "trendscout_search_cache_hit_rate 0.5")
}

func TestCollectors_AreIndependent(t *testing.T) {
	a := NewCollector("trendscout")
	b := NewCollector("trendscout")
	a.RecordSearch(ports.SearchOutcomeEmpty)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Searches.WithLabelValues(ports.SearchOutcomeEmpty)))
}

type failingRepo struct{ ports.ExplorationRepository }

func (failingRepo) GetByID(context.Context, string) (*entities.ExplorationResult, error) {
	return nil, errors.New("boom")
}

func TestTraceExplorationRepository(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")
	ctx := context.Background()

	repo := TraceExplorationRepository(memory.NewInMemoryExplorationRepository(), tracer)
	require.NoError(t, repo.Save(ctx, &entities.ExplorationResult{ExplorationID: "e1", UserID: "u1"}))
	_, err := repo.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)

	_, err = TraceExplorationRepository(failingRepo{}, tracer).GetByID(ctx, "e1")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "repository.SaveExploration", spans[0].Name())
	assert.Equal(t, "repository.ListExplorations", spans[1].Name())
	assert.Equal(t, "repository.GetExploration", spans[2].Name())
	assert.Len(t, spans[2].Events(), 1)
}

func TestTracerProvider_NilSafe(t *testing.T) {
	var tp *TracerProvider
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NotNil(t, tp.Tracer())
}
