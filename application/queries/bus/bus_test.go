package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct {
	Value string
}

func (q echoQuery) Validate() error {
	if q.Value == "" {
		return errors.New("value is required")
	}
	return nil
}

type keyedQuery struct {
	ID    string
	Noise int
}

func (keyedQuery) Validate() error    { return nil }
func (q keyedQuery) CacheKey() string { return q.ID }

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache { return &mapCache{items: map[string]interface{}{}} }

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

type observed struct {
	name    string
	success bool
}

type recordingMetrics struct {
	mu   sync.Mutex
	seen []observed
}

func (r *recordingMetrics) ObserveQuery(name string, _ time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observed{name, success})
}

func echo() QueryHandler {
	return QueryHandlerFunc(func(_ context.Context, q Query) (interface{}, error) {
		return q.(echoQuery).Value, nil
	})
}

func TestQueryBus_RegisterAndAsk(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, echo()))
	assert.Error(t, b.Register(echoQuery{}, echo()))

	got, err := b.Ask(context.Background(), echoQuery{Value: "nashville"})
	require.NoError(t, err)
	assert.Equal(t, "nashville", got)

	_, err = b.Ask(context.Background(), echoQuery{})
	assert.EqualError(t, err, "value is required")

	_, err = b.Ask(context.Background(), keyedQuery{ID: "x"})
	assert.ErrorContains(t, err, "keyedQuery")
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next QueryHandler) QueryHandler {
			return QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, q)
			})
		}
	}

	_, err := Chain(echo(), tag("outer"), tag("inner")).Handle(context.Background(), echoQuery{Value: "v"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestCachingMiddleware(t *testing.T) {
	var calls int32
	handler := QueryHandlerFunc(func(_ context.Context, q Query) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		if q.(keyedQuery).ID == "bad" {
			return nil, errors.New("boom")
		}
		return q.(keyedQuery).ID, nil
	})
	cache := newMapCache()
	cached := NewCachingMiddleware(cache, 60, nil).Wrap(handler)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cached.Handle(ctx, keyedQuery{ID: "a", Noise: i})
		require.NoError(t, err)
		assert.Equal(t, "a", got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, cache.items, "keyedQuery:a")

	_, err := cached.Handle(ctx, keyedQuery{ID: "bad"})
	assert.Error(t, err)
	_, err = cached.Handle(ctx, keyedQuery{ID: "bad"})
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCachingMiddleware_DefaultKey(t *testing.T) {
	cache := newMapCache()
	cached := NewCachingMiddleware(cache, 60, nil).Wrap(echo())

	_, err := cached.Handle(context.Background(), echoQuery{Value: "v"})
	require.NoError(t, err)
	assert.Contains(t, cache.items, "echoQuery:{Value:v}")
}

type failingCache struct{ *mapCache }

func (failingCache) Set(context.Context, string, interface{}, int) error {
	return errors.New("cache full")
}

func TestCachingMiddleware_SetFailureStillAnswers(t *testing.T) {
	cached := NewCachingMiddleware(failingCache{newMapCache()}, 60, nil).Wrap(echo())

	got, err := cached.Handle(context.Background(), echoQuery{Value: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestCachingMiddleware_SharedLoadSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	handler := QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return q.(keyedQuery).ID, nil
	})
	cache := newMapCache()
	cached := NewCachingMiddleware(cache, 60, nil).Wrap(handler)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.Handle(firstCtx, keyedQuery{ID: "a"})
		firstErr <- err
	}()
	<-started

	type answer struct {
		val interface{}
		err error
	}
	second := make(chan answer, 1)
	go func() {
		v, err := cached.Handle(context.Background(), keyedQuery{ID: "a"})
		second <- answer{v, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "a", got.val)
	assert.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "keyedQuery:a")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := &recordingMetrics{}
	failing := QueryHandlerFunc(func(context.Context, Query) (interface{}, error) {
		return nil, errors.New("boom")
	})
	ctx := context.Background()

	_, err := NewMetricsMiddleware(metrics).Wrap(echo()).Handle(ctx, echoQuery{Value: "v"})
	require.NoError(t, err)
	_, err = NewMetricsMiddleware(metrics).Wrap(failing).Handle(ctx, &keyedQuery{})
	require.Error(t, err)

	assert.Equal(t, []observed{{"echoQuery", true}, {"keyedQuery", false}}, metrics.seen)
}
