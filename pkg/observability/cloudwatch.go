package observability

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"trendscout/application/ports"
)

// PutMetricData accepts at most this many datums per call
const maxDatumsPerRequest = 1000

// CloudWatchClient is the subset of the CloudWatch API the sink uses
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ CloudWatchClient = (*cloudwatch.Client)(nil)

// CloudWatchMetrics buffers exploration metrics and ships them to CloudWatch
// on Flush. Counters are summed per dimension set between flushes so a run
// with hundreds of searches costs a handful of datums.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchClient
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	counters  map[string]*types.MetricDatum
	durations []types.MetricDatum
}

// NewCloudWatchMetrics creates a sink for the namespace
func NewCloudWatchMetrics(namespace string, client CloudWatchClient, logger *zap.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
		counters:  make(map[string]*types.MetricDatum),
	}
}

// RecordExploration implements ports.Metrics
func (m *CloudWatchMetrics) RecordExploration(strategy string, duration time.Duration, discoveries int, cancelled bool) {
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.count("Explorations", 1, "Strategy", strategy, "Outcome", outcome)
	m.count("ExplorationDiscoveries", float64(discoveries), "Strategy", strategy)
	m.durations = append(m.durations, types.MetricDatum{
		MetricName: aws.String("ExplorationDuration"),
		Dimensions: dimensions("Strategy", strategy),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       types.StandardUnitMilliseconds,
		Timestamp:  aws.Time(m.now()),
	})
}

// RecordSearch implements ports.Metrics
func (m *CloudWatchMetrics) RecordSearch(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("Searches", 1, "Outcome", outcome)
}

// RecordDiscovery implements ports.Metrics
func (m *CloudWatchMetrics) RecordDiscovery(trending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("Discoveries", 1, "Trending", strconv.FormatBool(trending))
}

// count must be called with mu held
func (m *CloudWatchMetrics) count(name string, value float64, dims ...string) {
	key := name + "|" + strings.Join(dims, "|")
	if d, ok := m.counters[key]; ok {
		*d.Value += value
		return
	}
	m.counters[key] = &types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dimensions(dims...),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
	}
}

// Flush sends everything buffered since the last flush. Datums that fail to
// send are dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	data := m.drain()
	m.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	for start := 0; start < len(data); start += maxDatumsPerRequest {
		end := start + maxDatumsPerRequest
		if end > len(data) {
			end = len(data)
		}
		if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		}); err != nil {
			m.logger.Warn("Failed to send metrics", zap.Int("datums", end-start), zap.Error(err))
			return err
		}
	}

	m.logger.Debug("Metrics flushed", zap.Int("datums", len(data)))
	return nil
}

// Run flushes on every tick until ctx is done, then flushes once more
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.Flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = m.Flush(flushCtx)
			cancel()
			return
		}
	}
}

// drain must be called with mu held
func (m *CloudWatchMetrics) drain() []types.MetricDatum {
	now := aws.Time(m.now())

	keys := make([]string, 0, len(m.counters))
	for k := range m.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make([]types.MetricDatum, 0, len(keys)+len(m.durations))
	for _, k := range keys {
		d := *m.counters[k]
		d.Timestamp = now
		data = append(data, d)
	}
	data = append(data, m.durations...)

	m.counters = make(map[string]*types.MetricDatum)
	m.durations = nil
	return data
}

func dimensions(pairs ...string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		dims = append(dims, types.Dimension{
			Name:  aws.String(pairs[i]),
			Value: aws.String(pairs[i+1]),
		})
	}
	return dims
}

// MultiMetrics fans every measurement out to each sink
type MultiMetrics []ports.Metrics

// RecordExploration implements ports.Metrics
func (m MultiMetrics) RecordExploration(strategy string, duration time.Duration, discoveries int, cancelled bool) {
	for _, sink := range m {
		sink.RecordExploration(strategy, duration, discoveries, cancelled)
	}
}

// RecordSearch implements ports.Metrics
func (m MultiMetrics) RecordSearch(outcome string) {
	for _, sink := range m {
		sink.RecordSearch(outcome)
	}
}

// RecordDiscovery implements ports.Metrics
func (m MultiMetrics) RecordDiscovery(trending bool) {
	for _, sink := range m {
		sink.RecordDiscovery(trending)
	}
}
