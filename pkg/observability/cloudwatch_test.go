package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, in)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func datumValue(t *testing.T, data []types.MetricDatum, name string, dims ...string) float64 {
	t.Helper()
	for _, d := range data {
		if aws.ToString(d.MetricName) != name || len(d.Dimensions) != len(dims)/2 {
			continue
		}
		match := true
		for i, dim := range d.Dimensions {
			if aws.ToString(dim.Name) != dims[2*i] || aws.ToString(dim.Value) != dims[2*i+1] {
				match = false
			}
		}
		if match {
			return aws.ToFloat64(d.Value)
		}
	}
	t.Fatalf("datum %s %v not found", name, dims)
	return 0
}

func TestCloudWatchMetrics_FlushAggregatesCounters(t *testing.T) {
	client := &mockCloudWatch{}
	var sent *cloudwatch.PutMetricDataInput
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(nil).Once()

	m := NewCloudWatchMetrics("TrendScout/test", client, zap.NewNop())
	m.RecordSearch("success")
	m.RecordSearch("success")
	m.RecordSearch("failure")
	m.RecordDiscovery(true)
	m.RecordExploration("balanced", 1500*time.Millisecond, 2, false)

	require.NoError(t, m.Flush(context.Background()))
	require.NotNil(t, sent)

	assert.Equal(t, "TrendScout/test", aws.ToString(sent.Namespace))
	assert.Equal(t, 2.0, datumValue(t, sent.MetricData, "Searches", "Outcome", "success"))
	assert.Equal(t, 1.0, datumValue(t, sent.MetricData, "Searches", "Outcome", "failure"))
	assert.Equal(t, 1.0, datumValue(t, sent.MetricData, "Discoveries", "Trending", "true"))
	assert.Equal(t, 1.0, datumValue(t, sent.MetricData, "Explorations", "Strategy", "balanced", "Outcome", "completed"))
	assert.Equal(t, 2.0, datumValue(t, sent.MetricData, "ExplorationDiscoveries", "Strategy", "balanced"))
	assert.Equal(t, 1500.0, datumValue(t, sent.MetricData, "ExplorationDuration", "Strategy", "balanced"))

	// Nothing buffered, nothing sent
	require.NoError(t, m.Flush(context.Background()))
	client.AssertExpectations(t)
}

func TestCloudWatchMetrics_FlushError(t *testing.T) {
	client := &mockCloudWatch{}
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	m := NewCloudWatchMetrics("TrendScout/test", client, zap.NewNop())
	m.RecordSearch("empty")

	assert.Error(t, m.Flush(context.Background()))
}

func TestMultiMetrics(t *testing.T) {
	collector := NewCollector("trendscout")
	client := &mockCloudWatch{}
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(nil)
	cw := NewCloudWatchMetrics("TrendScout/test", client, zap.NewNop())

	sinks := MultiMetrics{collector, cw}
	sinks.RecordSearch("success")
	sinks.RecordDiscovery(false)
	sinks.RecordExploration("novelty", time.Second, 1, true)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.Searches.WithLabelValues("success")))
	require.NoError(t, cw.Flush(context.Background()))
	client.AssertNumberOfCalls(t, "PutMetricData", 1)
}
