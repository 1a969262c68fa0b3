package logbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"trendscout/domain/core/entities"
	"trendscout/domain/events"
)

func TestPublisher_LogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewPublisher(zap.New(core))

	evt := events.NewInsightsGenerated("e1", &entities.TrendInsights{KeyTrends: []string{"a", "b"}, GeneratedAt: time.Now()})
	require.NoError(t, p.PublishBatch(context.Background(), []events.DomainEvent{evt, evt}))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, events.EventTypeInsightsGenerated, entries[0].ContextMap()["eventType"])
	assert.Equal(t, "e1", entries[0].ContextMap()["aggregateID"])
}
