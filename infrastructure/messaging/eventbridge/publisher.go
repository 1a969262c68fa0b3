package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"trendscout/domain/events"
	pkgerrors "trendscout/pkg/errors"
)

// Source is the EventBridge source of every event this service emits
const Source = "trendscout.explorations"

// PutEvents limits
const (
	maxEntriesPerCall = 10
	maxEntryBytes     = 256 * 1024
)

// putAttempts bounds how often entries that failed transiently are resent
const putAttempts = 2

// Client is the subset of the EventBridge API used by the publisher
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var _ Client = (*eventbridge.Client)(nil)

// Publisher sends domain events to an EventBridge bus
type Publisher struct {
	client  Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates a publisher for busName
func NewPublisher(client Client, busName string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, busName: busName, logger: logger}
}

// Publish sends one event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in PutEvents-sized chunks and stops at the first
// chunk that cannot be delivered
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for start := 0; start < len(batch); start += maxEntriesPerCall {
		end := min(start+maxEntriesPerCall, len(batch))
		if err := p.send(ctx, p.entries(batch[start:end])); err != nil {
			return err
		}
	}
	return nil
}

// entries converts events, dropping any that cannot be encoded or exceed
// the entry size limit
func (p *Publisher) entries(batch []events.DomainEvent) []types.PutEventsRequestEntry {
	out := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err == nil && len(detail) > maxEntryBytes {
			err = fmt.Errorf("detail is %d bytes", len(detail))
		}
		if err != nil {
			p.logger.Error("Dropping unpublishable event",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
			continue
		}

		out = append(out, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(Source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{"trendscout:exploration/" + event.GetAggregateID()},
		})
	}
	return out
}

// send delivers entries, resending the ones EventBridge rejected
func (p *Publisher) send(ctx context.Context, pending []types.PutEventsRequestEntry) error {
	for attempt := 1; len(pending) > 0; attempt++ {
		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: pending})
		if err != nil {
			return pkgerrors.NewExternalError("eventbridge", err)
		}
		if out.FailedEntryCount == 0 {
			p.logger.Debug("Events published",
				zap.Int("count", len(pending)),
				zap.String("eventBus", p.busName),
			)
			return nil
		}

		failed := rejected(pending, out.Entries)
		for _, f := range failed {
			p.logger.Warn("EventBridge rejected event",
				zap.String("eventType", aws.ToString(f.entry.DetailType)),
				zap.String("errorCode", f.code),
				zap.String("errorMessage", f.message),
				zap.Int("attempt", attempt),
			)
		}
		if attempt == putAttempts || len(failed) == 0 {
			return pkgerrors.NewExternalError("eventbridge",
				fmt.Errorf("%d events not delivered after %d attempts", len(failed), attempt))
		}

		pending = pending[:0:0]
		for _, f := range failed {
			pending = append(pending, f.entry)
		}
	}
	return nil
}

type rejection struct {
	entry   types.PutEventsRequestEntry
	code    string
	message string
}

// rejected pairs result entries with the request entries they answer
func rejected(sent []types.PutEventsRequestEntry, results []types.PutEventsResultEntry) []rejection {
	var out []rejection
	for i, r := range results {
		if r.ErrorCode == nil || i >= len(sent) {
			continue
		}
		out = append(out, rejection{
			entry:   sent[i],
			code:    aws.ToString(r.ErrorCode),
			message: aws.ToString(r.ErrorMessage),
		})
	}
	return out
}
