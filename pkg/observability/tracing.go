package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"trendscout/application/ports"
	"trendscout/domain/core/entities"
)

// TracingConfig describes where spans go and how many are kept
type TracingConfig struct {
	ServiceName string
	Environment string
	Endpoint    string
	// SampleRatio applies to root spans; children follow their parent
	SampleRatio float64
}

// TracerProvider owns the SDK provider installed as the global one
type TracerProvider struct {
	sdk  *sdktrace.TracerProvider
	name string
}

// InitTracing exports spans over OTLP gRPC and installs the provider and a
// W3C propagator globally
func InitTracing(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{sdk: sdk, name: cfg.ServiceName}, nil
}

// Shutdown flushes pending spans. Safe on a nil provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return tp.sdk.Shutdown(ctx)
}

// Tracer returns the service tracer, or the global one on a nil provider
func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil {
		return otel.Tracer("trendscout")
	}
	return tp.sdk.Tracer(tp.name)
}

// withSpan runs fn inside a span and records its error
func withSpan[T any](ctx context.Context, tracer trace.Tracer, name string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// TraceExplorationRepository decorates repo with one span per call
func TraceExplorationRepository(repo ports.ExplorationRepository, tracer trace.Tracer) ports.ExplorationRepository {
	return &tracedRepository{next: repo, tracer: tracer}
}

type tracedRepository struct {
	next   ports.ExplorationRepository
	tracer trace.Tracer
}

func (r *tracedRepository) Save(ctx context.Context, result *entities.ExplorationResult) error {
	_, err := withSpan(ctx, r.tracer, "repository.SaveExploration",
		[]attribute.KeyValue{
			attribute.String("exploration.id", result.ExplorationID),
			attribute.String("user.id", result.UserID),
			attribute.Int("exploration.discoveries", len(result.Discoveries)),
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.next.Save(ctx, result)
		})
	return err
}

func (r *tracedRepository) GetByID(ctx context.Context, explorationID string) (*entities.ExplorationResult, error) {
	return withSpan(ctx, r.tracer, "repository.GetExploration",
		[]attribute.KeyValue{attribute.String("exploration.id", explorationID)},
		func(ctx context.Context) (*entities.ExplorationResult, error) {
			return r.next.GetByID(ctx, explorationID)
		})
}

func (r *tracedRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.ExplorationResult, error) {
	return withSpan(ctx, r.tracer, "repository.ListExplorations",
		[]attribute.KeyValue{attribute.String("user.id", userID), attribute.Int("limit", limit)},
		func(ctx context.Context) ([]*entities.ExplorationResult, error) {
			results, err := r.next.ListByUser(ctx, userID, limit)
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int("results", len(results)))
			return results, err
		})
}
