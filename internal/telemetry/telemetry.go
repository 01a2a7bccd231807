package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

type telemetry struct {
	tracerProvider *sdktrace.TracerProvider

	attemptCounter    metric.Int64Counter
	attemptLatency    metric.Float64Histogram
	confidenceScore   metric.Float64Histogram
	recommendationCnt metric.Int64Counter
}

func New(ctx context.Context, cfg config.TelemetryConfig) (core.Telemetry, error) {
	if !cfg.Enabled {
		return &noopTelemetry{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(logger.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter

	switch cfg.ExporterType {
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := otel.Meter(cfg.ServiceName)

	attemptCounter, err := meter.Int64Counter("verdict.attempts.total",
		metric.WithDescription("Requests sent while validating findings"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	attemptLatency, err := meter.Float64Histogram("verdict.attempt.latency",
		metric.WithDescription("Latency of validation requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	confidenceScore, err := meter.Float64Histogram("verdict.confidence.score",
		metric.WithDescription("Overall confidence score per finding"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	recommendationCnt, err := meter.Int64Counter("verdict.recommendations.total",
		metric.WithDescription("Recommendations issued by the scorer"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		tracerProvider:    tp,
		attemptCounter:    attemptCounter,
		attemptLatency:    attemptLatency,
		confidenceScore:   confidenceScore,
		recommendationCnt: recommendationCnt,
	}, nil
}

func (t *telemetry) RecordAttempt(kind core.AttemptKind, success bool, latency time.Duration) {
	ctx := context.Background()

	attrs := metric.WithAttributes(
		attribute.String("attempt.kind", string(kind)),
		attribute.Bool("attempt.success", success),
	)

	t.attemptCounter.Add(ctx, 1, attrs)
	t.attemptLatency.Record(ctx, float64(latency.Microseconds())/1000.0, attrs)
}

func (t *telemetry) RecordConfidence(score float64, recommendation types.Recommendation) {
	ctx := context.Background()

	attrs := metric.WithAttributes(attribute.String("recommendation", string(recommendation)))

	t.confidenceScore.Record(ctx, score, attrs)
	t.recommendationCnt.Add(ctx, 1, attrs)
}

func (t *telemetry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.tracerProvider.Shutdown(ctx)
}

type noopTelemetry struct{}

func (n *noopTelemetry) RecordAttempt(kind core.AttemptKind, success bool, latency time.Duration) {}
func (n *noopTelemetry) RecordConfidence(score float64, recommendation types.Recommendation)      {}
func (n *noopTelemetry) Close() error                                                             { return nil }

// Noop returns a Telemetry that records nothing
func Noop() core.Telemetry {
	return &noopTelemetry{}
}
