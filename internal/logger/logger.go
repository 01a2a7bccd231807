package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "verdict"

// Version is overridden at build time via -ldflags
var Version = "dev"

type Logger struct {
	*zap.SugaredLogger
	otelCore   *otelzap.Core
	tracer     trace.Tracer
	baseLogger *zap.Logger
}

func New(cfg config.LoggerConfig) (*Logger, error) {
	var zapConfig zap.Config

	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// Results go to stdout, so logs default to stderr
	zapConfig.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapConfig.OutputPaths = cfg.OutputPaths
	}

	zapConfig.InitialFields = map[string]interface{}{
		"service": serviceName,
		"version": Version,
	}

	baseLogger, err := zapConfig.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	otelCore := otelzap.NewCore(serviceName,
		otelzap.WithAttributes(
			attribute.String("service", serviceName),
			attribute.String("version", Version),
		),
	)

	// Tee so records reach both the configured sinks and the OTel log pipeline
	core := zapcore.NewTee(baseLogger.Core(), otelCore)
	enhancedLogger := zap.New(core, zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		SugaredLogger: enhancedLogger.Sugar(),
		otelCore:      otelCore,
		tracer:        otel.Tracer(serviceName + "/logger"),
		baseLogger:    enhancedLogger,
	}, nil
}

// Nop returns a logger that discards everything. Handy in tests and when
// callers don't supply one.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{
		SugaredLogger: base.Sugar(),
		tracer:        otel.Tracer(serviceName + "/nop"),
		baseLogger:    base,
	}
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		spanCtx := span.SpanContext()
		return l.WithFields(
			"trace_id", spanCtx.TraceID().String(),
			"span_id", spanCtx.SpanID().String(),
		)
	}
	return l
}

func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.With(fields...),
		otelCore:      l.otelCore,
		tracer:        l.tracer,
		baseLogger:    l.baseLogger,
	}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

func (l *Logger) WithFinding(findingID string) *Logger {
	return l.WithFields("finding_id", findingID)
}

func (l *Logger) WithRunID(runID string) *Logger {
	return l.WithFields("run_id", runID)
}

func (l *Logger) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if l.tracer == nil {
		l.tracer = otel.Tracer(serviceName + "/default")
	}
	return l.tracer.Start(ctx, name, opts...)
}

func (l *Logger) LogDuration(ctx context.Context, operation string, start time.Time, fields ...interface{}) {
	duration := time.Since(start)

	allFields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String(),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Infow("Operation completed", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("operation_completed", trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	}
}

func (l *Logger) LogError(ctx context.Context, err error, operation string, fields ...interface{}) {
	if err == nil {
		return
	}

	allFields := []interface{}{
		"error", err.Error(),
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Errorw("Operation failed", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LogHTTPRequest records a replayed request. Target status codes are the
// thing under test, so 4xx/5xx are logged at debug rather than warn.
func (l *Logger) LogHTTPRequest(ctx context.Context, method, url string, statusCode int, duration time.Duration, fields ...interface{}) {
	allFields := []interface{}{
		"http_method", method,
		"http_url", url,
		"http_status", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Debugw("HTTP request completed", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("http_request", trace.WithAttributes(
			attribute.String("method", method),
			attribute.String("url", url),
			attribute.Int("status_code", statusCode),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	}
}

// LogValidationOutcome is the single summary line emitted per scored finding
func (l *Logger) LogValidationOutcome(ctx context.Context, findingID, recommendation string, score float64, fields ...interface{}) {
	allFields := []interface{}{
		"finding_id", findingID,
		"recommendation", recommendation,
		"overall_score", score,
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Infow("Finding validated", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("finding_validated", trace.WithAttributes(
			attribute.String("finding_id", findingID),
			attribute.String("recommendation", recommendation),
			attribute.Float64("overall_score", score),
		))
	}
}

func (l *Logger) StartOperation(ctx context.Context, operation string, fields ...interface{}) (context.Context, trace.Span) {
	ctx, span := l.StartSpan(ctx, operation)

	allFields := []interface{}{
		"operation", operation,
		"operation_start", true,
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Debugw("Operation started", allFields...)

	return ctx, span
}

func (l *Logger) FinishOperation(ctx context.Context, span trace.Span, operation string, start time.Time, err error, fields ...interface{}) {
	defer span.End()

	duration := time.Since(start)

	allFields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"operation_end", true,
	}
	allFields = append(allFields, fields...)

	if err != nil {
		l.LogError(ctx, err, operation, allFields...)
	} else {
		l.WithContext(ctx).Debugw("Operation completed successfully", allFields...)
		span.SetStatus(codes.Ok, "completed")
	}

	span.AddEvent("operation_finished", trace.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.Bool("success", err == nil),
	))
}
