package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogScanStart logs the beginning of a sweep
func (l *Logger) LogScanStart(ctx context.Context, regions []string, targets int) {
	l.WithContext(ctx).Info().
		Strs("regions", regions).
		Int("targets", targets).
		Str("operation", "scan").
		Msg("starting resource sweep")
}

// LogScanComplete logs a finished sweep with its failure classification
func (l *Logger) LogScanComplete(ctx context.Context, total int, failed int, durationMS float64) {
	l.WithContext(ctx).Info().
		Int("resources_found", total).
		Int("failed_targets", failed).
		Float64("duration_ms", durationMS).
		Str("operation", "scan").
		Msg("resource sweep completed")
}

// LogStoreError logs a schedule store failure
func (l *Logger) LogStoreError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("schedule store operation failed")
}
