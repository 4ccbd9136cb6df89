// Package telemetry wires OpenTelemetry tracing and log export for chat sessions.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "parley"
	tracerName  = "github.com/cchalm/parley"
)

var newLogExporter = func(ctx context.Context, endpointURL string) (sdklog.Exporter, error) {
	return otlploghttp.New(ctx, otlploghttp.WithEndpointURL(endpointURL))
}

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Endpoint       string // OTLP/HTTP collector base URL; telemetry is disabled when empty
	ServiceVersion string
}

// Enabled reports whether an exporter endpoint is configured
func (c TelemetryConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Provider owns the tracer and logger providers for the lifetime of the process
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
}

// NewProvider installs global OpenTelemetry providers exporting to config.Endpoint. When telemetry is disabled the
// returned provider is inert and the global no-op providers remain in place.
func NewProvider(ctx context.Context, config TelemetryConfig) (*Provider, error) {
	if !config.Enabled() {
		slog.DebugContext(ctx, "telemetry disabled")
		return &Provider{}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(config.Endpoint+"/v1/traces"))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	logExporter, err := newLogExporter(ctx, config.Endpoint+"/v1/logs")
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	// Both exporters exist before either provider is installed globally
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	return &Provider{
		tracerProvider: tracerProvider,
		loggerProvider: loggerProvider,
	}, nil
}

// Enabled reports whether telemetry is being exported
func (p *Provider) Enabled() bool {
	return p.tracerProvider != nil
}

// Shutdown flushes and stops the exporters
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if p.loggerProvider != nil {
		if err := p.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}

// TurnTelemetry describes one chat turn
type TurnTelemetry struct {
	SessionID   string
	TurnIndex   int
	Model       string
	HistorySize int // Messages sent with the request, including any system prompt
}

// TokenUsage represents token usage metrics
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// StartTurn starts a span covering one chat turn. The caller must end the returned span.
func StartTurn(ctx context.Context, turn TurnTelemetry) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("session.id", turn.SessionID),
		attribute.Int("turn.index", turn.TurnIndex),
		attribute.String("llm.model", turn.Model),
		attribute.Int("llm.history_size", turn.HistorySize),
	))
}

// RecordTokenUsage attaches token usage to the span in ctx
func RecordTokenUsage(ctx context.Context, usage TokenUsage) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("llm.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.completion_tokens", usage.CompletionTokens),
	)
}

// NewSessionID generates a new session UUID
func NewSessionID() string {
	return uuid.New().String()
}
