package telemetry

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestStartTurn(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := StartTurn(context.Background(), TurnTelemetry{
		SessionID:   "session-1",
		TurnIndex:   3,
		Model:       "gpt-3.5-turbo",
		HistorySize: 7,
	})
	RecordTokenUsage(ctx, TokenUsage{PromptTokens: 40, CompletionTokens: 9})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chat.turn", spans[0].Name())

	attrs := attributes(spans[0])
	assert.Equal(t, "session-1", attrs["session.id"].AsString())
	assert.Equal(t, int64(3), attrs["turn.index"].AsInt64())
	assert.Equal(t, int64(7), attrs["llm.history_size"].AsInt64())
	assert.Equal(t, int64(40), attrs["llm.prompt_tokens"].AsInt64())
	assert.Equal(t, int64(9), attrs["llm.completion_tokens"].AsInt64())
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), TelemetryConfig{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_LogExporterFailureInstallsNothing(t *testing.T) {
	original := newLogExporter
	newLogExporter = func(context.Context, string) (sdklog.Exporter, error) {
		return nil, fmt.Errorf("log exporter unavailable")
	}
	t.Cleanup(func() { newLogExporter = original })

	previousTracer := otel.GetTracerProvider()
	previousLogger := global.GetLoggerProvider()

	p, err := NewProvider(context.Background(), TelemetryConfig{Endpoint: "http://127.0.0.1:4318"})

	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "log exporter unavailable")
	assert.True(t, previousTracer == otel.GetTracerProvider())
	assert.True(t, previousLogger == global.GetLoggerProvider())
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewSessionID())
}
