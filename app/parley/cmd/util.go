package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/cchalm/parley/internal/config"
	"github.com/cchalm/parley/internal/llm"
	"github.com/cchalm/parley/internal/telemetry"
	"github.com/cchalm/parley/internal/transport"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown. The first interrupt cancels any in-flight request and stops the loop before it reads
	// another line; the second exits immediately.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		slog.Info("interrupt signal detected, shutting down gracefully")
		cancel()
		<-interrupt
		os.Exit(130)
	}()

	return ctx
}

func createCompleter(cfg config.Config) (llm.Completer, error) {
	rateLimitedHTTPClient := &http.Client{
		Transport: transport.WithRateLimiting(nil, cfg.MaxRateLimitWait),
	}
	return llm.New(llm.Config{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		OrgID:      cfg.OrgID,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		HTTPClient: rateLimitedHTTPClient,
	})
}

func createTelemetryProvider(ctx context.Context, cfg config.Config) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.TelemetryConfig{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: versionInfo.Version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}
