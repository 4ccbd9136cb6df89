package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/parley/internal/ai"
	"github.com/cchalm/parley/internal/chat"
	"github.com/cchalm/parley/internal/config"
	"github.com/cchalm/parley/internal/github"
	"github.com/cchalm/parley/internal/logger"
	"github.com/cchalm/parley/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flags.ConfigFile, config.Overrides{
		Provider: flags.Provider,
		Model:    flags.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.Verbose {
		cfg.LogLevel = "debug"
	}
	// Missing credentials are fatal before the session starts
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := setupContext()

	telemetryProvider, err := createTelemetryProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down telemetry", "error", err)
		}
	}()
	logger.Setup(os.Stderr, cfg.LogLevel, telemetryProvider.Enabled())

	sessionID := telemetry.NewSessionID()
	ctx = logger.WithSessionID(ctx, sessionID)

	completer, err := createCompleter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	conversation, err := openConversation(cfg.TranscriptDir, flags.ResumeFile)
	if err != nil {
		return err
	}

	var publisher chat.Publisher
	if cfg.GitHubToken != "" {
		publisher = github.NewGistPublisher(ctx, cfg.GitHubToken)
	}

	loop := chat.New(conversation, completer, publisher, chat.Options{
		SystemPrompt:  cfg.SystemPrompt,
		HistoryWindow: cfg.HistoryWindow,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		SessionID:     sessionID,
	}, cmd.OutOrStdout())

	slog.InfoContext(ctx, "session started", "provider", cfg.Provider, "model", completer.Model())
	printBanner(cmd, completer.Model(), conversation.Len())

	return loop.Run(ctx, cmd.InOrStdin())
}

func openConversation(dir string, resumeFile string) (*ai.Conversation, error) {
	if resumeFile == "" {
		return ai.NewConversation(dir), nil
	}
	messages, err := ai.ReadTranscript(resumeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resume conversation from '%s': %w", resumeFile, err)
	}
	return ai.NewConversationFrom(dir, messages), nil
}

func printBanner(cmd *cobra.Command, model string, resumed int) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🤖 Welcome to parley!")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "✅ Chatting with %s\n", model)
	if resumed > 0 {
		fmt.Fprintf(out, "📂 Resumed %d messages\n", resumed)
	}
	fmt.Fprintln(out, "💡 Type /help for available commands")
	fmt.Fprintln(out, "💡 Type /quit to exit")
	fmt.Fprintln(out, strings.Repeat("-", 50))
}
