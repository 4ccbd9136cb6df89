package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Chat with a large language model from your terminal",
	Long: `parley is an interactive chat client. Type a message to send it to the model,
or a slash command such as /help, /save or /quit to manage the conversation.

The API key is read from OPENAI_API_KEY (or ANTHROPIC_API_KEY with --provider anthropic),
from a .env file in the working directory, or from parley.yaml.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRun:        loadDotEnv,
	RunE:          runChat,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadDotEnv(_ *cobra.Command, _ []string) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
}

func init() {
	rootCmd.Flags().StringVar(&flags.ConfigFile, "config", "", "Path to a YAML config file (default parley.yaml if present)")
	rootCmd.Flags().StringVar(&flags.Provider, "provider", "", "Completion provider: openai or anthropic")
	rootCmd.Flags().StringVar(&flags.Model, "model", "", "Model to chat with")
	rootCmd.Flags().StringVar(&flags.ResumeFile, "resume", "", "Continue the conversation saved in a transcript file")
	rootCmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
}
