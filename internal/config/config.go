// Package config provides configuration management for parley.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config file is given explicitly and it exists in the working directory
const DefaultFile = "parley.yaml"

const defaultSystemPrompt = "You are a helpful AI assistant. Be friendly, informative, and concise in your responses."

// ErrMissingCredential is returned by Validate when no API key is configured
var ErrMissingCredential = errors.New("API key not found")

// Config holds the configuration for a chat session
type Config struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	OrgID        string `yaml:"org_id"`
	BaseURL      string `yaml:"base_url"`
	SystemPrompt string `yaml:"system_prompt"`

	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	HistoryWindow int     `yaml:"history_window"` // Number of most recent messages sent with each request
	MaxRetries    int     `yaml:"max_retries"`
	// Longest retry-after announcement that is waited out before a rate limit is reported
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`

	TranscriptDir string `yaml:"transcript_dir"`
	GitHubToken   string `yaml:"github_token"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the configuration used before any file or environment variable is applied
func Default() Config {
	return Config{
		Provider:         "openai",
		SystemPrompt:     defaultSystemPrompt,
		Temperature:      0.7,
		MaxTokens:        500,
		HistoryWindow:    10,
		MaxRetries:       2,
		MaxRateLimitWait: 10 * time.Second,
		TranscriptDir:    ".",
		LogLevel:         "warn",
	}
}

// Overrides are values given on the command line. They take precedence over every other source.
type Overrides struct {
	Provider string
	Model    string
}

// Load builds a configuration from defaults, then the YAML file at path, then environment variables, then overrides.
// An empty path reads DefaultFile if it exists.
func Load(path string, overrides Overrides) (Config, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFile(&config, path); err != nil {
			return Config{}, err
		}
	}

	if err := loadEnv(&config, overrides); err != nil {
		return Config{}, err
	}
	if overrides.Model != "" {
		config.Model = overrides.Model
	}
	return config, nil
}

func loadFile(config *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	err = yaml.Unmarshal(b, config)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return nil
}

func loadEnv(config *Config, overrides Overrides) error {
	loadOptionalFromEnv(&config.Provider, "PARLEY_PROVIDER")
	if overrides.Provider != "" {
		config.Provider = overrides.Provider
	}
	loadOptionalFromEnv(&config.Model, "PARLEY_MODEL")
	loadOptionalFromEnv(&config.SystemPrompt, "PARLEY_SYSTEM_PROMPT")
	loadOptionalFromEnv(&config.TranscriptDir, "PARLEY_TRANSCRIPT_DIR")
	loadOptionalFromEnv(&config.LogLevel, "PARLEY_LOG_LEVEL")
	loadOptionalFromEnv(&config.GitHubToken, "GITHUB_TOKEN")
	loadOptionalFromEnv(&config.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	// Credentials and endpoints are read from the variables of the selected provider
	if config.Provider == "anthropic" {
		loadOptionalFromEnv(&config.APIKey, "ANTHROPIC_API_KEY")
		loadOptionalFromEnv(&config.BaseURL, "ANTHROPIC_BASE_URL")
	} else {
		loadOptionalFromEnv(&config.APIKey, "OPENAI_API_KEY")
		loadOptionalFromEnv(&config.BaseURL, "OPENAI_BASE_URL")
		loadOptionalFromEnv(&config.OrgID, "OPENAI_ORG_ID")
	}

	parseFloat := func(v string) (float64, error) { return strconv.ParseFloat(v, 64) }
	return errors.CombineErrors(
		errors.CombineErrors(
			parseOptionalFromEnv(&config.Temperature, "PARLEY_TEMPERATURE", parseFloat),
			parseOptionalFromEnv(&config.MaxTokens, "PARLEY_MAX_TOKENS", strconv.Atoi),
		),
		errors.CombineErrors(
			parseOptionalFromEnv(&config.HistoryWindow, "PARLEY_HISTORY_WINDOW", strconv.Atoi),
			parseOptionalFromEnv(&config.MaxRetries, "PARLEY_MAX_RETRIES", strconv.Atoi),
		),
	)
}

// Validate checks that the configuration can be used to start a session
func (c Config) Validate() error {
	if c.APIKey == "" {
		envVar := "OPENAI_API_KEY"
		if c.Provider == "anthropic" {
			envVar = "ANTHROPIC_API_KEY"
		}
		return errors.WithHintf(ErrMissingCredential,
			"Set the %s environment variable, add %s=your_key_here to a .env file, or set api_key in %s",
			envVar, envVar, DefaultFile)
	}
	if c.Provider != "openai" && c.Provider != "anthropic" {
		return fmt.Errorf("unsupported provider '%s'", c.Provider)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window must not be negative, got %d", c.HistoryWindow)
	}
	return nil
}

func loadOptionalFromEnv(dest *string, key string) {
	// Parsing a string cannot fail
	_ = parseOptionalFromEnv(dest, key, func(v string) (string, error) { return v, nil })
}

func parseOptionalFromEnv[T any](dest *T, key string, parseFn func(string) (T, error)) error {
	str := os.Getenv(key)
	if str == "" {
		return nil // Leave default value
	}
	v, err := parseFn(str)
	if err != nil {
		return fmt.Errorf("failed to parse environment variable '%s' value '%s' as '%T': %w", key, str, *dest, err)
	}
	*dest = v
	return nil
}
