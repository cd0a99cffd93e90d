// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AI provider names
const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Config holds all runtime settings.
type Config struct {
	HTTPAddr        string        `env:"AVALON_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"AVALON_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"AVALON_LOG_LEVEL" envDefault:"info"`
	LogNoColor      bool          `env:"AVALON_LOG_NO_COLOR" envDefault:"false"`
	Debug           bool          `env:"AVALON_DEBUG" envDefault:"false"`
	PublicURL       string        `env:"AVALON_PUBLIC_URL" envDefault:"http://localhost:8080"`

	MaxIterations   int           `env:"AVALON_MAX_ITERATIONS" envDefault:"300"`
	PacingDelay     time.Duration `env:"AVALON_PACING_DELAY" envDefault:"2s"`
	DecisionTimeout time.Duration `env:"AVALON_DECISION_TIMEOUT" envDefault:"30s"`
	BarrierEnabled  bool          `env:"AVALON_BARRIER_ENABLED" envDefault:"true"`
	BarrierTimeout  time.Duration `env:"AVALON_BARRIER_TIMEOUT" envDefault:"45s"`
	ObserverTimeout time.Duration `env:"AVALON_OBSERVER_TIMEOUT" envDefault:"1s"`

	EventLogPath string `env:"AVALON_EVENT_LOG_PATH" envDefault:"data/avalon.db"`

	AIProvider string `env:"AVALON_AI_PROVIDER" envDefault:"openai"`
	AIAPIKey   string `env:"AVALON_AI_API_KEY"`
	OpenAIKey  string `env:"OPENAI_API_KEY"`
	AIBaseURL  string `env:"AVALON_AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AIModel    string `env:"AVALON_AI_MODEL" envDefault:"gpt-4o-mini"`
	AIAttempts int    `env:"AVALON_AI_ATTEMPTS" envDefault:"2"`

	OTelEndpoint string `env:"AVALON_OTEL_ENDPOINT"`
}

// Load reads an optional .env file from the working directory and parses
// the environment. Variables already set win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MaxIterations <= 0:
		return fmt.Errorf("AVALON_MAX_ITERATIONS must be positive, got %d", c.MaxIterations)
	case c.PacingDelay < 0:
		return fmt.Errorf("AVALON_PACING_DELAY must not be negative")
	case c.DecisionTimeout <= 0:
		return fmt.Errorf("AVALON_DECISION_TIMEOUT must be positive")
	case c.BarrierTimeout < 0:
		return fmt.Errorf("AVALON_BARRIER_TIMEOUT must not be negative")
	case c.AIAttempts <= 0:
		return fmt.Errorf("AVALON_AI_ATTEMPTS must be positive, got %d", c.AIAttempts)
	}
	switch c.AIProvider {
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("AVALON_AI_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderNone, c.AIProvider)
	}
	return nil
}

// APIKey returns the LLM credential, preferring the namespaced variable.
func (c Config) APIKey() string {
	if key := strings.TrimSpace(c.AIAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.OpenAIKey)
}

// AIEnabled reports whether automated seats should ask the LLM.
func (c Config) AIEnabled() bool {
	return c.AIProvider == ProviderOpenAI && c.APIKey() != ""
}
