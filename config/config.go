// Package config loads runtime configuration from YAML files and
// environment variables. Values resolve in three layers: built-in
// defaults, then the YAML file, then AGENTCORE_* environment variables
// (with a .env file honored when present).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcore/router"
)

// ProviderConfig configures one model provider.
type ProviderConfig struct {
	APIKey  string   `yaml:"api_key" env:"API_KEY"`
	BaseURL string   `yaml:"base_url" env:"BASE_URL"`
	Models  []string `yaml:"models" env:"MODELS"`
}

// Enabled reports whether the provider has credentials.
func (c ProviderConfig) Enabled() bool { return c.APIKey != "" }

// BreakerConfig tunes the router's per-provider circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	WindowSeconds    int `yaml:"window_seconds" env:"WINDOW_SECONDS"`
	CooldownSeconds  int `yaml:"cooldown_seconds" env:"COOLDOWN_SECONDS"`
}

// RouterConfig configures routing strategy tables and failover.
type RouterConfig struct {
	Strategy         string             `yaml:"strategy" env:"STRATEGY"`
	Costs            map[string]float64 `yaml:"costs"`
	Quality          map[string]int     `yaml:"quality"`
	Breaker          BreakerConfig      `yaml:"breaker" envPrefix:"BREAKER_"`
	InitialBackoffMS int                `yaml:"initial_backoff_ms" env:"INITIAL_BACKOFF_MS"`
	MaxBackoffMS     int                `yaml:"max_backoff_ms" env:"MAX_BACKOFF_MS"`
}

// RunnerConfig configures run execution limits.
type RunnerConfig struct {
	MaxSteps                int `yaml:"max_steps" env:"MAX_STEPS"`
	ToolFailureLimit        int `yaml:"tool_failure_limit" env:"TOOL_FAILURE_LIMIT"`
	EventBufferSize         int `yaml:"event_buffer_size" env:"EVENT_BUFFER_SIZE"`
	ModelCallTimeoutSeconds int `yaml:"model_call_timeout_seconds" env:"MODEL_CALL_TIMEOUT_SECONDS"`
	ToolCallTimeoutSeconds  int `yaml:"tool_call_timeout_seconds" env:"TOOL_CALL_TIMEOUT_SECONDS"`
	RetrievalTimeoutSeconds int `yaml:"retrieval_timeout_seconds" env:"RETRIEVAL_TIMEOUT_SECONDS"`
}

// RetrievalConfig configures the retrieval pipeline.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k" env:"TOP_K"`
	ScoreThreshold float64 `yaml:"score_threshold" env:"SCORE_THRESHOLD"`
	ChunkSize      int     `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap   int     `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	ContextBudget  int     `yaml:"context_budget" env:"CONTEXT_BUDGET"`
	BudgetUnit     string  `yaml:"budget_unit" env:"BUDGET_UNIT"`
	PersistPath    string  `yaml:"persist_path" env:"PERSIST_PATH"`
}

// Config is the full runtime configuration.
type Config struct {
	OpenAI    ProviderConfig  `yaml:"openai" envPrefix:"OPENAI_"`
	Anthropic ProviderConfig  `yaml:"anthropic" envPrefix:"ANTHROPIC_"`
	Router    RouterConfig    `yaml:"router" envPrefix:"ROUTER_"`
	Runner    RunnerConfig    `yaml:"runner" envPrefix:"RUNNER_"`
	Retrieval RetrievalConfig `yaml:"retrieval" envPrefix:"RETRIEVAL_"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Router: RouterConfig{
			Strategy:         string(router.StrategyFallback),
			Costs:            router.DefaultCosts(),
			Quality:          router.DefaultQuality(),
			Breaker:          BreakerConfig{FailureThreshold: 3, WindowSeconds: 30, CooldownSeconds: 30},
			InitialBackoffMS: 200,
			MaxBackoffMS:     5000,
		},
		Runner: RunnerConfig{
			MaxSteps:                10,
			ToolFailureLimit:        3,
			EventBufferSize:         100,
			ModelCallTimeoutSeconds: 60,
			ToolCallTimeoutSeconds:  15,
			RetrievalTimeoutSeconds: 10,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			ChunkSize:     1000,
			ChunkOverlap:  200,
			ContextBudget: 2000,
			BudgetUnit:    "chars",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and AGENTCORE_* environment variables, in that order. An empty path
// skips the file layer; a named file that does not exist is an error.
func Load(path string) (Config, error) {
	// Best effort. Missing .env files are fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AGENTCORE_"}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch router.Strategy(c.Router.Strategy) {
	case router.StrategyCost, router.StrategySpeed, router.StrategyQuality, router.StrategyFallback:
	default:
		return fmt.Errorf("invalid router strategy %q", c.Router.Strategy)
	}
	if c.Runner.MaxSteps <= 0 {
		return fmt.Errorf("runner max_steps must be positive, got %d", c.Runner.MaxSteps)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	if c.Retrieval.BudgetUnit != "chars" && c.Retrieval.BudgetUnit != "tokens" {
		return fmt.Errorf("retrieval budget_unit must be chars or tokens, got %q", c.Retrieval.BudgetUnit)
	}
	return nil
}

// BreakerConfig converts the serialized breaker tuning for the router.
func (c RouterConfig) BreakerConfig() router.BreakerConfig {
	return router.BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		Window:           time.Duration(c.Breaker.WindowSeconds) * time.Second,
		Cooldown:         time.Duration(c.Breaker.CooldownSeconds) * time.Second,
	}
}
