package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dbscribe.
// Values come from config.yaml with environment variable overrides; secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AI holds the two model personas.
	AI AIConfig `yaml:"ai"`

	// Analysis holds cache computation settings.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Agent holds the SQL self-correction loop settings.
	Agent AgentConfig `yaml:"agent"`

	// Datasource holds target connection pool management settings.
	Datasource DatasourceConfig `yaml:"datasource"`
}

// AIConfig holds the endpoints for both model personas. Any
// OpenAI-compatible server works; a local Ollama exposes one at
// http://localhost:11434/v1.
type AIConfig struct {
	Summarizer PersonaConfig `yaml:"summarizer"`
	Coder      PersonaConfig `yaml:"coder"`

	// APIKey is optional for local endpoints. Secret - not in YAML.
	APIKey string `yaml:"-" env:"AI_API_KEY"`

	// RequestTimeoutSeconds bounds a single model call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"AI_REQUEST_TIMEOUT_SECONDS" env-default:"120"`
}

// PersonaConfig configures one locally hosted model persona.
type PersonaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AnalysisConfig holds analysis cache settings.
type AnalysisConfig struct {
	// ComputeTimeoutSeconds bounds one full analysis computation
	// (statistics pass plus both model calls).
	ComputeTimeoutSeconds int `yaml:"compute_timeout_seconds" env:"ANALYSIS_COMPUTE_TIMEOUT_SECONDS" env-default:"300"`
}

// AgentConfig holds SQL agent settings.
type AgentConfig struct {
	// MaxAttempts is the correction-loop bound: total generation attempts
	// (the initial draft counts as the first).
	MaxAttempts int `yaml:"max_attempts" env:"AGENT_MAX_ATTEMPTS" env-default:"3"`
	// RowLimit caps rows fetched when executing generated SQL.
	RowLimit int `yaml:"row_limit" env:"AGENT_ROW_LIMIT" env-default:"100"`
	// QueryTimeoutSeconds bounds one execution attempt.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"AGENT_QUERY_TIMEOUT_SECONDS" env-default:"60"`
}

// DatasourceConfig holds target-database connection management settings.
type DatasourceConfig struct {
	// ConnectionTTLMinutes is how long idle target connections are kept.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// PoolMaxConns is the maximum number of connections per target pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// ConnectTimeoutSeconds bounds the initial connect handshake.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"DATASOURCE_CONNECT_TIMEOUT_SECONDS" env-default:"15"`
}

// RequestTimeout returns the model call timeout as a duration.
func (c *AIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ComputeTimeout returns the analysis computation timeout as a duration.
func (c *AnalysisConfig) ComputeTimeout() time.Duration {
	return time.Duration(c.ComputeTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-attempt execution timeout as a duration.
func (c *AgentConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the connect handshake timeout as a duration.
func (c *DatasourceConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable
// overrides. If the file does not exist, environment variables and defaults
// alone are used. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AI.Summarizer.BaseURL == "" || c.AI.Summarizer.Model == "" {
		return fmt.Errorf("ai.summarizer base_url and model are required")
	}
	if c.AI.Coder.BaseURL == "" || c.AI.Coder.Model == "" {
		return fmt.Errorf("ai.coder base_url and model are required")
	}
	if c.Agent.MaxAttempts < 1 {
		return fmt.Errorf("agent.max_attempts must be at least 1")
	}
	if c.Agent.RowLimit < 1 {
		return fmt.Errorf("agent.row_limit must be at least 1")
	}
	return nil
}
