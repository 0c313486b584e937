package config

// Config holds pipeline service configuration.
// Loaded from config.yaml with TTTC_ environment overrides.
type Config struct {
	Redis  RedisCfg  `mapstructure:"redis" yaml:"redis"`
	Worker WorkerCfg `mapstructure:"worker" yaml:"worker"`
	LLM    LLMCfg    `mapstructure:"llm" yaml:"llm"`
	Log    LogCfg    `mapstructure:"log" yaml:"log"`
}

// RedisCfg configures the shared cache and queue backend.
type RedisCfg struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// WorkerCfg configures the queue worker.
type WorkerCfg struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// LLMCfg configures the default model provider. The API key supports
// ${ENV_VAR} syntax; job inputs may carry their own key, which wins.
type LLMCfg struct {
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// LogCfg configures structured logging output.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisCfg{
			URL: "redis://localhost:6379/0",
		},
		Worker: WorkerCfg{
			Concurrency: 4,
		},
		LLM: LLMCfg{
			Model:          "gpt-4o-mini",
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 120,
			MaxRetries:     3,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// ResolveAPIKey returns the configured LLM API key with any ${ENV_VAR}
// reference expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.LLM.APIKey)
}
