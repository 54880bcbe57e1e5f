// Package config handles configuration loading and management for the
// workforce CLI. It supports XDG config paths, project-level overrides,
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the workforce orchestrator.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Router    RouterConfig    `mapstructure:"router"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes API calls through AWS Bedrock instead of the
	// direct Anthropic API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for workforce requests.
type DefaultsConfig struct {
	// TokenBudget is the per-request token ceiling.
	TokenBudget int `mapstructure:"token_budget"`
	// MaxConcurrent is the number of requests the pool works at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// RouterConfig holds dispatcher tuning.
type RouterConfig struct {
	// MinScore is the score below which a request falls back.
	MinScore int `mapstructure:"min_score"`
}

// MemoryConfig holds memory tier settings.
type MemoryConfig struct {
	// BrainRecallLimit is the max brain records injected per request.
	BrainRecallLimit int `mapstructure:"brain_recall_limit"`
	// OllamaEndpoint enables embedding re-rank when set (e.g. http://localhost:11434).
	OllamaEndpoint string `mapstructure:"ollama_endpoint"`
	// OllamaModel is the embedding model name.
	OllamaModel string `mapstructure:"ollama_model"`
}

// TimeoutsConfig holds per-tier request timeouts.
type TimeoutsConfig struct {
	Light    time.Duration `mapstructure:"light"`
	Standard time.Duration `mapstructure:"standard"`
	Deep     time.Duration `mapstructure:"deep"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.workforce.yaml in current directory or parent)
// 3. User config (~/.config/workforce/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("memory.ollama_endpoint", "OLLAMA_HOST")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("defaults.token_budget", cfg.Defaults.TokenBudget)
	v.Set("defaults.max_concurrent", cfg.Defaults.MaxConcurrent)
	v.Set("router.min_score", cfg.Router.MinScore)
	v.Set("memory.brain_recall_limit", cfg.Memory.BrainRecallLimit)
	v.Set("memory.ollama_endpoint", cfg.Memory.OllamaEndpoint)
	v.Set("memory.ollama_model", cfg.Memory.OllamaModel)
	v.Set("timeouts.light", cfg.Timeouts.Light.String())
	v.Set("timeouts.standard", cfg.Timeouts.Standard.String())
	v.Set("timeouts.deep", cfg.Timeouts.Deep.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("defaults.token_budget", 100000)
	v.SetDefault("defaults.max_concurrent", 3)

	v.SetDefault("router.min_score", 2)

	v.SetDefault("memory.brain_recall_limit", 5)
	v.SetDefault("memory.ollama_endpoint", "")
	v.SetDefault("memory.ollama_model", "embeddinggemma")

	v.SetDefault("timeouts.light", "2m")
	v.SetDefault("timeouts.standard", "10m")
	v.SetDefault("timeouts.deep", "30m")
}

// getUserConfigDir returns the XDG config directory for the workforce CLI.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "workforce")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "workforce")
	}
	return filepath.Join(home, ".config", "workforce")
}

// findProjectConfig searches for .workforce.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".workforce.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			APIKey: "",
		},
		Defaults: DefaultsConfig{
			TokenBudget:   100000,
			MaxConcurrent: 3,
		},
		Router: RouterConfig{
			MinScore: 2,
		},
		Memory: MemoryConfig{
			BrainRecallLimit: 5,
			OllamaModel:      "embeddinggemma",
		},
		Timeouts: TimeoutsConfig{
			Light:    2 * time.Minute,
			Standard: 10 * time.Minute,
			Deep:     30 * time.Minute,
		},
	}
}

// TimeoutFor returns the request timeout for a model tier name.
func (c *Config) TimeoutFor(tier string) time.Duration {
	switch tier {
	case "light":
		return c.Timeouts.Light
	case "deep":
		return c.Timeouts.Deep
	default:
		return c.Timeouts.Standard
	}
}
