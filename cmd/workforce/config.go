package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fibreflow/workforce/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify workforce configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/workforce/config.yaml
Project-specific overrides can be placed in .workforce.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("defaults.token_budget: %d\n", cfg.Defaults.TokenBudget)
	fmt.Printf("defaults.max_concurrent: %d\n", cfg.Defaults.MaxConcurrent)
	fmt.Printf("router.min_score: %d\n", cfg.Router.MinScore)
	fmt.Printf("memory.brain_recall_limit: %d\n", cfg.Memory.BrainRecallLimit)
	fmt.Printf("memory.ollama_endpoint: %s\n", cfg.Memory.OllamaEndpoint)
	fmt.Printf("memory.ollama_model: %s\n", cfg.Memory.OllamaModel)
	fmt.Printf("timeouts.light: %s\n", cfg.Timeouts.Light)
	fmt.Printf("timeouts.standard: %s\n", cfg.Timeouts.Standard)
	fmt.Printf("timeouts.deep: %s\n", cfg.Timeouts.Deep)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "defaults.token_budget":
		return strconv.Itoa(cfg.Defaults.TokenBudget), nil
	case "defaults.max_concurrent":
		return strconv.Itoa(cfg.Defaults.MaxConcurrent), nil
	case "router.min_score":
		return strconv.Itoa(cfg.Router.MinScore), nil
	case "memory.brain_recall_limit":
		return strconv.Itoa(cfg.Memory.BrainRecallLimit), nil
	case "memory.ollama_endpoint":
		return cfg.Memory.OllamaEndpoint, nil
	case "memory.ollama_model":
		return cfg.Memory.OllamaModel, nil
	case "timeouts.light":
		return cfg.Timeouts.Light.String(), nil
	case "timeouts.standard":
		return cfg.Timeouts.Standard.String(), nil
	case "timeouts.deep":
		return cfg.Timeouts.Deep.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "defaults.token_budget":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for token_budget: %w", err)
		}
		cfg.Defaults.TokenBudget = n
	case "defaults.max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent: %w", err)
		}
		cfg.Defaults.MaxConcurrent = n
	case "router.min_score":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for min_score: %w", err)
		}
		cfg.Router.MinScore = n
	case "memory.brain_recall_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for brain_recall_limit: %w", err)
		}
		cfg.Memory.BrainRecallLimit = n
	case "memory.ollama_endpoint":
		cfg.Memory.OllamaEndpoint = value
	case "memory.ollama_model":
		cfg.Memory.OllamaModel = value
	case "timeouts.light":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.light: %w", err)
		}
		cfg.Timeouts.Light = d
	case "timeouts.standard":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.standard: %w", err)
		}
		cfg.Timeouts.Standard = d
	case "timeouts.deep":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.deep: %w", err)
		}
		cfg.Timeouts.Deep = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
