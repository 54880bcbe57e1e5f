package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.TokenBudget != 100000 {
		t.Errorf("TokenBudget = %d, want 100000", cfg.Defaults.TokenBudget)
	}
	if cfg.Defaults.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Defaults.MaxConcurrent)
	}
	if cfg.Router.MinScore != 2 {
		t.Errorf("MinScore = %d, want 2", cfg.Router.MinScore)
	}
	if cfg.Timeouts.Standard != 10*time.Minute {
		t.Errorf("Timeouts.Standard = %v, want 10m", cfg.Timeouts.Standard)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
anthropic:
  api_key: test-key-123
defaults:
  token_budget: 50000
  max_concurrent: 5
router:
  min_score: 4
timeouts:
  light: 1m
  deep: 45m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key-123" {
		t.Errorf("APIKey = %q, want test-key-123", cfg.Anthropic.APIKey)
	}
	if cfg.Defaults.TokenBudget != 50000 {
		t.Errorf("TokenBudget = %d, want 50000", cfg.Defaults.TokenBudget)
	}
	if cfg.Defaults.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.Defaults.MaxConcurrent)
	}
	if cfg.Router.MinScore != 4 {
		t.Errorf("MinScore = %d, want 4", cfg.Router.MinScore)
	}
	if cfg.Timeouts.Light != time.Minute {
		t.Errorf("Timeouts.Light = %v, want 1m", cfg.Timeouts.Light)
	}
	if cfg.Timeouts.Deep != 45*time.Minute {
		t.Errorf("Timeouts.Deep = %v, want 45m", cfg.Timeouts.Deep)
	}
	// Unset values keep defaults.
	if cfg.Timeouts.Standard != 10*time.Minute {
		t.Errorf("Timeouts.Standard = %v, want default 10m", cfg.Timeouts.Standard)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	os.Setenv("WORKFORCE_TEST_KEY", "expanded-key")
	defer os.Unsetenv("WORKFORCE_TEST_KEY")

	content := "anthropic:\n  api_key: ${WORKFORCE_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-key" {
		t.Errorf("APIKey = %q, want expanded-key", cfg.Anthropic.APIKey)
	}
}

func TestTimeoutFor(t *testing.T) {
	cfg := Default()

	tests := []struct {
		tier string
		want time.Duration
	}{
		{"light", 2 * time.Minute},
		{"standard", 10 * time.Minute},
		{"deep", 30 * time.Minute},
		{"unknown", 10 * time.Minute},
		{"", 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			if got := cfg.TimeoutFor(tt.tier); got != tt.want {
				t.Errorf("TimeoutFor(%q) = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}
