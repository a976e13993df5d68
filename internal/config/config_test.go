package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Engine.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.MaxSubTasks != 48 {
		t.Errorf("MaxSubTasks = %d, want 48", cfg.Engine.MaxSubTasks)
	}
	if cfg.Engine.MinConfidence != 0.8 {
		t.Errorf("MinConfidence = %v, want 0.8", cfg.Engine.MinConfidence)
	}
	if cfg.Engine.EpicCapHours != 8.0 {
		t.Errorf("EpicCapHours = %v, want 8.0", cfg.Engine.EpicCapHours)
	}
	if cfg.Epics.StrengthThreshold != 0.3 {
		t.Errorf("StrengthThreshold = %v, want 0.3", cfg.Epics.StrengthThreshold)
	}
	if cfg.Sessions.LongRunningAfter != 5*time.Minute {
		t.Errorf("LongRunningAfter = %v, want 5m", cfg.Sessions.LongRunningAfter)
	}
	if cfg.Sessions.StaleAfter != 15*time.Minute {
		t.Errorf("StaleAfter = %v, want 15m", cfg.Sessions.StaleAfter)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
engine:
  max_depth: 5
  epic_cap_hours: 12.0
scheduler:
  slots: 2
  algorithm: priority-first
timeouts:
  llm_request: 30s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Engine.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.EpicCapHours != 12.0 {
		t.Errorf("EpicCapHours = %v, want 12.0", cfg.Engine.EpicCapHours)
	}
	if cfg.Scheduler.Slots != 2 {
		t.Errorf("Slots = %d, want 2", cfg.Scheduler.Slots)
	}
	if cfg.Scheduler.Algorithm != "priority-first" {
		t.Errorf("Algorithm = %q, want priority-first", cfg.Scheduler.Algorithm)
	}
	if cfg.Timeouts.LLMRequest != 30*time.Second {
		t.Errorf("LLMRequest = %v, want 30s", cfg.Timeouts.LLMRequest)
	}

	// Unset keys keep their defaults.
	if cfg.Engine.MaxSubTasks != 48 {
		t.Errorf("MaxSubTasks = %d, want default 48", cfg.Engine.MaxSubTasks)
	}
}

func TestLoadFromPathEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("TASKFORGE_TEST_KEY", "sk-test-123")

	content := "anthropic:\n  api_key: ${TASKFORGE_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestValidateRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max depth", func(c *Config) { c.Engine.MaxDepth = 0 }},
		{"one subtask", func(c *Config) { c.Engine.MaxSubTasks = 1 }},
		{"confidence above one", func(c *Config) { c.Engine.MinConfidence = 1.5 }},
		{"negative epic cap", func(c *Config) { c.Engine.EpicCapHours = -1 }},
		{"zero slots", func(c *Config) { c.Scheduler.Slots = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
