// Package config handles configuration loading and management for Taskforge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Taskforge.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Epics     EpicsConfig     `mapstructure:"epics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier to use for generation.
	Model string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string `mapstructure:"aws_profile"`
}

// EngineConfig holds decomposition engine bounds.
type EngineConfig struct {
	// MaxDepth is the recursion bound for decomposition.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxSubTasks caps the candidate count requested per split.
	MaxSubTasks int `mapstructure:"max_subtasks"`
	// MinConfidence is the atomicity confidence required to accept a leaf.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// EpicCapHours is the epic time budget; splits are truncated against it.
	EpicCapHours float64 `mapstructure:"epic_cap_hours"`
}

// EpicsConfig holds epic dependency analysis thresholds.
type EpicsConfig struct {
	// StrengthThreshold is the minimum strength that materializes an edge.
	StrengthThreshold float64 `mapstructure:"strength_threshold"`
	// RequiresThreshold classifies an edge as "requires" above it.
	RequiresThreshold float64 `mapstructure:"requires_threshold"`
	// BlocksThreshold classifies an edge as "blocks" (and critical) above it.
	BlocksThreshold float64 `mapstructure:"blocks_threshold"`
	// MergeStrength is the strength above which two small epics are
	// recommended for merging.
	MergeStrength float64 `mapstructure:"merge_strength"`
	// SplitTaskCount is the task count above which an epic is recommended
	// for splitting.
	SplitTaskCount int `mapstructure:"split_task_count"`
	// SmallEpicTasks is the task count below which an epic counts as small.
	SmallEpicTasks int `mapstructure:"small_epic_tasks"`
}

// SchedulerConfig holds scheduling settings.
type SchedulerConfig struct {
	// Slots is the number of concurrent execution slots for the
	// resource-aware algorithms.
	Slots int `mapstructure:"slots"`
	// Algorithm is the default scheduling algorithm name.
	Algorithm string `mapstructure:"algorithm"`
}

// TimeoutsConfig holds the named timeout classes around suspension points.
type TimeoutsConfig struct {
	// LLMRequest bounds a single generative call.
	LLMRequest time.Duration `mapstructure:"llm_request"`
	// TaskDecomposition bounds one atomicity analysis step.
	TaskDecomposition time.Duration `mapstructure:"task_decomposition"`
	// RecursiveTaskDecomposition bounds one split step.
	RecursiveTaskDecomposition time.Duration `mapstructure:"recursive_task_decomposition"`
}

// RetryConfig holds backoff settings for rate-limited generative calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SessionsConfig holds session lifecycle settings.
type SessionsConfig struct {
	// Retention is how long terminal sessions are kept before purge.
	Retention time.Duration `mapstructure:"retention"`
	// LongRunningAfter marks an in-flight operation as long-running.
	LongRunningAfter time.Duration `mapstructure:"long_running_after"`
	// StaleAfter is when an in-flight operation is forcibly dropped.
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY)
//  2. Project config (.taskforge.yaml in current directory or parent)
//  3. User config (~/.config/taskforge/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

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
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings whose absence or misconfiguration must abort
// startup rather than fail a single session.
func (c *Config) Validate() error {
	if c.Engine.MaxDepth < 1 {
		return fmt.Errorf("engine.max_depth must be >= 1, got %d", c.Engine.MaxDepth)
	}
	if c.Engine.MaxSubTasks < 2 {
		return fmt.Errorf("engine.max_subtasks must be >= 2, got %d", c.Engine.MaxSubTasks)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %v", c.Engine.MinConfidence)
	}
	if c.Engine.EpicCapHours <= 0 {
		return fmt.Errorf("engine.epic_cap_hours must be positive, got %v", c.Engine.EpicCapHours)
	}
	if c.Epics.StrengthThreshold < 0 || c.Epics.StrengthThreshold > 1 {
		return fmt.Errorf("epics.strength_threshold must be in [0,1], got %v", c.Epics.StrengthThreshold)
	}
	if c.Scheduler.Slots < 1 {
		return fmt.Errorf("scheduler.slots must be >= 1, got %d", c.Scheduler.Slots)
	}
	return nil
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
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("engine.max_depth", cfg.Engine.MaxDepth)
	v.Set("engine.max_subtasks", cfg.Engine.MaxSubTasks)
	v.Set("engine.min_confidence", cfg.Engine.MinConfidence)
	v.Set("engine.epic_cap_hours", cfg.Engine.EpicCapHours)
	v.Set("epics.strength_threshold", cfg.Epics.StrengthThreshold)
	v.Set("epics.requires_threshold", cfg.Epics.RequiresThreshold)
	v.Set("epics.blocks_threshold", cfg.Epics.BlocksThreshold)
	v.Set("scheduler.slots", cfg.Scheduler.Slots)
	v.Set("scheduler.algorithm", cfg.Scheduler.Algorithm)
	v.Set("timeouts.llm_request", cfg.Timeouts.LLMRequest.String())
	v.Set("timeouts.task_decomposition", cfg.Timeouts.TaskDecomposition.String())
	v.Set("timeouts.recursive_task_decomposition", cfg.Timeouts.RecursiveTaskDecomposition.String())
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.base_delay", cfg.Retry.BaseDelay.String())
	v.Set("retry.max_delay", cfg.Retry.MaxDelay.String())
	v.Set("sessions.retention", cfg.Sessions.Retention.String())

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
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("engine.max_depth", 3)
	v.SetDefault("engine.max_subtasks", 48)
	v.SetDefault("engine.min_confidence", 0.8)
	v.SetDefault("engine.epic_cap_hours", 8.0)

	v.SetDefault("epics.strength_threshold", 0.3)
	v.SetDefault("epics.requires_threshold", 0.5)
	v.SetDefault("epics.blocks_threshold", 0.7)
	v.SetDefault("epics.merge_strength", 0.8)
	v.SetDefault("epics.split_task_count", 10)
	v.SetDefault("epics.small_epic_tasks", 5)

	v.SetDefault("scheduler.slots", 3)
	v.SetDefault("scheduler.algorithm", "hybrid-optimal")

	v.SetDefault("timeouts.llm_request", "60s")
	v.SetDefault("timeouts.task_decomposition", "5m")
	v.SetDefault("timeouts.recursive_task_decomposition", "10m")

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "30s")

	v.SetDefault("sessions.retention", "24h")
	v.SetDefault("sessions.long_running_after", "5m")
	v.SetDefault("sessions.stale_after", "15m")
}

// getUserConfigDir returns the XDG config directory for Taskforge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskforge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskforge")
	}
	return filepath.Join(home, ".config", "taskforge")
}

// findProjectConfig searches for .taskforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskforge.yaml")
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
		Anthropic: AnthropicConfig{},
		Engine: EngineConfig{
			MaxDepth:      3,
			MaxSubTasks:   48,
			MinConfidence: 0.8,
			EpicCapHours:  8.0,
		},
		Epics: EpicsConfig{
			StrengthThreshold: 0.3,
			RequiresThreshold: 0.5,
			BlocksThreshold:   0.7,
			MergeStrength:     0.8,
			SplitTaskCount:    10,
			SmallEpicTasks:    5,
		},
		Scheduler: SchedulerConfig{
			Slots:     3,
			Algorithm: "hybrid-optimal",
		},
		Timeouts: TimeoutsConfig{
			LLMRequest:                 60 * time.Second,
			TaskDecomposition:          5 * time.Minute,
			RecursiveTaskDecomposition: 10 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
		},
		Sessions: SessionsConfig{
			Retention:        24 * time.Hour,
			LongRunningAfter: 5 * time.Minute,
			StaleAfter:       15 * time.Minute,
		},
	}
}
