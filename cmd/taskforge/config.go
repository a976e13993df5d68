package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Taskforge configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/taskforge/config.yaml
Project-specific overrides can be placed in .taskforge.yaml`,
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
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("engine.max_depth: %d\n", cfg.Engine.MaxDepth)
	fmt.Printf("engine.max_subtasks: %d\n", cfg.Engine.MaxSubTasks)
	fmt.Printf("engine.min_confidence: %g\n", cfg.Engine.MinConfidence)
	fmt.Printf("engine.epic_cap_hours: %g\n", cfg.Engine.EpicCapHours)
	fmt.Printf("epics.strength_threshold: %g\n", cfg.Epics.StrengthThreshold)
	fmt.Printf("scheduler.algorithm: %s\n", cfg.Scheduler.Algorithm)
	fmt.Printf("scheduler.slots: %d\n", cfg.Scheduler.Slots)
	fmt.Printf("timeouts.llm_request: %s\n", cfg.Timeouts.LLMRequest)
	fmt.Printf("timeouts.task_decomposition: %s\n", cfg.Timeouts.TaskDecomposition)
	fmt.Printf("timeouts.recursive_task_decomposition: %s\n", cfg.Timeouts.RecursiveTaskDecomposition)
	fmt.Printf("sessions.retention: %s\n", cfg.Sessions.Retention)
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

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "engine.max_depth":
		return strconv.Itoa(cfg.Engine.MaxDepth), nil
	case "engine.max_subtasks":
		return strconv.Itoa(cfg.Engine.MaxSubTasks), nil
	case "engine.min_confidence":
		return strconv.FormatFloat(cfg.Engine.MinConfidence, 'g', -1, 64), nil
	case "engine.epic_cap_hours":
		return strconv.FormatFloat(cfg.Engine.EpicCapHours, 'g', -1, 64), nil
	case "epics.strength_threshold":
		return strconv.FormatFloat(cfg.Epics.StrengthThreshold, 'g', -1, 64), nil
	case "scheduler.algorithm":
		return cfg.Scheduler.Algorithm, nil
	case "scheduler.slots":
		return strconv.Itoa(cfg.Scheduler.Slots), nil
	case "sessions.retention":
		return cfg.Sessions.Retention.String(), nil
	default:
		return "", fmt.Errorf("unknown key %q", key)
	}
}

// setConfigKey updates a configuration value and saves the user config.
func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock, err = strconv.ParseBool(value)
	case "engine.max_depth":
		cfg.Engine.MaxDepth, err = strconv.Atoi(value)
	case "engine.max_subtasks":
		cfg.Engine.MaxSubTasks, err = strconv.Atoi(value)
	case "engine.min_confidence":
		cfg.Engine.MinConfidence, err = strconv.ParseFloat(value, 64)
	case "engine.epic_cap_hours":
		cfg.Engine.EpicCapHours, err = strconv.ParseFloat(value, 64)
	case "epics.strength_threshold":
		cfg.Epics.StrengthThreshold, err = strconv.ParseFloat(value, 64)
	case "scheduler.algorithm":
		cfg.Scheduler.Algorithm = value
	case "scheduler.slots":
		cfg.Scheduler.Slots, err = strconv.Atoi(value)
	case "sessions.retention":
		cfg.Sessions.Retention, err = time.ParseDuration(value)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown key %q\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid value %q for %s: %v\n", value, key, err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s = %s\n", key, value)
}
