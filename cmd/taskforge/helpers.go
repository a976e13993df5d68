package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/freshtechbro/taskforge/internal/config"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// printStatus prints a colored status line with a symbol prefix.
func printStatus(symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	c.Printf("%s ", symbol)
	fmt.Println(message)
}

// statusColor maps a session or task status string to a display color.
func statusColor(status string) *color.Color {
	switch status {
	case "completed":
		return color.New(color.FgGreen)
	case "failed":
		return color.New(color.FgRed)
	case "in_progress":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

// openProjectStore opens and migrates the project database under the
// working directory.
func openProjectStore() (*store.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	db, err := store.OpenProject(cwd)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// signalsDir returns the directory watched for session signal files.
func signalsDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, ".taskforge", "signals")
}

// buildGenerator wires the Anthropic client with retry and per-request
// timeout layers from configuration.
func buildGenerator(cfg *config.Config) (llm.Generator, *llm.Client, error) {
	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create API client: %w", err)
	}

	var gen llm.Generator = client
	if cfg.Timeouts.LLMRequest > 0 {
		gen = &timeoutGenerator{inner: gen, timeout: cfg.Timeouts.LLMRequest}
	}
	gen = llm.NewRetryingGenerator(gen, llm.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	})
	return gen, client, nil
}

// timeoutGenerator bounds each generative call.
type timeoutGenerator struct {
	inner   llm.Generator
	timeout time.Duration
}

func (t *timeoutGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatHours renders an hour offset like 1.25h or 10m.
func formatHours(h float64) string {
	if h < 1 {
		return fmt.Sprintf("%dm", int(h*60+0.5))
	}
	return fmt.Sprintf("%.2fh", h)
}
