package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/config"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old sessions and stale signal files",
	Long: `Remove terminal sessions older than the retention window and any
leftover signal files.

In-flight sessions are never removed. The retention window comes from
configuration (sessions.retention) unless overridden with --older-than.

Examples:
  taskforge cleanup
  taskforge cleanup --older-than 1h`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Purge sessions older than this (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	retention := cleanupOlderThan
	if retention == 0 {
		retention = cfg.Sessions.Retention
	}

	db, err := openProjectStore()
	if err != nil {
		return err
	}
	defer db.Close()

	purged, err := db.PurgeOldSessions(retention)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Purged %d sessions older than %s", purged, retention), color.FgGreen)

	removed := 0
	if entries, err := os.ReadDir(signalsDir()); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if os.Remove(signalsDir()+"/"+entry.Name()) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		printStatus("✓", fmt.Sprintf("Removed %d stale signal files", removed), color.FgGreen)
	}
	return nil
}
