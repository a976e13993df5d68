package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootProject string

var rootCmd = &cobra.Command{
	Use:   "taskforge",
	Short: "Recursive task decomposition and scheduling engine",
	Long: `Taskforge breaks large tasks into atomic 5-10 minute units of work,
wires up their dependencies, and schedules them for autonomous workers.

Core capabilities:
- Recursively decomposes tasks until every piece is atomic
- Judges atomicity with a model plus deterministic override rules
- Builds dependency graphs with cycle detection and critical paths
- Schedules tasks under six algorithms across execution slots
- Derives epic-level dependencies, phases, conflicts, and recommendations`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// projectID returns the --project flag, or the working directory name
// when the flag is unset.
func projectID() string {
	if rootProject != "" {
		return rootProject
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return filepath.Base(cwd)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootProject, "project", "p", "", "Project ID (defaults to the working directory name)")

	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(epicsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
