package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/artifact"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the project task graph",
	Long: `Render the project's task dependency graph to stdout.

Formats:
  json       machine-readable tasks, dependencies, and stats
  yaml       the same document as YAML
  mermaid    a Mermaid diagram for embedding in docs
  narrative  a prose summary with the critical path`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "mermaid", "Output format: json, yaml, mermaid, narrative")
}

func runGraph(cmd *cobra.Command, args []string) error {
	kind, err := artifactKind(graphFormat)
	if err != nil {
		return err
	}

	db, err := openProjectStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, err := db.ListTasks(projectID())
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'taskforge decompose <title>' first.")
		return nil
	}
	deps, err := db.ListDependencies(projectID())
	if err != nil {
		return fmt.Errorf("list dependencies: %w", err)
	}

	content, err := artifact.Render(kind, tasks, deps)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}

func artifactKind(format string) (string, error) {
	switch format {
	case "json":
		return artifact.KindGraphJSON, nil
	case "yaml":
		return artifact.KindGraphYAML, nil
	case "mermaid":
		return artifact.KindGraphMermaid, nil
	case "narrative":
		return artifact.KindNarrative, nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
