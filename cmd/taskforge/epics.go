package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/config"
	"github.com/freshtechbro/taskforge/internal/epic"
)

var epicsCmd = &cobra.Command{
	Use:   "epics",
	Short: "Analyze epic-level dependencies and planning",
	Long: `Derive epic-level structure from the project's task dependencies.

Shows the coupling-derived epic dependencies, the phased execution
order, structural conflicts, and planning recommendations.`,
	RunE: runEpics,
}

func runEpics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openProjectStore()
	if err != nil {
		return err
	}
	defer db.Close()

	epics, err := db.ListEpics(projectID())
	if err != nil {
		return fmt.Errorf("list epics: %w", err)
	}
	if len(epics) == 0 {
		fmt.Println("No epics. Run 'taskforge decompose <title>' first.")
		return nil
	}
	tasks, err := db.ListTasks(projectID())
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	deps, err := db.ListDependencies(projectID())
	if err != nil {
		return fmt.Errorf("list dependencies: %w", err)
	}

	manager := epic.NewManager(epic.Config{
		StrengthThreshold: cfg.Epics.StrengthThreshold,
		RequiresThreshold: cfg.Epics.RequiresThreshold,
		BlocksThreshold:   cfg.Epics.BlocksThreshold,
		MergeStrength:     cfg.Epics.MergeStrength,
		SplitTaskCount:    cfg.Epics.SplitTaskCount,
		SmallEpicTasks:    cfg.Epics.SmallEpicTasks,
	})

	titles := make(map[string]string, len(epics))
	fmt.Println(headerStyle.Render("Epics"))
	for _, e := range epics {
		titles[e.ID] = e.Title
		fmt.Printf("  %s: %d tasks, %s, %s priority\n",
			e.Title, len(e.TaskIDs), formatHours(e.EstimatedHours), e.Priority)
	}

	edges := manager.AnalyzeDependencies(epics, deps)
	if len(edges) > 0 {
		fmt.Println()
		fmt.Println(headerStyle.Render("Dependencies"))
		for _, edge := range edges {
			marker := " "
			if edge.Critical {
				marker = color.New(color.FgRed).Sprint("!")
			}
			fmt.Printf("  %s %s -> %s (%s, strength %.2f)\n",
				marker, titles[edge.FromEpicID], titles[edge.ToEpicID], edge.Kind, edge.Strength)
		}
	}

	phases, err := manager.Phases(epics, edges)
	if err != nil {
		printStatus("✗", err.Error(), color.FgRed)
	} else {
		fmt.Println()
		fmt.Println(headerStyle.Render("Phases"))
		for i, phase := range phases {
			fmt.Printf("  Phase %d:", i+1)
			for _, id := range phase {
				fmt.Printf(" %q", titles[id])
			}
			fmt.Println()
		}
	}

	if conflicts := manager.DetectConflicts(epics, edges, tasks); len(conflicts) > 0 {
		fmt.Println()
		fmt.Println(headerStyle.Render("Conflicts"))
		for _, c := range conflicts {
			attr := color.FgYellow
			if c.Severity == "critical" {
				attr = color.FgRed
			}
			printStatus("⚠", fmt.Sprintf("[%s] %s", c.Kind, c.Detail), attr)
		}
	}

	if recs := manager.Recommend(epics, edges); len(recs) > 0 {
		fmt.Println()
		fmt.Println(headerStyle.Render("Recommendations"))
		for _, r := range recs {
			fmt.Printf("  %s: %s\n", r.Kind, r.Detail)
		}
	}
	return nil
}
