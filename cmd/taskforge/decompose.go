package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/assign"
	"github.com/freshtechbro/taskforge/internal/atomicity"
	"github.com/freshtechbro/taskforge/internal/config"
	"github.com/freshtechbro/taskforge/internal/enrich"
	"github.com/freshtechbro/taskforge/internal/rdd"
	"github.com/freshtechbro/taskforge/internal/session"
	"github.com/freshtechbro/taskforge/pkg/models"
)

var (
	decomposeDescription string
	decomposeHours       float64
	decomposePriority    string
	decomposeType        string
	decomposeWorkers     []string
	decomposeQuiet       bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <title>",
	Short: "Decompose a task into atomic units",
	Long: `Break a task into atomic 5-10 minute units of work.

Runs the full pipeline: context gathering, recursive decomposition,
persistence, sibling dependency inference, artifact rendering, and
quality scoring. Progress is reported while the session runs.

A running session can be cancelled from another terminal by creating
an empty file named cancel-<session-id> in .taskforge/signals/.

Examples:
  taskforge decompose "Add OAuth login" --hours 6 --priority high
  taskforge decompose "Fix flaky checkout test" -d "Timeouts on CI" --type bugfix`,
	Args: cobra.ExactArgs(1),
	RunE: runDecompose,
}

func init() {
	decomposeCmd.Flags().StringVarP(&decomposeDescription, "description", "d", "", "Detailed task description")
	decomposeCmd.Flags().Float64Var(&decomposeHours, "hours", 4, "Estimated hours for the task")
	decomposeCmd.Flags().StringVar(&decomposePriority, "priority", "medium", "Priority: critical, high, medium, low")
	decomposeCmd.Flags().StringVar(&decomposeType, "type", "feature", "Task type: setup, feature, bugfix, refactor, test, docs")
	decomposeCmd.Flags().StringSliceVar(&decomposeWorkers, "workers", nil, "Worker names to assign ready tasks to")
	decomposeCmd.Flags().BoolVarP(&decomposeQuiet, "quiet", "q", false, "Suppress progress output")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	priority := models.Priority(decomposePriority)
	if !priority.Valid() {
		return fmt.Errorf("unknown priority %q", decomposePriority)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	db, err := openProjectStore()
	if err != nil {
		return err
	}
	defer db.Close()

	gen, client, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	engine := rdd.NewEngine(gen, atomicity.NewAnalyzer(gen), nil, rdd.Options{
		MaxDepth:       cfg.Engine.MaxDepth,
		MaxSubTasks:    cfg.Engine.MaxSubTasks,
		MinConfidence:  cfg.Engine.MinConfidence,
		EpicCapHours:   cfg.Engine.EpicCapHours,
		AnalyzeTimeout: cfg.Timeouts.TaskDecomposition,
		SplitTimeout:   cfg.Timeouts.RecursiveTaskDecomposition,
	})

	manager := session.NewManager(db, engine, gen,
		enrich.NewFSGatherer(), assign.NewRoundRobin(decomposeWorkers))

	watcher, err := session.NewSignalWatcher(signalsDir(), manager)
	if err == nil {
		watcher.Start()
		defer watcher.Close()
	}

	task := &models.AtomicTask{
		Title:          args[0],
		Description:    decomposeDescription,
		Type:           models.TaskType(decomposeType),
		Priority:       priority,
		EstimatedHours: decomposeHours,
	}

	sess, err := manager.StartDecomposition(context.Background(), session.StartRequest{
		Task:        task,
		ProjectID:   projectID(),
		ProjectRoot: ".",
	})
	if err != nil {
		return err
	}
	if !decomposeQuiet {
		fmt.Printf("Session %s started\n", sess.ID)
	}

	final := watchSession(manager, sess.ID, engine.Registry(), cfg)

	fmt.Println()
	if final.Status == models.SessionCompleted {
		printStatus("✓", fmt.Sprintf("Decomposed into %d atomic tasks", len(final.PersistedTaskIDs)), color.FgGreen)
		var persisted []*models.AtomicTask
		for _, id := range final.PersistedTaskIDs {
			if t, err := db.GetTask(id); err == nil {
				persisted = append(persisted, t)
			}
		}
		quality := session.ScoreDecomposition(persisted)
		fmt.Printf("  Confidence %.2f, parallelism %d", quality.OverallConfidence, quality.EstimatedParallelism)
		if quality.CriticalIssues > 0 {
			color.New(color.FgRed).Printf(", %d critical issues", quality.CriticalIssues)
		}
		fmt.Println()
		for _, w := range quality.Warnings {
			printStatus("⚠", w, color.FgYellow)
		}
	} else {
		printStatus("✗", fmt.Sprintf("Session failed: %s", final.Error), color.FgRed)
	}
	if !decomposeQuiet {
		in, out := client.Tracker().Total()
		fmt.Println(dimStyle.Render(fmt.Sprintf("Tokens: %d in / %d out over %d calls (est. $%.4f)",
			in, out, client.Tracker().Calls(), client.Tracker().Cost())))
		fmt.Println(dimStyle.Render("Run 'taskforge status " + sess.ID + "' for details."))
	}
	if final.Status != models.SessionCompleted {
		return fmt.Errorf("session %s failed", sess.ID)
	}
	return nil
}

// watchSession polls the session until it reaches a terminal state,
// printing progress and flagging long-running split operations.
func watchSession(manager *session.Manager, id string, registry *rdd.OperationRegistry, cfg *config.Config) *models.Session {
	lastProgress := -1
	warned := make(map[string]bool)
	for {
		sess, err := manager.Status(id)
		if err == nil {
			if !decomposeQuiet && sess.Progress != lastProgress {
				fmt.Printf("  %3d%% %s (depth %d)\n", sess.Progress, sess.Status, sess.CurrentDepth)
				lastProgress = sess.Progress
			}
			if sess.Status.Terminal() {
				return sess
			}
		}

		for _, op := range registry.LongRunning(cfg.Sessions.LongRunningAfter) {
			if !warned[op.ID] && !decomposeQuiet {
				printStatus("⚠", fmt.Sprintf("%s has been running for %s", op.Name, formatDuration(op.Age())), color.FgYellow)
				warned[op.ID] = true
			}
		}
		if cfg.Sessions.StaleAfter > 0 {
			registry.CleanupStale(cfg.Sessions.StaleAfter)
		}

		time.Sleep(500 * time.Millisecond)
	}
}
