package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/internal/config"
	"github.com/freshtechbro/taskforge/internal/scheduler"
)

var (
	scheduleAlgorithm string
	scheduleSlots     int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Compute an execution schedule for the project tasks",
	Long: `Order the project's pending tasks into an execution schedule.

Algorithms:
  priority-first     highest priority first, sequential
  earliest-deadline  tightest derived deadline first, sequential
  shortest-job-first smallest estimate first, sequential
  critical-path      longest downstream chain first, parallel slots
  resource-balanced  longest estimate first, parallel slots
  hybrid-optimal     weighted blend of priority, path, and size (default)

Dependencies always hold: a task never starts before its prerequisites.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleAlgorithm, "algorithm", "a", "", "Scheduling algorithm (default from config)")
	scheduleCmd.Flags().IntVarP(&scheduleSlots, "slots", "s", 0, "Concurrent execution slots for parallel algorithms")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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
		fmt.Println("No tasks to schedule. Run 'taskforge decompose <title>' first.")
		return nil
	}
	deps, err := db.ListDependencies(projectID())
	if err != nil {
		return fmt.Errorf("list dependencies: %w", err)
	}

	alg := scheduleAlgorithm
	if alg == "" {
		alg = cfg.Scheduler.Algorithm
	}
	slots := scheduleSlots
	if slots == 0 {
		slots = cfg.Scheduler.Slots
	}

	sched := scheduler.New()
	plan, err := sched.Build(tasks, deps, scheduler.Options{
		Algorithm: scheduler.Algorithm(alg),
		Slots:     slots,
	})
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Schedule (%s, %d slots)", plan.Algorithm, plan.Slots)))
	fmt.Printf("  %-5s %-8s %-8s %s\n", "slot", "start", "end", "task")
	fmt.Println(dimStyle.Render("  " + strings.Repeat("-", 60)))
	for _, st := range plan.Tasks {
		fmt.Printf("  %-5d %-8s %-8s %s\n", st.Slot, formatHours(st.Start), formatHours(st.End), st.Title)
	}
	fmt.Printf("\nMakespan: %s over %d tasks\n", formatHours(plan.MakespanHours), len(plan.Tasks))
	return nil
}
