package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freshtechbro/taskforge/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show decomposition sessions and task state",
	Long: `Display decomposition sessions for the project.

Without arguments, lists recent sessions and the project task counts.
With a session ID, shows that session in detail including the tasks
it persisted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openProjectStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		sess, err := db.GetSession(args[0])
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		displaySession(sess)
		for _, id := range sess.PersistedTaskIDs {
			task, err := db.GetTask(id)
			if err != nil {
				continue
			}
			statusColor(string(task.Status)).Printf("  %-11s", task.Status)
			fmt.Printf(" %s (%s)\n", task.Title, formatHours(task.EstimatedHours))
		}
		return nil
	}

	sessions, err := db.ListSessions(projectID())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions. Run 'taskforge decompose <title>' to start.")
		return nil
	}

	fmt.Println(headerStyle.Render("Sessions"))
	limit := len(sessions)
	if limit > 10 {
		limit = 10
	}
	for _, s := range sessions[:limit] {
		elapsed := formatDuration(time.Since(s.StartedAt))
		statusColor(string(s.Status)).Printf("  %-11s", s.Status)
		fmt.Printf(" %s  %3d%%  %d tasks  %s ago\n",
			s.ID, s.Progress, len(s.PersistedTaskIDs), elapsed)
	}

	tasks, err := db.ListTasks(projectID())
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	counts := map[models.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	fmt.Println()
	fmt.Println(headerStyle.Render("Tasks"))
	fmt.Printf("  %d total: %d pending, %d in progress, %d completed, %d failed\n",
		len(tasks),
		counts[models.TaskStatusPending],
		counts[models.TaskStatusInProgress],
		counts[models.TaskStatusCompleted],
		counts[models.TaskStatusFailed])
	return nil
}

func displaySession(s *models.Session) {
	fmt.Println(headerStyle.Render("Session " + s.ID))
	statusColor(string(s.Status)).Printf("  Status: %s\n", s.Status)
	fmt.Printf("  Progress: %d%%\n", s.Progress)
	fmt.Printf("  Depth: %d of %d\n", s.CurrentDepth, s.MaxDepth)
	fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(s.StartedAt)))
	if s.CompletedAt != nil {
		fmt.Printf("  Duration: %s\n", formatDuration(s.CompletedAt.Sub(s.StartedAt)))
	}
	if s.Error != "" {
		fmt.Printf("  Error: %s\n", s.Error)
	}
	fmt.Printf("  Persisted tasks: %d\n", len(s.PersistedTaskIDs))
}
