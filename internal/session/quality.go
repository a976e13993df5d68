package session

import (
	"fmt"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// Severity indicates the severity of a quality issue.
type Severity int

const (
	// SeverityInfo indicates informational feedback.
	SeverityInfo Severity = iota
	// SeverityWarning indicates a potential problem.
	SeverityWarning
	// SeverityCritical indicates a serious problem.
	SeverityCritical
)

// String returns a human-readable severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// QualityIssue represents a specific problem with a task.
type QualityIssue struct {
	Severity   Severity
	Message    string
	Suggestion string
}

// TaskQualityScore is the quality score for a single task.
type TaskQualityScore struct {
	TaskID     string
	Confidence float64
	Issues     []QualityIssue
}

// Quality is the overall quality of a decomposition.
type Quality struct {
	// OverallConfidence averages the task scores, 0.0-1.0.
	OverallConfidence float64
	TaskScores        []TaskQualityScore
	Warnings          []string
	// EstimatedParallelism counts tasks with no prerequisites.
	EstimatedParallelism int
	TotalTasks           int
	CriticalIssues       int
}

// ScoreDecomposition analyzes the produced tasks and assigns quality
// scores. Low scores do not fail a session; they travel with it so a
// reviewer can decide.
func ScoreDecomposition(tasks []*models.AtomicTask) Quality {
	quality := Quality{
		OverallConfidence: 1.0,
		TaskScores:        make([]TaskQualityScore, len(tasks)),
		TotalTasks:        len(tasks),
	}

	for i, task := range tasks {
		score := scoreTask(task)
		quality.TaskScores[i] = score

		for _, issue := range score.Issues {
			if issue.Severity == SeverityCritical {
				quality.CriticalIssues++
			}
		}
	}

	total := 0.0
	for _, score := range quality.TaskScores {
		total += score.Confidence
	}
	if len(quality.TaskScores) > 0 {
		quality.OverallConfidence = total / float64(len(quality.TaskScores))
	}

	quality.EstimatedParallelism = countIndependent(tasks)
	quality.Warnings = buildWarnings(tasks, quality)

	return quality
}

func scoreTask(task *models.AtomicTask) TaskQualityScore {
	score := TaskQualityScore{
		TaskID:     task.ID,
		Confidence: 1.0,
	}

	if !task.WithinAtomicDuration() {
		score.Confidence -= 0.4
		score.Issues = append(score.Issues, QualityIssue{
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("estimate %.2fh outside the atomic window", task.EstimatedHours),
			Suggestion: "split or re-estimate the task",
		})
	}

	if len(task.AcceptanceCriteria) == 0 {
		score.Confidence -= 0.3
		score.Issues = append(score.Issues, QualityIssue{
			Severity:   SeverityCritical,
			Message:    "no acceptance criterion",
			Suggestion: "add one verifiable outcome",
		})
	} else if len(task.AcceptanceCriteria) > 1 {
		score.Confidence -= 0.2
		score.Issues = append(score.Issues, QualityIssue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("%d acceptance criteria, atomic tasks get one", len(task.AcceptanceCriteria)),
			Suggestion: "move extra criteria into separate tasks",
		})
	}

	if len(task.FilePaths) == 0 {
		score.Confidence -= 0.2
		score.Issues = append(score.Issues, QualityIssue{
			Severity:   SeverityWarning,
			Message:    "no file paths specified",
			Suggestion: "name the files the task will touch",
		})
	} else if len(task.FilePaths) > models.MaxAtomicFiles {
		score.Confidence -= 0.3
		score.Issues = append(score.Issues, QualityIssue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("touches %d files", len(task.FilePaths)),
			Suggestion: "split by file",
		})
	}

	if score.Confidence < 0 {
		score.Confidence = 0
	}
	return score
}

func countIndependent(tasks []*models.AtomicTask) int {
	n := 0
	for _, t := range tasks {
		if len(t.Dependencies) == 0 {
			n++
		}
	}
	if n == 0 && len(tasks) > 0 {
		return 1
	}
	return n
}

func buildWarnings(tasks []*models.AtomicTask, q Quality) []string {
	var warnings []string
	if q.CriticalIssues > 0 {
		warnings = append(warnings, fmt.Sprintf("%d critical issues found in decomposition", q.CriticalIssues))
	}
	if q.EstimatedParallelism == 1 && len(tasks) > 3 {
		warnings = append(warnings, "tasks form a single chain; nothing can run in parallel")
	}
	if q.OverallConfidence < 0.5 {
		warnings = append(warnings, "low overall confidence, consider restructuring the source task")
	}
	return warnings
}
