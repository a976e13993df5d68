package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Priority represents the urgency of a task or epic.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a numeric rank for ordering: critical=4 .. low=1.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TaskTypeSetup    TaskType = "setup"
	TaskTypeFeature  TaskType = "feature"
	TaskTypeBugfix   TaskType = "bugfix"
	TaskTypeRefactor TaskType = "refactor"
	TaskTypeTest     TaskType = "test"
	TaskTypeDocs     TaskType = "docs"
)

// Bounds for a task accepted as atomic. An atomic task takes 5-10 minutes,
// expressed in hours.
const (
	// MinAtomicHours is the lower duration bound for an atomic task (5 minutes).
	MinAtomicHours = 0.08
	// MaxAtomicHours is the upper duration bound for an atomic task (10 minutes).
	MaxAtomicHours = 0.17
	// MaxAtomicFiles is the maximum number of file paths an atomic task may touch.
	MaxAtomicFiles = 2
)

// AtomicTask represents a minimal, independently executable unit of work.
// A task accepted as atomic carries exactly one acceptance criterion, a
// duration within [MinAtomicHours, MaxAtomicHours], and at most
// MaxAtomicFiles touched files.
type AtomicTask struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Type classifies the kind of work.
	Type TaskType `json:"type"`
	// Priority is the urgency of the task.
	Priority Priority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// EstimatedHours is the estimated duration in hours.
	EstimatedHours float64 `json:"estimated_hours"`
	// AcceptanceCriteria lists the exactly-checked completion criteria.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// FilePaths lists the file paths this task touches.
	FilePaths []string `json:"file_paths,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Dependents lists task IDs that depend on this task.
	Dependents []string `json:"dependents,omitempty"`
	// EpicID is the owning epic, if any.
	EpicID string `json:"epic_id,omitempty"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// WithinAtomicDuration reports whether the estimated duration falls inside
// the atomic window [MinAtomicHours, MaxAtomicHours].
func (t *AtomicTask) WithinAtomicDuration() bool {
	return t.EstimatedHours >= MinAtomicHours && t.EstimatedHours <= MaxAtomicHours
}
