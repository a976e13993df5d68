package models

import "time"

// DependencyKind classifies the relationship between two tasks or epics.
type DependencyKind string

const (
	// DependencyBlocks means the target cannot start until the source completes.
	DependencyBlocks DependencyKind = "blocks"
	// DependencyEnables means the source unlocks the target but does not gate it.
	DependencyEnables DependencyKind = "enables"
	// DependencyRequires means the target consumes an output of the source.
	DependencyRequires DependencyKind = "requires"
	// DependencySuggests means ordering is preferred but not mandatory.
	DependencySuggests DependencyKind = "suggests"
)

// Valid returns true if the kind is a known value.
func (k DependencyKind) Valid() bool {
	switch k {
	case DependencyBlocks, DependencyEnables, DependencyRequires, DependencySuggests:
		return true
	default:
		return false
	}
}

// Dependency is a task-level dependency edge. FromTaskID must complete
// before ToTaskID may start.
type Dependency struct {
	// ID is the unique identifier for this dependency record.
	ID string `json:"id"`
	// FromTaskID is the prerequisite task.
	FromTaskID string `json:"from_task_id"`
	// ToTaskID is the dependent task.
	ToTaskID string `json:"to_task_id"`
	// Kind is the relationship classification.
	Kind DependencyKind `json:"kind"`
	// Critical marks a dependency on the critical execution path.
	Critical bool `json:"critical"`
	// Reason is a free-text explanation of why the edge exists.
	Reason string `json:"reason,omitempty"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id,omitempty"`
	// CreatedAt is when the dependency was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// CriticalStrength is the strength above which an epic dependency is
// classified as critical.
const CriticalStrength = 0.7

// EpicDependency is an epic-level dependency derived from cross-epic
// task dependencies.
type EpicDependency struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// FromEpicID is the prerequisite epic.
	FromEpicID string `json:"from_epic_id"`
	// ToEpicID is the dependent epic.
	ToEpicID string `json:"to_epic_id"`
	// Kind is the derived relationship classification.
	Kind DependencyKind `json:"kind"`
	// Strength is the coupling score in [0,1].
	Strength float64 `json:"strength"`
	// Critical is true when Strength exceeds CriticalStrength.
	Critical bool `json:"critical"`
	// TaskDependencyIDs lists the task-level dependencies that produced
	// this epic-level edge.
	TaskDependencyIDs []string `json:"task_dependency_ids,omitempty"`
}
