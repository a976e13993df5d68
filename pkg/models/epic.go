package models

import "time"

// DefaultEpicCapHours is the default time cap for an epic. The sum of
// member task hours should not exceed this; decomposition truncates
// candidates rather than repairing the epic afterwards.
const DefaultEpicCapHours = 8.0

// Epic groups atomic tasks under a shared time budget and functional area.
type Epic struct {
	// ID is the unique identifier for this epic.
	ID string `json:"id"`
	// Title is the short description of the epic.
	Title string `json:"title"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// TaskIDs lists the member tasks.
	TaskIDs []string `json:"task_ids,omitempty"`
	// DependsOn lists epic IDs that must complete before this epic.
	DependsOn []string `json:"depends_on,omitempty"`
	// EstimatedHours is the sum of member task estimates.
	EstimatedHours float64 `json:"estimated_hours"`
	// Priority is the urgency of the epic.
	Priority Priority `json:"priority"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`
	// CreatedAt is when the epic was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the epic was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact is a persisted decomposition output keyed by project and time.
type Artifact struct {
	// ID is the unique identifier for this artifact.
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Kind identifies the artifact form: graph_json, graph_yaml,
	// graph_mermaid, or narrative.
	Kind string `json:"kind"`
	// Content is the rendered artifact body.
	Content string `json:"content"`
	// CreatedAt is when the artifact was produced.
	CreatedAt time.Time `json:"created_at"`
}
