package models

import "time"

// SessionStatus represents the lifecycle state of a decomposition session.
type SessionStatus string

const (
	// SessionPending indicates the session is created but not yet running.
	SessionPending SessionStatus = "pending"
	// SessionInProgress indicates the pipeline is executing.
	SessionInProgress SessionStatus = "in_progress"
	// SessionCompleted indicates the pipeline finished successfully.
	SessionCompleted SessionStatus = "completed"
	// SessionFailed indicates the pipeline failed or was cancelled.
	SessionFailed SessionStatus = "failed"
)

// Terminal returns true if the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionInProgress, SessionCompleted, SessionFailed:
		return true
	default:
		return false
	}
}

// Session is one asynchronous run of the decomposition pipeline for a
// single source task. Identity is immutable; status and progress advance
// through atomic transitions.
type Session struct {
	// ID is the unique identifier for this session.
	ID string `json:"id"`
	// TaskID is the source task being decomposed.
	TaskID string `json:"task_id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Status is the lifecycle state.
	Status SessionStatus `json:"status"`
	// Progress is the completion percentage, 0-100.
	Progress int `json:"progress"`
	// CurrentDepth is the deepest recursion level reached so far.
	CurrentDepth int `json:"current_depth"`
	// MaxDepth is the configured recursion bound.
	MaxDepth int `json:"max_depth"`
	// PersistedTaskIDs references the atomic tasks created by this
	// session. Once persisted the tasks are owned by project storage;
	// the session only references them.
	PersistedTaskIDs []string `json:"persisted_task_ids,omitempty"`
	// Error holds the failure reason when Status is failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the session reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
