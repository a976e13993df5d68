package session

import "fmt"

// ValidationError reports bad input caught before a session is created.
// It is returned synchronously from StartDecomposition; everything after
// session creation surfaces through the session record instead.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StageError wraps a failure inside the pipeline with the stage it
// happened in, so session records show where a run died.
type StageError struct {
	SessionID string
	Stage     string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("session %s failed at %s: %v", e.SessionID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
