package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// SaveSession inserts or replaces a session.
func (db *DB) SaveSession(s *models.Session) error {
	var completedAt any
	if s.CompletedAt != nil {
		completedAt = formatTime(*s.CompletedAt)
	}

	_, err := db.Exec(`
		INSERT OR REPLACE INTO sessions
		(id, task_id, project_id, status, progress, current_depth, max_depth,
		 persisted_task_ids, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.TaskID, s.ProjectID, string(s.Status), s.Progress,
		s.CurrentDepth, s.MaxDepth, encodeStrings(s.PersistedTaskIDs),
		s.Error, formatTime(s.StartedAt), completedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns sql.ErrNoRows if not found.
func (db *DB) GetSession(id string) (*models.Session, error) {
	row := db.QueryRow(`
		SELECT id, task_id, project_id, status, progress, current_depth,
		       max_depth, persisted_task_ids, error, started_at, completed_at
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns all sessions for a project, newest first.
func (db *DB) ListSessions(projectID string) ([]*models.Session, error) {
	rows, err := db.Query(`
		SELECT id, task_id, project_id, status, progress, current_depth,
		       max_depth, persisted_task_ids, error, started_at, completed_at
		FROM sessions WHERE project_id = ? ORDER BY started_at DESC, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// PurgeOldSessions deletes terminal sessions older than the given duration.
// Returns the number of sessions deleted.
func (db *DB) PurgeOldSessions(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(`
		DELETE FROM sessions
		WHERE started_at < ? AND status IN ('completed', 'failed')
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		s           models.Session
		status      string
		taskIDs     sql.NullString
		errMsg      sql.NullString
		startedAt   string
		completedAt sql.NullString
	)

	err := row.Scan(&s.ID, &s.TaskID, &s.ProjectID, &status, &s.Progress,
		&s.CurrentDepth, &s.MaxDepth, &taskIDs, &errMsg, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	s.Status = models.SessionStatus(status)
	s.PersistedTaskIDs = decodeStrings(taskIDs)
	s.Error = errMsg.String
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at for session %s: %w", s.ID, err)
	}
	s.CompletedAt = parseNullableTime(completedAt)

	return &s, nil
}
