package store

import (
	"database/sql"
	"fmt"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// SaveEpic inserts or replaces an epic.
func (db *DB) SaveEpic(e *models.Epic) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO epics
		(id, title, project_id, task_ids, depends_on, estimated_hours,
		 priority, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.ProjectID, encodeStrings(e.TaskIDs),
		encodeStrings(e.DependsOn), e.EstimatedHours, string(e.Priority),
		encodeStrings(e.Tags), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save epic %s: %w", e.ID, err)
	}
	return nil
}

// GetEpic retrieves an epic by ID. Returns sql.ErrNoRows if not found.
func (db *DB) GetEpic(id string) (*models.Epic, error) {
	row := db.QueryRow(`
		SELECT id, title, project_id, task_ids, depends_on, estimated_hours,
		       priority, tags, created_at, updated_at
		FROM epics WHERE id = ?
	`, id)
	return scanEpic(row)
}

// ListEpics returns all epics for a project.
func (db *DB) ListEpics(projectID string) ([]*models.Epic, error) {
	rows, err := db.Query(`
		SELECT id, title, project_id, task_ids, depends_on, estimated_hours,
		       priority, tags, created_at, updated_at
		FROM epics WHERE project_id = ? ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer rows.Close()

	var epics []*models.Epic
	for rows.Next() {
		e, err := scanEpic(rows)
		if err != nil {
			return nil, err
		}
		epics = append(epics, e)
	}
	return epics, rows.Err()
}

// DeleteEpic removes an epic by ID.
func (db *DB) DeleteEpic(id string) error {
	_, err := db.Exec("DELETE FROM epics WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete epic %s: %w", id, err)
	}
	return nil
}

func scanEpic(row scanner) (*models.Epic, error) {
	var (
		e                  models.Epic
		taskIDs, dependsOn sql.NullString
		priority           string
		tags               sql.NullString
		createdAt          string
		updatedAt          string
	)

	err := row.Scan(&e.ID, &e.Title, &e.ProjectID, &taskIDs, &dependsOn,
		&e.EstimatedHours, &priority, &tags, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.TaskIDs = decodeStrings(taskIDs)
	e.DependsOn = decodeStrings(dependsOn)
	e.Priority = models.Priority(priority)
	e.Tags = decodeStrings(tags)

	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for epic %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for epic %s: %w", e.ID, err)
	}

	return &e, nil
}
