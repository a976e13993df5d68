package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// encodeStrings serializes a string slice as a JSON column value.
// Nil and empty slices both store as NULL to keep rows compact.
func encodeStrings(s []string) any {
	if len(s) == 0 {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return string(b)
}

// decodeStrings deserializes a JSON string-slice column value.
func decodeStrings(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}

// SaveTask inserts or replaces a task.
func (db *DB) SaveTask(t *models.AtomicTask) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO tasks
		(id, title, description, type, priority, status, estimated_hours,
		 acceptance_criteria, file_paths, dependencies, dependents,
		 epic_id, project_id, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Title, t.Description, string(t.Type), string(t.Priority),
		string(t.Status), t.EstimatedHours,
		encodeStrings(t.AcceptanceCriteria), encodeStrings(t.FilePaths),
		encodeStrings(t.Dependencies), encodeStrings(t.Dependents),
		t.EpicID, t.ProjectID, encodeStrings(t.Tags),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// SaveTasks inserts or replaces tasks in a single transaction.
func (db *DB) SaveTasks(tasks []*models.AtomicTask) error {
	return db.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO tasks
			(id, title, description, type, priority, status, estimated_hours,
			 acceptance_criteria, file_paths, dependencies, dependents,
			 epic_id, project_id, tags, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare task insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range tasks {
			_, err := stmt.Exec(
				t.ID, t.Title, t.Description, string(t.Type), string(t.Priority),
				string(t.Status), t.EstimatedHours,
				encodeStrings(t.AcceptanceCriteria), encodeStrings(t.FilePaths),
				encodeStrings(t.Dependencies), encodeStrings(t.Dependents),
				t.EpicID, t.ProjectID, encodeStrings(t.Tags),
				formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
			if err != nil {
				return fmt.Errorf("save task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// GetTask retrieves a task by ID. Returns sql.ErrNoRows if not found.
func (db *DB) GetTask(id string) (*models.AtomicTask, error) {
	row := db.QueryRow(`
		SELECT id, title, description, type, priority, status, estimated_hours,
		       acceptance_criteria, file_paths, dependencies, dependents,
		       epic_id, project_id, tags, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

// ListTasks returns all tasks for a project.
func (db *DB) ListTasks(projectID string) ([]*models.AtomicTask, error) {
	rows, err := db.Query(`
		SELECT id, title, description, type, priority, status, estimated_hours,
		       acceptance_criteria, file_paths, dependencies, dependents,
		       epic_id, project_id, tags, created_at, updated_at
		FROM tasks WHERE project_id = ? ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.AtomicTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListReadyTasks returns pending tasks whose dependencies are all completed.
func (db *DB) ListReadyTasks(projectID string) ([]*models.AtomicTask, error) {
	tasks, err := db.ListTasks(projectID)
	if err != nil {
		return nil, err
	}

	status := make(map[string]models.TaskStatus, len(tasks))
	for _, t := range tasks {
		status[t.ID] = t.Status
	}

	var ready []*models.AtomicTask
	for _, t := range tasks {
		if t.Status != models.TaskStatusPending {
			continue
		}
		blocked := false
		for _, dep := range t.Dependencies {
			if status[dep] != models.TaskStatusCompleted {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, t)
		}
	}
	return ready, nil
}

// UpdateTaskStatus sets a task's status and bumps updated_at.
func (db *DB) UpdateTaskStatus(id string, status models.TaskStatus) error {
	res, err := db.Exec(`
		UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// DeleteTask removes a task by ID.
func (db *DB) DeleteTask(id string) error {
	_, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.AtomicTask, error) {
	var (
		t                                  models.AtomicTask
		taskType, priority, status         string
		criteria, files, deps, dependents  sql.NullString
		epicID, tags                       sql.NullString
		createdAt, updatedAt               string
	)

	err := row.Scan(&t.ID, &t.Title, &t.Description, &taskType, &priority,
		&status, &t.EstimatedHours, &criteria, &files, &deps, &dependents,
		&epicID, &t.ProjectID, &tags, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Type = models.TaskType(taskType)
	t.Priority = models.Priority(priority)
	t.Status = models.TaskStatus(status)
	t.AcceptanceCriteria = decodeStrings(criteria)
	t.FilePaths = decodeStrings(files)
	t.Dependencies = decodeStrings(deps)
	t.Dependents = decodeStrings(dependents)
	t.EpicID = epicID.String
	t.Tags = decodeStrings(tags)

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for task %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for task %s: %w", t.ID, err)
	}

	return &t, nil
}

// SaveDependency inserts or replaces a dependency record.
func (db *DB) SaveDependency(d *models.Dependency) error {
	critical := 0
	if d.Critical {
		critical = 1
	}
	_, err := db.Exec(`
		INSERT OR REPLACE INTO dependencies
		(id, from_task_id, to_task_id, kind, critical, reason, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.FromTaskID, d.ToTaskID, string(d.Kind), critical, d.Reason,
		d.ProjectID, formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("save dependency %s: %w", d.ID, err)
	}
	return nil
}

// ListDependencies returns all dependency records for a project.
func (db *DB) ListDependencies(projectID string) ([]*models.Dependency, error) {
	rows, err := db.Query(`
		SELECT id, from_task_id, to_task_id, kind, critical, reason, project_id, created_at
		FROM dependencies WHERE project_id = ? ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []*models.Dependency
	for rows.Next() {
		var (
			d         models.Dependency
			kind      string
			critical  int
			reason    sql.NullString
			projID    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&d.ID, &d.FromTaskID, &d.ToTaskID, &kind,
			&critical, &reason, &projID, &createdAt); err != nil {
			return nil, err
		}
		d.Kind = models.DependencyKind(kind)
		d.Critical = critical != 0
		d.Reason = reason.String
		d.ProjectID = projID.String
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for dependency %s: %w", d.ID, err)
		}
		deps = append(deps, &d)
	}
	return deps, rows.Err()
}
