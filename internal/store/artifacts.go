package store

import (
	"fmt"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// SaveArtifact inserts or replaces an artifact.
func (db *DB) SaveArtifact(a *models.Artifact) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO artifacts (id, project_id, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.ProjectID, a.Kind, a.Content, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", a.ID, err)
	}
	return nil
}

// ListArtifacts returns all artifacts for a project, newest first.
func (db *DB) ListArtifacts(projectID string) ([]*models.Artifact, error) {
	rows, err := db.Query(`
		SELECT id, project_id, kind, content, created_at
		FROM artifacts WHERE project_id = ? ORDER BY created_at DESC, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		var (
			a         models.Artifact
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Content, &createdAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for artifact %s: %w", a.ID, err)
		}
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}
