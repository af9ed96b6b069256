package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// SaveProject inserts or updates a project row (repo_root is unique).
func SaveProject(ctx context.Context, db DBTX, p *Project) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (project_id, repo_root, default_ref, vcs_mode, schema_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			default_ref = excluded.default_ref,
			vcs_mode = excluded.vcs_mode,
			schema_version = excluded.schema_version,
			updated_at = excluded.updated_at
	`, p.ProjectID, p.RepoRoot, p.DefaultRef, p.VCSMode, p.SchemaVersion,
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetProject fetches a project by ID, or nil if not found.
func GetProject(ctx context.Context, db DBTX, projectID string) (*Project, error) {
	row := db.QueryRowContext(ctx, `
		SELECT project_id, repo_root, default_ref, vcs_mode, schema_version, created_at, updated_at
		FROM projects WHERE project_id = ?`, projectID)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return p, nil
}

// GetProjectByRoot fetches a project by its canonical repo root.
func GetProjectByRoot(ctx context.Context, db DBTX, repoRoot string) (*Project, error) {
	row := db.QueryRowContext(ctx, `
		SELECT project_id, repo_root, default_ref, vcs_mode, schema_version, created_at, updated_at
		FROM projects WHERE repo_root = ?`, repoRoot)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return p, nil
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var created, updated string
	if err := row.Scan(&p.ProjectID, &p.RepoRoot, &p.DefaultRef, &p.VCSMode, &p.SchemaVersion, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &p, nil
}
