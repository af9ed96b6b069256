package relstore

import (
	"context"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// KnownWorkspace is a lightweight registry row letting the CLI and MCP
// server enumerate previously indexed repositories without scanning the
// filesystem.
type KnownWorkspace struct {
	ProjectID    string
	RepoRoot     string
	RegisteredAt time.Time
	LastUsedAt   time.Time
}

// RegisterWorkspace records (or refreshes) a known workspace entry.
func RegisterWorkspace(ctx context.Context, db DBTX, projectID, repoRoot string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		INSERT INTO known_workspaces (project_id, repo_root, registered_at, last_used_at)
		VALUES (?,?,?,?)
		ON CONFLICT(project_id) DO UPDATE SET repo_root = excluded.repo_root, last_used_at = excluded.last_used_at
	`, projectID, repoRoot, now, now)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// TouchWorkspace bumps last_used_at for a known workspace.
func TouchWorkspace(ctx context.Context, db DBTX, projectID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE known_workspaces SET last_used_at = ? WHERE project_id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), projectID)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListWorkspaces returns every registered workspace, most recently used first.
func ListWorkspaces(ctx context.Context, db DBTX) ([]*KnownWorkspace, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project_id, repo_root, registered_at, last_used_at FROM known_workspaces ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*KnownWorkspace
	for rows.Next() {
		var w KnownWorkspace
		var registered, lastUsed string
		if err := rows.Scan(&w.ProjectID, &w.RepoRoot, &registered, &lastUsed); err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		w.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registered)
		w.LastUsedAt, _ = time.Parse(time.RFC3339Nano, lastUsed)
		out = append(out, &w)
	}
	return out, rows.Err()
}
