package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// UpsertBranchState creates or updates the single row for (project_id, ref).
func UpsertBranchState(ctx context.Context, db DBTX, b *BranchState) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.LastUsedAt.IsZero() {
		b.LastUsedAt = now
	}
	var evictAt any
	if b.EvictionEligibleAt != nil {
		evictAt = b.EvictionEligibleAt.Format(time.RFC3339Nano)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO branch_state (project_id, ref, last_indexed_commit, merge_base_commit, overlay_dir,
			file_count, symbol_count, is_default, status, eviction_eligible_at, created_at, updated_at, last_used_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id, ref) DO UPDATE SET
			last_indexed_commit = excluded.last_indexed_commit,
			merge_base_commit = excluded.merge_base_commit,
			overlay_dir = excluded.overlay_dir,
			file_count = excluded.file_count,
			symbol_count = excluded.symbol_count,
			is_default = excluded.is_default,
			status = excluded.status,
			eviction_eligible_at = excluded.eviction_eligible_at,
			updated_at = excluded.updated_at,
			last_used_at = excluded.last_used_at
	`, b.ProjectID, b.Ref, b.LastIndexedCommit, b.MergeBaseCommit, nullableStr(b.OverlayDir),
		b.FileCount, b.SymbolCount, boolToInt(b.IsDefault), string(b.Status), evictAt,
		b.CreatedAt.Format(time.RFC3339Nano), b.UpdatedAt.Format(time.RFC3339Nano), b.LastUsedAt.Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetBranchState fetches a single (project_id, ref) row, or nil if absent.
func GetBranchState(ctx context.Context, db DBTX, projectID, ref string) (*BranchState, error) {
	row := db.QueryRowContext(ctx, branchStateSelect+` WHERE project_id = ? AND ref = ?`, projectID, ref)
	b, err := scanBranchState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return b, nil
}

// ListBranchStates lists all refs for a project, ordered by ref for
// deterministic pagination.
func ListBranchStates(ctx context.Context, db DBTX, projectID string) ([]*BranchState, error) {
	rows, err := db.QueryContext(ctx, branchStateSelect+` WHERE project_id = ? ORDER BY ref`, projectID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*BranchState
	for rows.Next() {
		b, err := scanBranchStateRows(rows)
		if err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBranchState removes the row for (project_id, ref) — the terminal
// step of the BranchState lifecycle (status=removing -> deleted).
func DeleteBranchState(ctx context.Context, db DBTX, projectID, ref string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM branch_state WHERE project_id = ? AND ref = ?`, projectID, ref)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

const branchStateSelect = `
	SELECT project_id, ref, last_indexed_commit, merge_base_commit, overlay_dir,
		file_count, symbol_count, is_default, status, eviction_eligible_at,
		created_at, updated_at, last_used_at
	FROM branch_state`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranchState(row *sql.Row) (*BranchState, error) {
	return scanBranchStateGeneric(row)
}

func scanBranchStateRows(rows *sql.Rows) (*BranchState, error) {
	return scanBranchStateGeneric(rows)
}

func scanBranchStateGeneric(s rowScanner) (*BranchState, error) {
	var b BranchState
	var overlay, evictAt sql.NullString
	var isDefault int
	var status string
	var created, updated, lastUsed string
	if err := s.Scan(&b.ProjectID, &b.Ref, &b.LastIndexedCommit, &b.MergeBaseCommit, &overlay,
		&b.FileCount, &b.SymbolCount, &isDefault, &status, &evictAt, &created, &updated, &lastUsed); err != nil {
		return nil, err
	}
	b.OverlayDir = overlay.String
	b.IsDefault = isDefault != 0
	b.Status = BranchStateStatus(status)
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	b.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	b.LastUsedAt, _ = time.Parse(time.RFC3339Nano, lastUsed)
	if evictAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, evictAt.String)
		b.EvictionEligibleAt = &t
	}
	return &b, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
