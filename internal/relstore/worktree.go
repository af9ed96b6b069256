package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// UpsertWorktreeLease creates or replaces the lease row for (project, ref).
// The worktree manager reads-modifies-writes this with its own
// ensure_worktree/release_lease semantics; this DAO only persists.
func UpsertWorktreeLease(ctx context.Context, db DBTX, l *WorktreeLease) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.LastUsedAt.IsZero() {
		l.LastUsedAt = now
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO worktree_leases (project_id, ref, worktree_path, owner_pid, refcount, status, created_at, last_used_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id, ref) DO UPDATE SET
			worktree_path = excluded.worktree_path,
			owner_pid = excluded.owner_pid,
			refcount = excluded.refcount,
			status = excluded.status,
			last_used_at = excluded.last_used_at
	`, l.ProjectID, l.Ref, l.WorktreePath, l.OwnerPID, l.Refcount, string(l.Status),
		l.CreatedAt.Format(time.RFC3339Nano), l.LastUsedAt.Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetWorktreeLease fetches the lease row for (project, ref), or nil.
func GetWorktreeLease(ctx context.Context, db DBTX, projectID, ref string) (*WorktreeLease, error) {
	row := db.QueryRowContext(ctx, worktreeLeaseSelect+`
		WHERE project_id = ? AND ref = ?`, projectID, ref)
	l, err := scanWorktreeLease(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return l, nil
}

// UpdateWorktreeLeaseRefcount adjusts refcount and last_used_at without
// touching status or owner — the decrement path release_lease takes when
// refcount stays above zero.
func UpdateWorktreeLeaseRefcount(ctx context.Context, db DBTX, projectID, ref string, refcount int, lastUsedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE worktree_leases SET refcount = ?, last_used_at = ? WHERE project_id = ? AND ref = ?
	`, refcount, lastUsedAt.Format(time.RFC3339Nano), projectID, ref)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// UpdateWorktreeLeaseStatus transitions a lease's status only — used by
// cleanup_stale's active -> removing -> gone walk.
func UpdateWorktreeLeaseStatus(ctx context.Context, db DBTX, projectID, ref string, status LeaseStatus, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE worktree_leases SET status = ?, last_used_at = ? WHERE project_id = ? AND ref = ?
	`, string(status), at.Format(time.RFC3339Nano), projectID, ref)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListStaleWorktreeLeases returns leases with zero refcount last used
// before the given cutoff — candidates for cleanup_stale.
func ListStaleWorktreeLeases(ctx context.Context, db DBTX, cutoff time.Time) ([]*WorktreeLease, error) {
	rows, err := db.QueryContext(ctx, worktreeLeaseSelect+`
		WHERE refcount = 0 AND status != 'removing' AND last_used_at < ?`, cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*WorktreeLease
	for rows.Next() {
		l, err := scanWorktreeLeaseRows(rows)
		if err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteWorktreeLease removes the lease row entirely — the final step of
// cleanup_stale once the worktree directory itself has been removed.
func DeleteWorktreeLease(ctx context.Context, db DBTX, projectID, ref string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM worktree_leases WHERE project_id = ? AND ref = ?`, projectID, ref)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

const worktreeLeaseSelect = `
	SELECT project_id, ref, worktree_path, owner_pid, refcount, status, created_at, last_used_at
	FROM worktree_leases`

func scanWorktreeLease(row *sql.Row) (*WorktreeLease, error) { return scanWorktreeLeaseGeneric(row) }

func scanWorktreeLeaseRows(rows *sql.Rows) (*WorktreeLease, error) {
	return scanWorktreeLeaseGeneric(rows)
}

func scanWorktreeLeaseGeneric(s rowScanner) (*WorktreeLease, error) {
	var l WorktreeLease
	var status string
	var created, lastUsed string
	if err := s.Scan(&l.ProjectID, &l.Ref, &l.WorktreePath, &l.OwnerPID, &l.Refcount, &status, &created, &lastUsed); err != nil {
		return nil, err
	}
	l.Status = LeaseStatus(status)
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	l.LastUsedAt, _ = time.Parse(time.RFC3339Nano, lastUsed)
	return &l, nil
}
