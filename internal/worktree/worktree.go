// Package worktree manages per-ref checkout directories for refs that
// are not a project's default: a relational lease row per (project, ref)
// tracks ownership and refcount so cooperating processes can share one
// checkout, and a cross-process file lock guards the create-or-reuse
// decision against a concurrent ensure_worktree racing on the same ref.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/relstore"
)

// Checkout creates or re-creates the worktree directory for a ref. It
// must be idempotent: called again for a path that already holds the
// right content, it does nothing. Implementations live in the VCS layer
// so this package never imports a VCS library directly.
type Checkout func(repoRoot, ref, worktreePath string) error

// Manager ensures and releases worktree leases for non-default refs.
type Manager struct {
	db        relstore.DBTX
	root      string // <data_dir>/worktrees (the data dir is per project)
	repoRoot  string
	projectID string
	checkout  Checkout
}

// NewManager builds a lease manager for one project. root is the
// project's worktrees directory; repoRoot is the canonical path of the
// project's own source checkout, which cleanup_stale must never delete.
func NewManager(db relstore.DBTX, root, repoRoot, projectID string, checkout Checkout) *Manager {
	return &Manager{db: db, root: root, repoRoot: repoRoot, projectID: projectID, checkout: checkout}
}

func (m *Manager) pathFor(ref string) string {
	return filepath.Join(m.root, ids.NormalizeRef(ref))
}

func (m *Manager) lockFor(ref string) *flock.Flock {
	return flock.New(filepath.Join(m.root, ".locks", ids.NormalizeRef(ref)+".lock"))
}

// EnsureWorktree returns the worktree path for ref, creating or reusing
// it under an exclusive cross-process lock so two ensure_worktree calls
// racing on the same ref never both decide to create.
func (m *Manager) EnsureWorktree(ctx context.Context, ref string, ownerPID int64) (string, error) {
	if err := os.MkdirAll(filepath.Join(m.root, ".locks"), 0o755); err != nil {
		return "", cerrors.New(cerrors.InternalError, fmt.Sprintf("create locks dir: %v", err), err)
	}
	lock := m.lockFor(ref)
	if err := lock.Lock(); err != nil {
		return "", cerrors.New(cerrors.InternalError, fmt.Sprintf("acquire worktree lock for %s: %v", ref, err), err)
	}
	defer lock.Unlock()

	lease, err := relstore.GetWorktreeLease(ctx, m.db, m.projectID, ref)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if lease != nil && lease.Status == relstore.LeaseActive && lease.OwnerPID != 0 && lease.OwnerPID != ownerPID {
		return "", cerrors.New(cerrors.InternalError,
			fmt.Sprintf("worktree for ref %s is held by another process", ref), nil).
			WithDetail("project_id", m.projectID).WithDetail("ref", ref)
	}

	path := m.pathFor(ref)
	if lease != nil {
		if _, statErr := os.Stat(lease.WorktreePath); os.IsNotExist(statErr) {
			if err := m.checkout(m.repoRoot, ref, path); err != nil {
				return "", cerrors.New(cerrors.InternalError, fmt.Sprintf("recreate worktree for %s: %v", ref, err), err)
			}
		}
		lease.WorktreePath = path
		lease.OwnerPID = ownerPID
		lease.Refcount++
		lease.Status = relstore.LeaseActive
		lease.LastUsedAt = now
		if err := relstore.UpsertWorktreeLease(ctx, m.db, lease); err != nil {
			return "", err
		}
		return path, nil
	}

	if err := m.checkout(m.repoRoot, ref, path); err != nil {
		return "", cerrors.New(cerrors.InternalError, fmt.Sprintf("create worktree for %s: %v", ref, err), err)
	}
	newLease := &relstore.WorktreeLease{
		ProjectID:    m.projectID,
		Ref:          ref,
		WorktreePath: path,
		OwnerPID:     ownerPID,
		Refcount:     1,
		Status:       relstore.LeaseActive,
		CreatedAt:    now,
		LastUsedAt:   now,
	}
	if err := relstore.UpsertWorktreeLease(ctx, m.db, newLease); err != nil {
		return "", err
	}
	return path, nil
}

// Release decrements a lease's refcount, transitioning to stale at zero.
// Releasing from a pid that does not own an active lease is refused.
func (m *Manager) Release(ctx context.Context, ref string, ownerPID int64) error {
	lease, err := relstore.GetWorktreeLease(ctx, m.db, m.projectID, ref)
	if err != nil {
		return err
	}
	if lease == nil {
		return cerrors.New(cerrors.InternalError, fmt.Sprintf("no worktree lease for ref %s", ref), nil)
	}
	if lease.OwnerPID != ownerPID {
		return cerrors.New(cerrors.InternalError,
			fmt.Sprintf("release refused: ref %s is owned by a different process", ref), nil)
	}

	now := time.Now().UTC()
	if lease.Refcount <= 1 {
		lease.Refcount = 0
		lease.OwnerPID = 0
		lease.Status = relstore.LeaseStale
		return relstore.UpsertWorktreeLease(ctx, m.db, lease)
	}
	return relstore.UpdateWorktreeLeaseRefcount(ctx, m.db, m.projectID, ref, lease.Refcount-1, now)
}

// CleanupStale removes every lease with zero refcount that was last used
// before cutoff (see ListStaleWorktreeLeases); a non-active lease used
// after cutoff, and any lease with a nonzero refcount, is kept. It deletes
// each removed lease's directory unless that directory is the project's own
// repo root. A missing directory is tolerated, not an error.
func CleanupStale(ctx context.Context, db relstore.DBTX, repoRoot string, cutoff time.Time) (int, error) {
	leases, err := relstore.ListStaleWorktreeLeases(ctx, db, cutoff)
	if err != nil {
		return 0, err
	}
	canonicalRepoRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		canonicalRepoRoot = repoRoot
	}

	removed := 0
	for _, lease := range leases {
		if err := relstore.UpdateWorktreeLeaseStatus(ctx, db, lease.ProjectID, lease.Ref, relstore.LeaseRemoving, time.Now().UTC()); err != nil {
			return removed, err
		}

		canonicalPath, err := filepath.Abs(lease.WorktreePath)
		if err != nil {
			canonicalPath = lease.WorktreePath
		}
		if canonicalPath != canonicalRepoRoot && lease.WorktreePath != "" {
			if err := os.RemoveAll(lease.WorktreePath); err != nil && !os.IsNotExist(err) {
				return removed, cerrors.New(cerrors.InternalError, fmt.Sprintf("remove worktree %s: %v", lease.WorktreePath, err), err)
			}
		}

		if err := relstore.DeleteWorktreeLease(ctx, db, lease.ProjectID, lease.Ref); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
