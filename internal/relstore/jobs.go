package relstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// CreateJob inserts a new index_jobs row. The partial unique index
// uq_index_jobs_active enforces at most one non-terminal job per
// (project_id, ref); a constraint violation here means a concurrent
// index_repo/sync_repo call won the race, and is translated into the
// canonical sync_in_progress protocol error rather than a raw Sqlite one.
func CreateJob(ctx context.Context, db DBTX, job *Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := db.ExecContext(ctx, `
		INSERT INTO index_jobs (job_id, project_id, ref, mode, status, retry_count, files_scanned,
			files_indexed, symbols_extracted, changed_files, duration_ms, error_message, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, job.JobID, job.ProjectID, job.Ref, string(job.Mode), string(job.Status), job.RetryCount,
		job.FilesScanned, job.FilesIndexed, job.SymbolsExtracted, job.ChangedFiles,
		durationArg(job.DurationMs), nullableStr(job.ErrorMessage),
		job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintErr(err) {
			active, gerr := GetActiveJobForRef(ctx, db, job.ProjectID, job.Ref)
			if gerr != nil {
				return gerr
			}
			if active != nil {
				return cerrors.SyncInProgressErr(job.ProjectID, job.Ref, active.JobID)
			}
			return cerrors.Sqlite("index_jobs constraint violation while creating job")
		}
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// UpdateJobStatus transitions a job's status and optionally its progress
// counters; nil optional fields are left unchanged via COALESCE.
func UpdateJobStatus(ctx context.Context, db DBTX, jobID string, status JobStatus, changedFiles, durationMs *int64, errorMessage *string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		UPDATE index_jobs SET
			status = ?,
			changed_files = COALESCE(?, changed_files),
			duration_ms = COALESCE(?, duration_ms),
			error_message = COALESCE(?, error_message),
			updated_at = ?
		WHERE job_id = ?
	`, string(status), int64Arg(changedFiles), int64Arg(durationMs), strArg(errorMessage), now, jobID)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// UpdateJobProgress records scan/index counters mid-run — distinct from
// UpdateJobStatus so progress notifications don't need a status value.
func UpdateJobProgress(ctx context.Context, db DBTX, jobID string, filesScanned, filesIndexed, symbolsExtracted int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		UPDATE index_jobs SET files_scanned = ?, files_indexed = ?, symbols_extracted = ?, updated_at = ?
		WHERE job_id = ?
	`, filesScanned, filesIndexed, symbolsExtracted, now, jobID)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetJob fetches a single job by ID, or nil if not found.
func GetJob(ctx context.Context, db DBTX, jobID string) (*Job, error) {
	row := db.QueryRowContext(ctx, jobSelect+` WHERE job_id = ?`, jobID)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return j, nil
}

// GetActiveJob returns the most recent non-terminal job for a project,
// across all refs.
func GetActiveJob(ctx context.Context, db DBTX, projectID string) (*Job, error) {
	row := db.QueryRowContext(ctx, jobSelect+`
		WHERE project_id = ? AND status IN ('queued','running','validating')
		ORDER BY created_at DESC LIMIT 1`, projectID)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return j, nil
}

// GetActiveJobForRef returns the most recent non-terminal job scoped to
// one (project, ref) — the lookup create_job's conflict handler uses to
// build the sync_in_progress error's active_job_id detail.
func GetActiveJobForRef(ctx context.Context, db DBTX, projectID, ref string) (*Job, error) {
	row := db.QueryRowContext(ctx, jobSelect+`
		WHERE project_id = ? AND ref = ? AND status IN ('queued','running','validating')
		ORDER BY created_at DESC LIMIT 1`, projectID, ref)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return j, nil
}

// GetRecentJobs returns the most recent jobs for a project, newest first.
func GetRecentJobs(ctx context.Context, db DBTX, projectID string, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, jobSelect+`
		WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

const jobSelect = `
	SELECT job_id, project_id, ref, mode, status, retry_count, files_scanned, files_indexed,
		symbols_extracted, changed_files, duration_ms, error_message, created_at, updated_at
	FROM index_jobs`

func scanJob(row *sql.Row) (*Job, error) { return scanJobGeneric(row) }

func scanJobRows(rows *sql.Rows) (*Job, error) { return scanJobGeneric(rows) }

func scanJobGeneric(s rowScanner) (*Job, error) {
	var j Job
	var mode, status string
	var duration sql.NullInt64
	var errMsg sql.NullString
	var created, updated string
	if err := s.Scan(&j.JobID, &j.ProjectID, &j.Ref, &mode, &status, &j.RetryCount, &j.FilesScanned, &j.FilesIndexed,
		&j.SymbolsExtracted, &j.ChangedFiles, &duration, &errMsg, &created, &updated); err != nil {
		return nil, err
	}
	j.Mode = JobMode(mode)
	j.Status = JobStatus(status)
	if duration.Valid {
		v := duration.Int64
		j.DurationMs = &v
	}
	j.ErrorMessage = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &j, nil
}

func durationArg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func int64Arg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func strArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// isUniqueConstraintErr detects a SQLite UNIQUE/partial-index violation
// from modernc.org/sqlite's error text. The driver's typed error wraps a
// libSQL result code, but matching the standard "constraint failed"
// phrasing keeps this resilient across modernc.org/sqlite versions.
func isUniqueConstraintErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
