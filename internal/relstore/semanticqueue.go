package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// EnqueueSemanticWork inserts a new generation for (project, ref, path)
// and marks any earlier, still-pending/running rows for the same triple
// as superseded — latest-wins per triple, so a rapid string of edits to
// one file never embeds stale content.
func EnqueueSemanticWork(ctx context.Context, db DBTX, projectID, ref, path string, generation int64) (*SemanticQueueEntry, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO semantic_enrichment_queue (project_id, ref, path, generation, status, retry_count, created_at, updated_at)
		VALUES (?,?,?,?,?,0,?,?)
	`, projectID, ref, path, generation, string(QueuePending), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	if _, err := db.ExecContext(ctx, `
		UPDATE semantic_enrichment_queue SET status = ?, updated_at = ?
		WHERE project_id = ? AND ref = ? AND path = ? AND generation < ? AND status IN ('pending','running')
	`, string(QueueDone), now.Format(time.RFC3339Nano), projectID, ref, path, generation); err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return &SemanticQueueEntry{
		ID: id, ProjectID: projectID, Ref: ref, Path: path, Generation: generation,
		Status: QueuePending, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// DequeueNextSemanticWork claims the oldest pending entry whose
// next_attempt_at has elapsed (or is unset), marking it running. Returns
// nil if the queue has nothing eligible.
func DequeueNextSemanticWork(ctx context.Context, db DBTX) (*SemanticQueueEntry, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	row := db.QueryRowContext(ctx, queueSelect+`
		WHERE status = 'pending' AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY id LIMIT 1`, now)
	entry, err := scanQueueEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	if _, err := db.ExecContext(ctx, `
		UPDATE semantic_enrichment_queue SET status = 'running', updated_at = ? WHERE id = ?
	`, now, entry.ID); err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	entry.Status = QueueRunning
	return entry, nil
}

// CompleteSemanticWork marks an entry done.
func CompleteSemanticWork(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE semantic_enrichment_queue SET status = 'done', updated_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// FailSemanticWork records a retry with exponential backoff via
// nextAttemptAt, or marks the entry permanently failed when the caller
// has exhausted retries (nextAttemptAt == nil).
func FailSemanticWork(ctx context.Context, db DBTX, id int64, errorCode string, nextAttemptAt *time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	status := string(QueuePending)
	var next any
	if nextAttemptAt != nil {
		next = nextAttemptAt.Format(time.RFC3339Nano)
	} else {
		status = string(QueueFailed)
	}
	_, err := db.ExecContext(ctx, `
		UPDATE semantic_enrichment_queue
		SET status = ?, retry_count = retry_count + 1, last_error_code = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?
	`, status, errorCode, next, now, id)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListPendingSemanticWork returns the pending and running queue entries
// for (project, ref), oldest first.
func ListPendingSemanticWork(ctx context.Context, db DBTX, projectID, ref string) ([]*SemanticQueueEntry, error) {
	rows, err := db.QueryContext(ctx, queueSelect+`
		WHERE project_id = ? AND ref = ? AND status IN ('pending','running') ORDER BY id`, projectID, ref)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*SemanticQueueEntry
	for rows.Next() {
		e, err := scanQueueEntryRows(rows)
		if err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneSemanticQueue deletes terminal (done/failed) rows last updated
// before cutoff — the TTL-based cleanup that semanticqueue.Prune wraps.
// Nothing in this repository schedules it.
func PruneSemanticQueue(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM semantic_enrichment_queue WHERE status IN ('done','failed') AND updated_at < ?
	`, cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, cerrors.Sqlite(err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, cerrors.Sqlite(err.Error())
	}
	return n, nil
}

const queueSelect = `
	SELECT id, project_id, ref, path, generation, status, retry_count, last_error_code, next_attempt_at, created_at, updated_at
	FROM semantic_enrichment_queue`

func scanQueueEntry(row *sql.Row) (*SemanticQueueEntry, error) { return scanQueueEntryGeneric(row) }

func scanQueueEntryRows(rows *sql.Rows) (*SemanticQueueEntry, error) {
	return scanQueueEntryGeneric(rows)
}

func scanQueueEntryGeneric(s rowScanner) (*SemanticQueueEntry, error) {
	var e SemanticQueueEntry
	var status string
	var lastErr, nextAttempt sql.NullString
	var created, updated string
	if err := s.Scan(&e.ID, &e.ProjectID, &e.Ref, &e.Path, &e.Generation, &status, &e.RetryCount,
		&lastErr, &nextAttempt, &created, &updated); err != nil {
		return nil, err
	}
	e.Status = QueueStatus(status)
	e.LastErrorCode = lastErr.String
	if nextAttempt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, nextAttempt.String)
		e.NextAttemptAt = &t
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &e, nil
}
