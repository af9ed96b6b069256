// Package semanticqueue implements the retry and batch-claim policy
// spec.md §4.8 layers on top of relstore's in-database work queue:
// FIFO batch dequeue up to N entries, exponential backoff on failure
// capped at three retries before a permanent failed state, and
// TTL-based pruning of terminal rows.
package semanticqueue

import (
	"context"
	"time"

	"github.com/signalridge/cruxe/internal/relstore"
)

// MaxRetries is the retry ceiling before an entry is marked failed
// permanently rather than rescheduled.
const MaxRetries = 3

// backoffBase is the exponential backoff unit: the first failure waits
// backoffBase, the second waits 2*backoffBase, and the third marks the
// entry failed.
const backoffBase = 30 * time.Second

// DequeueBatch claims up to n pending entries in FIFO order, skipping
// rows whose next_attempt_at has not elapsed — relstore's single-row
// DequeueNextSemanticWork already enforces that ordering and skip rule
// per call, so a batch is just n sequential claims.
func DequeueBatch(ctx context.Context, db relstore.DBTX, n int) ([]*relstore.SemanticQueueEntry, error) {
	out := make([]*relstore.SemanticQueueEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := relstore.DequeueNextSemanticWork(ctx, db)
		if err != nil {
			return out, err
		}
		if entry == nil {
			break
		}
		out = append(out, entry)
	}
	return out, nil
}

// Enqueue computes the next generation for (project, ref, path) and
// supersedes older pending/running rows for the same triple.
func Enqueue(ctx context.Context, db relstore.DBTX, projectID, ref, path string) (*relstore.SemanticQueueEntry, error) {
	return relstore.EnqueueSemanticWork(ctx, db, projectID, ref, path, time.Now().UTC().UnixNano())
}

// Complete marks an entry successfully embedded.
func Complete(ctx context.Context, db relstore.DBTX, id int64) error {
	return relstore.CompleteSemanticWork(ctx, db, id)
}

// Fail records a failed attempt. Below MaxRetries it reschedules with
// exponential backoff; at MaxRetries it transitions the entry to failed
// permanently.
func Fail(ctx context.Context, db relstore.DBTX, entry *relstore.SemanticQueueEntry, errorCode string) error {
	if entry.RetryCount+1 >= MaxRetries {
		return relstore.FailSemanticWork(ctx, db, entry.ID, errorCode, nil)
	}
	delay := backoffBase << entry.RetryCount
	next := time.Now().UTC().Add(delay)
	return relstore.FailSemanticWork(ctx, db, entry.ID, errorCode, &next)
}

// Prune removes terminal rows older than ttl. Nothing in this repository
// schedules it.
func Prune(ctx context.Context, db relstore.DBTX, ttl time.Duration) (int64, error) {
	return relstore.PruneSemanticQueue(ctx, db, time.Now().UTC().Add(-ttl))
}
