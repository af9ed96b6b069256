package relstore

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// savepointCounter gives every savepoint a unique name so nested,
// possibly concurrent per-file replacements never collide.
var savepointCounter int64

// WithSavepoint runs fn inside a named SAVEPOINT nested in the caller's
// outer transaction (never BEGIN/COMMIT — those would not compose with
// the pipeline's own outer transaction). On fn's error, the savepoint is
// rolled back and the error is returned; on success it is released.
func WithSavepoint(tx *sql.Tx, label string, fn func() error) error {
	n := atomic.AddInt64(&savepointCounter, 1)
	name := fmt.Sprintf("sp_%s_%d", label, n)

	if _, err := tx.Exec(fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return cerrors.Sqlite(fmt.Sprintf("savepoint %s: %v", name, err))
	}

	if err := fn(); err != nil {
		if _, rerr := tx.Exec(fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); rerr != nil {
			return cerrors.Sqlite(fmt.Sprintf("rollback to savepoint %s after %v: %v", name, err, rerr))
		}
		_, _ = tx.Exec(fmt.Sprintf("RELEASE SAVEPOINT %s", name))
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf("RELEASE SAVEPOINT %s", name)); err != nil {
		return cerrors.Sqlite(fmt.Sprintf("release savepoint %s: %v", name, err))
	}
	return nil
}
