package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// ReplaceCallEdgesForFile deletes every call edge previously sourced from
// path and inserts the resolved set, inside one SAVEPOINT nested in tx.
func ReplaceCallEdgesForFile(ctx context.Context, tx *sql.Tx, projectID, ref, path string, edges []*CallEdge) error {
	return WithSavepoint(tx, "call_edges", func() error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM symbol_call_edges WHERE project_id = ? AND ref = ? AND source_file = ?
		`, projectID, ref, path); err != nil {
			return cerrors.Sqlite(err.Error())
		}
		for _, e := range edges {
			if err := insertCallEdge(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertCallEdge(ctx context.Context, db DBTX, e *CallEdge) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		INSERT INTO symbol_call_edges (project_id, ref, from_symbol_id, to_symbol_id, to_name, source_file, source_line, confidence, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)
	`, e.ProjectID, e.Ref, e.FromSymbolID, nullableStr(e.ToSymbolID), nullableStr(e.ToName), e.SourceFile, e.SourceLine, string(e.Confidence), now)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListCallEdgesFrom returns outgoing call edges for one symbol — the
// expansion step of the call-graph BFS.
func ListCallEdgesFrom(ctx context.Context, db DBTX, projectID, ref, fromSymbolID string) ([]*CallEdge, error) {
	rows, err := db.QueryContext(ctx, callEdgeSelect+`
		WHERE project_id = ? AND ref = ? AND from_symbol_id = ?`, projectID, ref, fromSymbolID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanCallEdges(rows)
}

// ListCallEdgesFromMany returns the outgoing call edges of many source
// IDs in one IN-list query; it does not chunk, so the caller bounds the
// length of fromSymbolIDs.
func ListCallEdgesFromMany(ctx context.Context, db DBTX, projectID, ref string, fromSymbolIDs []string) ([]*CallEdge, error) {
	if len(fromSymbolIDs) == 0 {
		return nil, nil
	}
	query := callEdgeSelect + ` WHERE project_id = ? AND ref = ? AND from_symbol_id IN (` + placeholders(len(fromSymbolIDs)) + `)`
	args := make([]any, 0, len(fromSymbolIDs)+2)
	args = append(args, projectID, ref)
	for _, id := range fromSymbolIDs {
		args = append(args, id)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanCallEdges(rows)
}

// ListCallEdgesTo returns incoming call edges for one symbol — used by
// find_references.
func ListCallEdgesTo(ctx context.Context, db DBTX, projectID, ref, toSymbolID string) ([]*CallEdge, error) {
	rows, err := db.QueryContext(ctx, callEdgeSelect+`
		WHERE project_id = ? AND ref = ? AND to_symbol_id = ?`, projectID, ref, toSymbolID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanCallEdges(rows)
}

// DeleteCallEdgesForFile removes every call edge sourced from path — used
// during the removal pass.
func DeleteCallEdgesForFile(ctx context.Context, db DBTX, projectID, ref, path string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM symbol_call_edges WHERE project_id = ? AND ref = ? AND source_file = ?`, projectID, ref, path)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

const callEdgeSelect = `
	SELECT project_id, ref, from_symbol_id, to_symbol_id, to_name, source_file, source_line, confidence
	FROM symbol_call_edges`

func scanCallEdges(rows *sql.Rows) ([]*CallEdge, error) {
	var out []*CallEdge
	for rows.Next() {
		var e CallEdge
		var toSym, toName sql.NullString
		var conf string
		if err := rows.Scan(&e.ProjectID, &e.Ref, &e.FromSymbolID, &toSym, &toName, &e.SourceFile, &e.SourceLine, &conf); err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		e.ToSymbolID = toSym.String
		e.ToName = toName.String
		e.Confidence = EdgeConfidence(conf)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
