package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// ReplaceImportEdgesForFile deletes every import edge previously recorded
// with fromSymbolID (typically a file::<path> pseudo-symbol or a real
// symbol owned by path) and inserts the resolved set, inside one
// SAVEPOINT nested in tx.
func ReplaceImportEdgesForFile(ctx context.Context, tx *sql.Tx, projectID, ref, fromSymbolID string, edges []*ImportEdge) error {
	return WithSavepoint(tx, "import_edges", func() error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM symbol_edges WHERE project_id = ? AND ref = ? AND from_symbol_id = ?
		`, projectID, ref, fromSymbolID); err != nil {
			return cerrors.Sqlite(err.Error())
		}
		seen := make(map[string]bool, len(edges))
		for _, e := range edges {
			key := e.ToSymbolID + "\x1f" + e.ToName + "\x1f" + e.EdgeType
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := insertImportEdge(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertImportEdge(ctx context.Context, db DBTX, e *ImportEdge) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		INSERT INTO symbol_edges (project_id, ref, from_symbol_id, to_symbol_id, to_name, edge_type, confidence, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id, ref, from_symbol_id, to_symbol_id, to_name, edge_type) DO UPDATE SET
			confidence = excluded.confidence
	`, e.ProjectID, e.Ref, e.FromSymbolID, nullableStr(e.ToSymbolID), nullableStr(e.ToName), e.EdgeType, string(e.Confidence), now)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListImportEdgesFrom returns the edges recorded for one source symbol —
// used by find_related_symbols.
func ListImportEdgesFrom(ctx context.Context, db DBTX, projectID, ref, fromSymbolID string) ([]*ImportEdge, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project_id, ref, from_symbol_id, to_symbol_id, to_name, edge_type, confidence
		FROM symbol_edges WHERE project_id = ? AND ref = ? AND from_symbol_id = ?`, projectID, ref, fromSymbolID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*ImportEdge
	for rows.Next() {
		var e ImportEdge
		var toSym, toName sql.NullString
		var conf string
		if err := rows.Scan(&e.ProjectID, &e.Ref, &e.FromSymbolID, &toSym, &toName, &e.EdgeType, &conf); err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		e.ToSymbolID = toSym.String
		e.ToName = toName.String
		e.Confidence = EdgeConfidence(conf)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListImportEdgesTo returns the edges resolved onto one target symbol —
// used by find_references.
func ListImportEdgesTo(ctx context.Context, db DBTX, projectID, ref, toSymbolID string) ([]*ImportEdge, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project_id, ref, from_symbol_id, to_symbol_id, to_name, edge_type, confidence
		FROM symbol_edges WHERE project_id = ? AND ref = ? AND to_symbol_id = ?`, projectID, ref, toSymbolID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*ImportEdge
	for rows.Next() {
		var e ImportEdge
		var toSym, toName sql.NullString
		var conf string
		if err := rows.Scan(&e.ProjectID, &e.Ref, &e.FromSymbolID, &toSym, &toName, &e.EdgeType, &conf); err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		e.ToSymbolID = toSym.String
		e.ToName = toName.String
		e.Confidence = EdgeConfidence(conf)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteImportEdgesForFile removes every edge sourced from fromSymbolID —
// used during the removal pass.
func DeleteImportEdgesForFile(ctx context.Context, db DBTX, projectID, ref, fromSymbolID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM symbol_edges WHERE project_id = ? AND ref = ? AND from_symbol_id = ?`, projectID, ref, fromSymbolID)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}
