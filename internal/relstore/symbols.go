package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// ReplaceSymbolsForFile deletes every symbol previously recorded for path
// and inserts the given set, inside one SAVEPOINT nested in tx — the unit
// of atomic per-file replacement the pipeline wraps each changed file in.
func ReplaceSymbolsForFile(ctx context.Context, tx *sql.Tx, projectID, ref, path string, symbols []*Symbol) error {
	return WithSavepoint(tx, "symbols", func() error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM symbol_relations WHERE project_id = ? AND ref = ? AND path = ?
		`, projectID, ref, path); err != nil {
			return cerrors.Sqlite(err.Error())
		}
		for _, s := range symbols {
			if err := insertSymbol(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertSymbol(ctx context.Context, db DBTX, s *Symbol) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		INSERT INTO symbol_relations (project_id, ref, symbol_id, symbol_stable_id, name, qualified_name,
			kind, path, line_start, line_end, parent_symbol_id, visibility, signature, content, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, s.ProjectID, s.Ref, s.SymbolID, s.SymbolStableID, s.Name, s.QualifiedName,
		string(s.Kind), s.Path, s.LineStart, s.LineEnd, nullableStr(s.ParentSymbolID),
		nullableStr(s.Visibility), nullableStr(s.Signature), nullableStr(s.Content), now, now)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetSymbolByStableID fetches the current (project, ref) revision of a
// symbol by its content-addressed stable ID.
func GetSymbolByStableID(ctx context.Context, db DBTX, projectID, ref, stableID string) (*Symbol, error) {
	row := db.QueryRowContext(ctx, symbolSelect+`
		WHERE project_id = ? AND ref = ? AND symbol_stable_id = ? LIMIT 1`, projectID, ref, stableID)
	s, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return s, nil
}

// GetSymbolsByStableIDs bulk-resolves many symbol_stable_id values in one
// query — the call-graph traversal's batched target resolution, chunked
// by the caller into IN-lists of bounded size.
func GetSymbolsByStableIDs(ctx context.Context, db DBTX, projectID, ref string, stableIDs []string) ([]*Symbol, error) {
	if len(stableIDs) == 0 {
		return nil, nil
	}
	query := symbolSelect + ` WHERE project_id = ? AND ref = ? AND symbol_stable_id IN (` + placeholders(len(stableIDs)) + `)`
	args := make([]any, 0, len(stableIDs)+2)
	args = append(args, projectID, ref)
	for _, id := range stableIDs {
		args = append(args, id)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanSymbolRowsAll(rows)
}

// FindSymbolsByQualifiedName is the first-tier import-resolution lookup:
// an exact match on qualified_name within (project, ref).
func FindSymbolsByQualifiedName(ctx context.Context, db DBTX, projectID, ref, qualifiedName string) ([]*Symbol, error) {
	rows, err := db.QueryContext(ctx, symbolSelect+`
		WHERE project_id = ? AND ref = ? AND qualified_name = ?`, projectID, ref, qualifiedName)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanSymbolRowsAll(rows)
}

// FindSymbolsByName is the second-tier fallback: a short-name match,
// limited to path and ordered by line_start when path is set, otherwise
// ordered by path then line_start.
func FindSymbolsByName(ctx context.Context, db DBTX, projectID, ref, name, path string) ([]*Symbol, error) {
	var rows *sql.Rows
	var err error
	if path != "" {
		rows, err = db.QueryContext(ctx, symbolSelect+`
			WHERE project_id = ? AND ref = ? AND name = ? AND path = ? ORDER BY line_start`, projectID, ref, name, path)
	} else {
		rows, err = db.QueryContext(ctx, symbolSelect+`
			WHERE project_id = ? AND ref = ? AND name = ? ORDER BY path, line_start`, projectID, ref, name)
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanSymbolRowsAll(rows)
}

// ListSymbolsForFile returns every symbol recorded for one path, ordered
// by position — used by get_file_outline and the removal-pass diff.
func ListSymbolsForFile(ctx context.Context, db DBTX, projectID, ref, path string) ([]*Symbol, error) {
	rows, err := db.QueryContext(ctx, symbolSelect+`
		WHERE project_id = ? AND ref = ? AND path = ? ORDER BY line_start`, projectID, ref, path)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanSymbolRowsAll(rows)
}

// GetSymbolBySymbolID fetches a symbol by its ephemeral per-(project,ref,file)
// ID — used by get_symbol_hierarchy to walk from a child's parent_symbol_id
// up to the parent row itself.
func GetSymbolBySymbolID(ctx context.Context, db DBTX, projectID, ref, symbolID string) (*Symbol, error) {
	row := db.QueryRowContext(ctx, symbolSelect+`
		WHERE project_id = ? AND ref = ? AND symbol_id = ? LIMIT 1`, projectID, ref, symbolID)
	s, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return s, nil
}

// ListChildSymbols returns direct children of a parent symbol — used by
// get_symbol_hierarchy.
func ListChildSymbols(ctx context.Context, db DBTX, projectID, ref, parentSymbolID string) ([]*Symbol, error) {
	rows, err := db.QueryContext(ctx, symbolSelect+`
		WHERE project_id = ? AND ref = ? AND parent_symbol_id = ? ORDER BY line_start`, projectID, ref, parentSymbolID)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	return scanSymbolRowsAll(rows)
}

// DeleteSymbolsForFile removes every symbol row for path — used during
// the removal pass when a previously indexed file disappears.
func DeleteSymbolsForFile(ctx context.Context, db DBTX, projectID, ref, path string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM symbol_relations WHERE project_id = ? AND ref = ? AND path = ?`, projectID, ref, path)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

const symbolSelect = `
	SELECT project_id, ref, symbol_id, symbol_stable_id, name, qualified_name,
		kind, path, line_start, line_end, parent_symbol_id, visibility, signature, content
	FROM symbol_relations`

func scanSymbol(row *sql.Row) (*Symbol, error) {
	return scanSymbolGeneric(row)
}

func scanSymbolRowsAll(rows *sql.Rows) ([]*Symbol, error) {
	var out []*Symbol
	for rows.Next() {
		s, err := scanSymbolGeneric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSymbolGeneric(s rowScanner) (*Symbol, error) {
	var sym Symbol
	var kind string
	var parent, visibility, signature, content sql.NullString
	if err := s.Scan(&sym.ProjectID, &sym.Ref, &sym.SymbolID, &sym.SymbolStableID, &sym.Name, &sym.QualifiedName,
		&kind, &sym.Path, &sym.LineStart, &sym.LineEnd, &parent, &visibility, &signature, &content); err != nil {
		return nil, err
	}
	sym.Kind = SymbolKind(kind)
	sym.ParentSymbolID = parent.String
	sym.Visibility = visibility.String
	sym.Signature = signature.String
	sym.Content = content.String
	return &sym, nil
}
