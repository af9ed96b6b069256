package relstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// UpsertManifestEntry writes or replaces one file's manifest row.
func UpsertManifestEntry(ctx context.Context, db DBTX, m *ManifestEntry) error {
	if m.IndexedAt.IsZero() {
		m.IndexedAt = time.Now().UTC()
	}
	var mtime any
	if m.MtimeNs != nil {
		mtime = *m.MtimeNs
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO file_manifest (project_id, ref, path, content_hash, size_bytes, mtime_ns, language, indexed_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id, ref, path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mtime_ns = excluded.mtime_ns,
			language = excluded.language,
			indexed_at = excluded.indexed_at
	`, m.ProjectID, m.Ref, m.Path, m.ContentHash, m.SizeBytes, mtime, nullableStr(m.Language), m.IndexedAt.Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// GetManifestEntry fetches one file's manifest row, or nil if absent.
func GetManifestEntry(ctx context.Context, db DBTX, projectID, ref, path string) (*ManifestEntry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT project_id, ref, path, content_hash, size_bytes, mtime_ns, language, indexed_at
		FROM file_manifest WHERE project_id = ? AND ref = ? AND path = ?`, projectID, ref, path)
	m, err := scanManifest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	return m, nil
}

// ListManifestPaths returns every indexed path for (project, ref), sorted.
func ListManifestPaths(ctx context.Context, db DBTX, projectID, ref string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT path FROM file_manifest WHERE project_id = ? AND ref = ? ORDER BY path`, projectID, ref)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteManifestEntry removes the manifest row for one file.
func DeleteManifestEntry(ctx context.Context, db DBTX, projectID, ref, path string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM file_manifest WHERE project_id = ? AND ref = ? AND path = ?`, projectID, ref, path)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// DeleteManifestForRef deletes every manifest row for (project, ref) —
// used by the force-rebuild scope clear.
func DeleteManifestForRef(ctx context.Context, db DBTX, projectID, ref string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM file_manifest WHERE project_id = ? AND ref = ?`, projectID, ref)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

func scanManifest(row *sql.Row) (*ManifestEntry, error) {
	var m ManifestEntry
	var mtime sql.NullInt64
	var lang sql.NullString
	var indexedAt string
	if err := row.Scan(&m.ProjectID, &m.Ref, &m.Path, &m.ContentHash, &m.SizeBytes, &mtime, &lang, &indexedAt); err != nil {
		return nil, err
	}
	if mtime.Valid {
		v := mtime.Int64
		m.MtimeNs = &v
	}
	m.Language = lang.String
	m.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
	return &m, nil
}
