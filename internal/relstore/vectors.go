package relstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// UpsertVectorRecord persists one embedding. semantic_vectors is the
// durable store behind the in-memory HNSW index; vectorstore.Replay can
// rebuild a graph from the rows of one (project, ref, model_version).
// Nothing in this repository calls Replay at startup.
func UpsertVectorRecord(ctx context.Context, db DBTX, v *VectorRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO semantic_vectors (project_id, ref, symbol_stable_id, snippet_hash, model_version,
			dimensions, path, line_start, line_end, chunk_type, vector, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id, ref, symbol_stable_id, snippet_hash, model_version) DO UPDATE SET
			dimensions = excluded.dimensions,
			path = excluded.path,
			line_start = excluded.line_start,
			line_end = excluded.line_end,
			chunk_type = excluded.chunk_type,
			vector = excluded.vector
	`, v.ProjectID, v.Ref, v.SymbolStableID, v.SnippetHash, v.ModelVersion,
		v.Dimensions, v.Path, v.LineStart, v.LineEnd, v.ChunkType, encodeVector(v.Vector),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

// ListVectorsForReplay returns every vector for (project, ref,
// model_version) — the rows a rebuild of the in-memory HNSW graph
// replays. It has no caller in this repository.
func ListVectorsForReplay(ctx context.Context, db DBTX, projectID, ref, modelVersion string) ([]*VectorRecord, error) {
	rows, err := db.QueryContext(ctx, vectorSelect+`
		WHERE project_id = ? AND ref = ? AND model_version = ?`, projectID, ref, modelVersion)
	if err != nil {
		return nil, cerrors.Sqlite(err.Error())
	}
	defer rows.Close()

	var out []*VectorRecord
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, cerrors.Sqlite(err.Error())
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVectorsForSymbol removes every embedding tied to a symbol, across
// snippet hashes and model versions — used when a symbol is removed or
// its body changes and old chunks must not linger in the ANN graph.
func DeleteVectorsForSymbol(ctx context.Context, db DBTX, projectID, ref, symbolStableID string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM semantic_vectors WHERE project_id = ? AND ref = ? AND symbol_stable_id = ?
	`, projectID, ref, symbolStableID)
	if err != nil {
		return cerrors.Sqlite(err.Error())
	}
	return nil
}

const vectorSelect = `
	SELECT project_id, ref, symbol_stable_id, snippet_hash, model_version, dimensions, path, line_start, line_end, chunk_type, vector
	FROM semantic_vectors`

func scanVector(rows *sql.Rows) (*VectorRecord, error) {
	var v VectorRecord
	var blob []byte
	if err := rows.Scan(&v.ProjectID, &v.Ref, &v.SymbolStableID, &v.SnippetHash, &v.ModelVersion,
		&v.Dimensions, &v.Path, &v.LineStart, &v.LineEnd, &v.ChunkType, &blob); err != nil {
		return nil, err
	}
	v.Vector = decodeVector(blob)
	return &v, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
