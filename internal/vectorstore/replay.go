package vectorstore

import (
	"context"

	"github.com/signalridge/cruxe/internal/relstore"
)

// Replay rebuilds one (project, ref, model_version) graph from its
// persisted semantic_vectors rows. The composite ANN id is
// symbol_stable_id + "\x1f" + snippet_hash, matching how Upsert callers
// in the semantic-enrichment path key each chunk's embedding.
func Replay(ctx context.Context, db relstore.DBTX, store *Store, key Key) error {
	records, err := relstore.ListVectorsForReplay(ctx, db, key.ProjectID, key.Ref, key.ModelVersion)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := store.Upsert(key, CompositeID(r.SymbolStableID, r.SnippetHash), r.Vector); err != nil {
			return err
		}
	}
	return nil
}

// CompositeID derives the ANN store's id for one embedded chunk.
func CompositeID(symbolStableID, snippetHash string) string {
	return symbolStableID + "\x1f" + snippetHash
}
