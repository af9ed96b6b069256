package ftindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// batchBudgetBytes bounds how large an in-flight Bleve batch is allowed
// to grow; the pipeline's per-writer buffer budget.
const batchBudgetBytes = 50 * 1024 * 1024

// BatchWriter holds one Bleve batch per kind for the lifetime of a
// single indexing run and commits the three at the end of the run. A
// batch that grows past batchBudgetBytes is flushed early, and Commit
// applies the three batches one after another, so a reader can observe
// one kind's documents before the others'.
type BatchWriter struct {
	set        *IndexSet
	batches    map[Kind]*bleve.Batch
	pendingLen map[Kind]int
}

// NewBatchWriter opens a batch against each of the set's three indices.
func NewBatchWriter(set *IndexSet) *BatchWriter {
	w := &BatchWriter{
		set:        set,
		batches:    make(map[Kind]*bleve.Batch, len(AllKinds)),
		pendingLen: make(map[Kind]int, len(AllKinds)),
	}
	for _, kind := range AllKinds {
		w.batches[kind] = set.Index(kind).NewBatch()
	}
	return w
}

// AddSymbol stages a symbol document keyed by its stable ID.
func (w *BatchWriter) AddSymbol(doc *SymbolDoc) error {
	return w.stage(KindSymbols, doc.SymbolStableID, doc)
}

// AddSnippet stages a snippet document keyed by file_key + line range.
func (w *BatchWriter) AddSnippet(docID string, doc *SnippetDoc) error {
	return w.stage(KindSnippets, docID, doc)
}

// AddFile stages a file document keyed by file_key.
func (w *BatchWriter) AddFile(doc *FileDoc) error {
	return w.stage(KindFiles, doc.FileKey, doc)
}

func (w *BatchWriter) stage(kind Kind, docID string, doc any) error {
	if err := w.batches[kind].Index(docID, doc); err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("stage %s doc %s: %v", kind, docID, err), err)
	}
	w.pendingLen[kind] += approxDocSize(doc)
	if w.pendingLen[kind] > batchBudgetBytes {
		if err := w.flush(kind); err != nil {
			return err
		}
	}
	return nil
}

// approxDocSize estimates a document's encoded size from its text
// fields, used only to decide when to flush a batch early.
func approxDocSize(doc any) int {
	switch d := doc.(type) {
	case *SymbolDoc:
		return len(d.Content) + len(d.Signature) + len(d.QualifiedName)
	case *SnippetDoc:
		return len(d.Content)
	case *FileDoc:
		return len(d.Content)
	default:
		return 0
	}
}

func (w *BatchWriter) flush(kind Kind) error {
	if err := w.set.Index(kind).Batch(w.batches[kind]); err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("flush %s batch: %v", kind, err), err)
	}
	w.batches[kind] = w.set.Index(kind).NewBatch()
	w.pendingLen[kind] = 0
	return nil
}

// DeleteByFileKey deletes every document across all three indices whose
// file_key term matches — the single-term eviction the store contract
// requires before a changed file is re-indexed.
func (w *BatchWriter) DeleteByFileKey(fileKey string) error {
	return w.deleteByTerm("file_key", fileKey)
}

// DeleteByRef deletes every document across all three indices scoped to
// ref — the bulk eviction a forced rebuild issues before rescanning.
func (w *BatchWriter) DeleteByRef(ref string) error {
	return w.deleteByTerm("ref", ref)
}

func (w *BatchWriter) deleteByTerm(field, value string) error {
	for _, kind := range AllKinds {
		ids, err := collectTermDocIDs(w.set.Index(kind), field, value)
		if err != nil {
			return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("collect %s=%s in %s: %v", field, value, kind, err), err)
		}
		for _, id := range ids {
			w.batches[kind].Delete(id)
		}
	}
	return nil
}

func collectTermDocIDs(idx bleve.Index, field, value string) ([]string, error) {
	query := bleve.NewTermQuery(value)
	query.SetField(field)
	req := bleve.NewSearchRequest(query)
	req.Fields = nil
	req.Size = 10000

	var ids []string
	for {
		result, err := idx.Search(req)
		if err != nil {
			return nil, err
		}
		for _, hit := range result.Hits {
			ids = append(ids, hit.ID)
		}
		if len(result.Hits) < req.Size {
			break
		}
		req.From += req.Size
	}
	return ids, nil
}

// Commit flushes every pending batch across all three indices. Bleve
// offers no cross-index transaction, so this is a best-effort sequential
// commit: the caller (the pipeline's two-phase commit) treats full-text
// success as a precondition for the relational COMMIT, never the reverse.
func (w *BatchWriter) Commit() error {
	for _, kind := range AllKinds {
		if w.batches[kind].Size() == 0 {
			continue
		}
		if err := w.set.Index(kind).Batch(w.batches[kind]); err != nil {
			return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("commit %s batch: %v", kind, err), err)
		}
	}
	return nil
}
