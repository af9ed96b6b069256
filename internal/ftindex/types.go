// Package ftindex wraps Bleve v2 as the engine's full-text layer: three
// per-kind indices (symbols, snippets, files) opened against one of
// three write-target roots (base, overlay, staging), each document
// carrying an indexed file_key so a single term-delete evicts every
// document belonging to a file before it is re-indexed.
package ftindex

import "time"

// Kind enumerates the three document shapes the index set stores.
type Kind string

const (
	KindSymbols  Kind = "symbols"
	KindSnippets Kind = "snippets"
	KindFiles    Kind = "files"
)

// AllKinds lists the three indices a BatchWriter commits together.
var AllKinds = []Kind{KindSymbols, KindSnippets, KindFiles}

// SymbolDoc is the denormalized projection of a Symbol row.
type SymbolDoc struct {
	FileKey        string `json:"file_key"`
	Ref            string `json:"ref"`
	ProjectID      string `json:"project_id"`
	Path           string `json:"path"`
	SymbolStableID string `json:"symbol_stable_id"`
	Name           string `json:"name"`
	QualifiedName  string `json:"qualified_name"`
	Kind           string `json:"kind"`
	Signature      string `json:"signature"`
	Content        string `json:"content"`
	LineStart      int    `json:"line_start"`
	LineEnd        int    `json:"line_end"`
	Language       string `json:"language"`
}

// SnippetDoc is a chunk of file content windowed for search, independent
// of whether it aligns to a whole symbol.
type SnippetDoc struct {
	FileKey   string `json:"file_key"`
	Ref       string `json:"ref"`
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
	ChunkType string `json:"chunk_type"`
	Content   string `json:"content"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Language  string `json:"language"`
}

// FileDoc carries whole-file metadata and, for small files, full content
// — the coarsest of the three granularities.
type FileDoc struct {
	FileKey   string `json:"file_key"`
	Ref       string `json:"ref"`
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	Content   string `json:"content"`
	SizeBytes int64  `json:"size_bytes"`
}

// Hit is a scored match from one of the three indices.
type Hit struct {
	DocID        string
	Kind         Kind
	Score        float64
	MatchedTerms []string
	IndexedAt    time.Time
}
