package mcpserver

import (
	"context"
	"sort"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/relstore"
)

// FindReferencesInput is find_references's validated arguments.
type FindReferencesInput struct {
	SymbolStableID string
	Name           string
	Path           string
	Ref            string
}

// Reference is one site that names a target symbol, whether through an
// import/type relation or a call edge.
type Reference struct {
	Kind       string `json:"kind"` // "import" or "call"
	SourceFile string `json:"source_file"`
	SourceLine int    `json:"source_line,omitempty"`
	Confidence string `json:"confidence"`
}

// FindReferencesOutput is the resolved symbol plus every reference
// site found across the import-edge and call-edge tables, merged and
// ordered by file then line for deterministic output.
type FindReferencesOutput struct {
	Symbol     SymbolView  `json:"symbol"`
	References []Reference `json:"references"`
}

// FindReferences resolves one symbol and returns every incoming edge
// that names it — the reverse direction of find_related_symbols.
func FindReferences(ctx context.Context, s *Stores, in FindReferencesInput) (*FindReferencesOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := s.requireIndexed(ctx, ref); err != nil {
		return nil, Metadata{}, err
	}

	sym, err := resolveSymbol(ctx, s, ref, in.SymbolStableID, in.Name, in.Path)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	if sym == nil {
		return nil, meta, cerrors.New(cerrors.SymbolNotFound, "no symbol matched", nil)
	}

	imports, err := relstore.ListImportEdgesTo(ctx, s.DB, s.ProjectID, ref, sym.SymbolStableID)
	if err != nil {
		return nil, meta, err
	}
	calls, err := relstore.ListCallEdgesTo(ctx, s.DB, s.ProjectID, ref, sym.SymbolStableID)
	if err != nil {
		return nil, meta, err
	}

	refs := make([]Reference, 0, len(imports)+len(calls))
	for _, e := range imports {
		refs = append(refs, Reference{Kind: "import", SourceFile: symbolOwnerPath(ctx, s, ref, e.FromSymbolID), Confidence: string(e.Confidence)})
	}
	for _, e := range calls {
		refs = append(refs, Reference{Kind: "call", SourceFile: e.SourceFile, SourceLine: e.SourceLine, Confidence: string(e.Confidence)})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].SourceFile != refs[j].SourceFile {
			return refs[i].SourceFile < refs[j].SourceFile
		}
		return refs[i].SourceLine < refs[j].SourceLine
	})

	if len(refs) == 0 {
		return &FindReferencesOutput{Symbol: toSymbolView(sym)}, meta, cerrors.New(cerrors.NoEdgesAvailable, "no references found for this symbol", nil)
	}
	return &FindReferencesOutput{Symbol: toSymbolView(sym), References: refs}, meta, nil
}

// symbolOwnerPath resolves an import edge's from_symbol_id — a real
// symbol_stable_id or a file::<path> pseudo-symbol — to the file it
// belongs to, falling back to the raw ID when neither form resolves.
func symbolOwnerPath(ctx context.Context, s *Stores, ref, fromSymbolID string) string {
	if path, ok := ids.IsFilePseudoSymbolID(fromSymbolID); ok {
		return path
	}
	sym, err := relstore.GetSymbolByStableID(ctx, s.DB, s.ProjectID, ref, fromSymbolID)
	if err == nil && sym != nil {
		return sym.Path
	}
	return fromSymbolID
}
