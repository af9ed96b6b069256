package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// FindRelatedSymbolsInput is find_related_symbols's validated arguments.
type FindRelatedSymbolsInput struct {
	SymbolStableID string
	Name           string
	Path           string
	Ref            string
}

// RelatedSymbol names a resolved or unresolved edge's target.
type RelatedSymbol struct {
	Symbol     *SymbolView `json:"symbol,omitempty"`
	Name       string      `json:"name,omitempty"` // unresolved target (no symbol row)
	EdgeType   string      `json:"edge_type"`
	Confidence string      `json:"confidence"`
}

// FindRelatedSymbolsOutput groups a symbol's outgoing import-edge
// relations by direction; find_references covers the reverse (incoming)
// direction so the two tools stay complementary rather than redundant.
type FindRelatedSymbolsOutput struct {
	Symbol  SymbolView      `json:"symbol"`
	Imports []RelatedSymbol `json:"imports"`
}

// FindRelatedSymbols resolves one symbol and returns the import edges it
// originates — resolved targets hydrated to a full symbol view, unresolved
// ones left as the recorded short name.
func FindRelatedSymbols(ctx context.Context, s *Stores, in FindRelatedSymbolsInput) (*FindRelatedSymbolsOutput, Metadata, error) {
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

	edges, err := relstore.ListImportEdgesFrom(ctx, s.DB, s.ProjectID, ref, sym.SymbolStableID)
	if err != nil {
		return nil, meta, err
	}

	related, err := hydrateEdgeTargets(ctx, s, ref, edges)
	if err != nil {
		return nil, meta, err
	}

	return &FindRelatedSymbolsOutput{Symbol: toSymbolView(sym), Imports: related}, meta, nil
}

func hydrateEdgeTargets(ctx context.Context, s *Stores, ref string, edges []*relstore.ImportEdge) ([]RelatedSymbol, error) {
	out := make([]RelatedSymbol, 0, len(edges))
	for _, e := range edges {
		r := RelatedSymbol{EdgeType: e.EdgeType, Confidence: string(e.Confidence)}
		if e.ToSymbolID != "" {
			target, err := relstore.GetSymbolByStableID(ctx, s.DB, s.ProjectID, ref, e.ToSymbolID)
			if err != nil {
				return nil, err
			}
			if target != nil {
				view := toSymbolView(target)
				r.Symbol = &view
			}
		} else {
			r.Name = e.ToName
		}
		out = append(out, r)
	}
	return out, nil
}
