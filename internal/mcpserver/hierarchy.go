package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// GetSymbolHierarchyInput is get_symbol_hierarchy's validated arguments.
type GetSymbolHierarchyInput struct {
	SymbolStableID string // preferred: unambiguous
	Name           string // fallback when SymbolStableID is empty
	Path           string
	Ref            string
}

// GetSymbolHierarchyOutput is the resolved symbol plus its immediate
// ancestor and its direct children — one level each way, matching the
// teacher corpus's "hierarchy" convention of parent+children rather than
// a full ancestor/descendant closure.
type GetSymbolHierarchyOutput struct {
	Symbol   SymbolView   `json:"symbol"`
	Parent   *SymbolView  `json:"parent,omitempty"`
	Children []SymbolView `json:"children"`
}

// GetSymbolHierarchy resolves one symbol and walks one level up (via its
// parent_symbol_id) and one level down (via ListChildSymbols).
func GetSymbolHierarchy(ctx context.Context, s *Stores, in GetSymbolHierarchyInput) (*GetSymbolHierarchyOutput, Metadata, error) {
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

	out := &GetSymbolHierarchyOutput{Symbol: toSymbolView(sym)}

	if sym.ParentSymbolID != "" {
		parent, err := relstore.GetSymbolBySymbolID(ctx, s.DB, s.ProjectID, ref, sym.ParentSymbolID)
		if err != nil {
			return nil, meta, err
		}
		if parent != nil {
			view := toSymbolView(parent)
			out.Parent = &view
		}
	}

	children, err := relstore.ListChildSymbols(ctx, s.DB, s.ProjectID, ref, sym.SymbolID)
	if err != nil {
		return nil, meta, err
	}
	out.Children = make([]SymbolView, len(children))
	for i, c := range children {
		out.Children[i] = toSymbolView(c)
	}

	return out, meta, nil
}

// resolveSymbol is the shared lookup every tool that accepts either a
// stable ID or a name+path pair uses: stable ID first (unambiguous),
// then qualified name, then short name scoped by path.
func resolveSymbol(ctx context.Context, s *Stores, ref, stableID, name, path string) (*relstore.Symbol, error) {
	if stableID != "" {
		return relstore.GetSymbolByStableID(ctx, s.DB, s.ProjectID, ref, stableID)
	}
	if name == "" {
		return nil, cerrors.New(cerrors.InvalidInput, "symbol_stable_id or name is required", nil)
	}

	matches, err := relstore.FindSymbolsByQualifiedName(ctx, s.DB, s.ProjectID, ref, name)
	if err != nil {
		return nil, err
	}
	if path != "" {
		matches = filterByPath(matches, path)
	}
	if len(matches) == 0 {
		matches, err = relstore.FindSymbolsByName(ctx, s.DB, s.ProjectID, ref, name, path)
		if err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}
