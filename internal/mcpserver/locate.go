package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// LocateSymbolInput is locate_symbol's validated arguments.
type LocateSymbolInput struct {
	Name string
	Path string // disambiguates when Name alone matches more than one symbol
	Ref  string
}

// SymbolView is the flattened symbol shape every tool in this package
// returns, trimmed of the storage-internal ephemeral symbol_id.
type SymbolView struct {
	SymbolStableID string `json:"symbol_stable_id"`
	Name           string `json:"name"`
	QualifiedName  string `json:"qualified_name"`
	Kind           string `json:"kind"`
	Path           string `json:"path"`
	LineStart      int    `json:"line_start"`
	LineEnd        int    `json:"line_end"`
	Visibility     string `json:"visibility,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

func toSymbolView(s *relstore.Symbol) SymbolView {
	return SymbolView{
		SymbolStableID: s.SymbolStableID,
		Name:           s.Name,
		QualifiedName:  s.QualifiedName,
		Kind:           string(s.Kind),
		Path:           s.Path,
		LineStart:      s.LineStart,
		LineEnd:        s.LineEnd,
		Visibility:     s.Visibility,
		Signature:      s.Signature,
	}
}

// LocateSymbolOutput is locate_symbol's response: either exactly one
// resolved symbol, or the full candidate set when the name is ambiguous
// without a disambiguating path.
type LocateSymbolOutput struct {
	Symbol     *SymbolView  `json:"symbol,omitempty"`
	Candidates []SymbolView `json:"candidates,omitempty"`
}

// LocateSymbol resolves a symbol by name (optionally scoped to a file),
// falling back from an exact qualified-name match to a short-name match
// exactly as import resolution's own two-tier lookup does.
func LocateSymbol(ctx context.Context, s *Stores, in LocateSymbolInput) (*LocateSymbolOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := s.requireIndexed(ctx, ref); err != nil {
		return nil, Metadata{}, err
	}

	matches, err := relstore.FindSymbolsByQualifiedName(ctx, s.DB, s.ProjectID, ref, in.Name)
	if err != nil {
		return nil, Metadata{}, err
	}
	if len(matches) == 0 {
		matches, err = relstore.FindSymbolsByName(ctx, s.DB, s.ProjectID, ref, in.Name, in.Path)
		if err != nil {
			return nil, Metadata{}, err
		}
	} else if in.Path != "" {
		matches = filterByPath(matches, in.Path)
	}

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}

	if len(matches) == 0 {
		return nil, meta, cerrors.New(cerrors.SymbolNotFound, "no symbol matched the given name", nil).
			WithDetail("name", in.Name)
	}
	if len(matches) == 1 {
		view := toSymbolView(matches[0])
		return &LocateSymbolOutput{Symbol: &view}, meta, nil
	}

	candidates := make([]SymbolView, len(matches))
	for i, m := range matches {
		candidates[i] = toSymbolView(m)
	}
	out := &LocateSymbolOutput{Candidates: candidates}
	return out, meta, cerrors.New(cerrors.AmbiguousSymbol, "multiple symbols matched; disambiguate with path", nil).
		WithDetail("name", in.Name).
		WithDetail("candidate_count", itoaLocal(len(candidates)))
}

func filterByPath(symbols []*relstore.Symbol, path string) []*relstore.Symbol {
	out := make([]*relstore.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		if sym.Path == path {
			out = append(out, sym)
		}
	}
	return out
}

func itoaLocal(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
