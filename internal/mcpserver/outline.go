package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// GetFileOutlineInput is get_file_outline's validated arguments.
type GetFileOutlineInput struct {
	Path string
	Ref  string
}

// GetFileOutlineOutput lists every top-level-or-nested symbol recorded
// for one file, in source order.
type GetFileOutlineOutput struct {
	Path    string       `json:"path"`
	Symbols []SymbolView `json:"symbols"`
}

// GetFileOutline returns one file's recorded symbol table.
func GetFileOutline(ctx context.Context, s *Stores, in GetFileOutlineInput) (*GetFileOutlineOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := s.requireIndexed(ctx, ref); err != nil {
		return nil, Metadata{}, err
	}

	entry, err := relstore.GetManifestEntry(ctx, s.DB, s.ProjectID, ref, in.Path)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	if entry == nil {
		return nil, meta, cerrors.New(cerrors.FileNotFound, "file not found in this ref's index", nil).WithDetail("path", in.Path)
	}

	symbols, err := relstore.ListSymbolsForFile(ctx, s.DB, s.ProjectID, ref, in.Path)
	if err != nil {
		return nil, meta, err
	}

	views := make([]SymbolView, len(symbols))
	for i, sym := range symbols {
		views[i] = toSymbolView(sym)
	}
	return &GetFileOutlineOutput{Path: in.Path, Symbols: views}, meta, nil
}
