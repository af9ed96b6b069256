package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// RefView is one (project, ref)'s branch-state row flattened for the
// protocol layer.
type RefView struct {
	Ref               string `json:"ref"`
	IsDefault         bool   `json:"is_default"`
	Status            string `json:"status"`
	LastIndexedCommit string `json:"last_indexed_commit,omitempty"`
	FileCount         int    `json:"file_count"`
	SymbolCount       int    `json:"symbol_count"`
}

// ListRefsOutput is every ref currently known for the project.
type ListRefsOutput struct {
	Refs []RefView `json:"refs"`
}

// ListRefs enumerates the project's indexed refs.
func ListRefs(ctx context.Context, s *Stores) (*ListRefsOutput, Metadata, error) {
	branches, err := relstore.ListBranchStates(ctx, s.DB, s.ProjectID)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta, err := s.metadataFor(ctx, s.DefaultRef, "")
	if err != nil {
		return nil, Metadata{}, err
	}

	out := make([]RefView, len(branches))
	for i, b := range branches {
		out[i] = RefView{
			Ref:               b.Ref,
			IsDefault:         b.IsDefault,
			Status:            string(b.Status),
			LastIndexedCommit: b.LastIndexedCommit,
			FileCount:         b.FileCount,
			SymbolCount:       b.SymbolCount,
		}
	}
	return &ListRefsOutput{Refs: out}, meta, nil
}

// SwitchRefInput is switch_ref's validated arguments.
type SwitchRefInput struct {
	Ref string
}

// SwitchRefOutput confirms the new active ref and whether it is ready
// to serve queries.
type SwitchRefOutput struct {
	Ref   string `json:"ref"`
	Ready bool   `json:"ready"`
}

// SwitchRef validates that ref is known (indexed or currently indexing)
// before the caller adopts it as the session's active ref — this
// package holds no session state of its own, so "switching" only means
// validating and reporting readiness; the caller's session layer records
// the choice.
func SwitchRef(ctx context.Context, s *Stores, in SwitchRefInput) (*SwitchRefOutput, Metadata, error) {
	branch, err := relstore.GetBranchState(ctx, s.DB, s.ProjectID, in.Ref)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta, err := s.metadataFor(ctx, in.Ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	if branch == nil {
		return nil, meta, cerrors.New(cerrors.RefNotIndexed, "ref has not been indexed", nil).WithDetail("ref", in.Ref)
	}

	ready := branch.Status == relstore.BranchActive
	return &SwitchRefOutput{Ref: in.Ref, Ready: ready}, meta, nil
}
