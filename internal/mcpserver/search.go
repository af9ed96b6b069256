package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/search"
)

// SearchCodeInput is search_code's validated arguments.
type SearchCodeInput struct {
	Query        string
	Ref          string
	Language     string
	Scopes       []string
	Limit        int
	Debug        bool
	OverridePlan string
}

// SearchCodeOutput wraps search.Response for the protocol layer.
type SearchCodeOutput = search.Response

// SearchCode runs the hybrid search pipeline via the wired engine.
func SearchCode(ctx context.Context, s *Stores, in SearchCodeInput) (*SearchCodeOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)

	resp, err := s.Engine.SearchCode(ctx, search.Request{
		Query:        in.Query,
		Ref:          ref,
		Language:     in.Language,
		Scopes:       in.Scopes,
		Limit:        in.Limit,
		Debug:        in.Debug,
		OverridePlan: in.OverridePlan,
	})
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	return resp, meta, nil
}
