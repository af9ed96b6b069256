package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/followup"
)

// SuggestFollowupQueriesInput is suggest_followup_queries's validated
// arguments: the prior tool call this request is following up on.
type SuggestFollowupQueriesInput struct {
	Ref                 string
	PreviousQueryTool   string
	PreviousQueryParams map[string]any
	PreviousResults     map[string]any
	ConfidenceThreshold float64
}

// SuggestFollowupQueriesOutput wraps followup.Result for the protocol
// layer.
type SuggestFollowupQueriesOutput = followup.Result

// SuggestFollowupQueries runs the generic cross-tool suggestion engine
// against one prior call's recorded results.
func SuggestFollowupQueries(ctx context.Context, s *Stores, in SuggestFollowupQueriesInput) (*SuggestFollowupQueriesOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	result := followup.Suggest(followup.Request{
		PreviousQueryTool:   in.PreviousQueryTool,
		PreviousQueryParams: in.PreviousQueryParams,
		PreviousResults:     in.PreviousResults,
		ConfidenceThreshold: in.ConfidenceThreshold,
	})

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	return &result, meta, nil
}
