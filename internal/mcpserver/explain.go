package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/search"
)

// ExplainRankingInput is explain_ranking's validated arguments: re-run
// the same query with debug accounting enabled and surface one result's
// scoring breakdown by its result ID.
type ExplainRankingInput struct {
	Query    string
	Ref      string
	Language string
	ResultID string
}

// ExplainRankingOutput is the requested result's full scoring breakdown.
type ExplainRankingOutput struct {
	ResultID string                 `json:"result_id"`
	Reasons  *search.RankingReasons `json:"reasons"`
}

// ExplainRanking re-runs search_code with debug accounting on and
// returns the precedence-ordered scoring breakdown for one result,
// matching the original implementation's explain_ranking tool.
func ExplainRanking(ctx context.Context, s *Stores, in ExplainRankingInput) (*ExplainRankingOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)

	resp, err := s.Engine.SearchCode(ctx, search.Request{
		Query:    in.Query,
		Ref:      ref,
		Language: in.Language,
		Debug:    true,
		Limit:    50,
	})
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}

	for _, r := range resp.Results {
		if r.ResultID == in.ResultID {
			return &ExplainRankingOutput{ResultID: r.ResultID, Reasons: r.Reasons}, meta, nil
		}
	}
	return nil, meta, cerrors.New(cerrors.ResultNotFound, "result_id not found in this query's result set", nil).
		WithDetail("result_id", in.ResultID)
}
