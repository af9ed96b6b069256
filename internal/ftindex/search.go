package ftindex

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// QueryOpts bounds one lexical query against a single kind's index.
type QueryOpts struct {
	Ref   string // empty means unscoped
	Limit int
}

// Search runs a match query against the content field of one kind's
// index, optionally scoped by ref, and returns hits ordered by score.
func Search(ctx context.Context, set *IndexSet, kind Kind, text string, opts QueryOpts) ([]Hit, error) {
	idx := set.Index(kind)
	if idx == nil {
		return nil, cerrors.New(cerrors.InternalError, fmt.Sprintf("no index open for kind %s", kind), nil)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	match := bleve.NewMatchQuery(text)
	match.SetField("content")

	var q = bleve.Query(match)
	if opts.Ref != "" {
		refTerm := bleve.NewTermQuery(opts.Ref)
		refTerm.SetField("ref")
		q = bleve.NewConjunctionQuery(match, refTerm)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true

	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, cerrors.New(cerrors.InternalError, fmt.Sprintf("search %s: %v", kind, err), err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{
			DocID:        h.ID,
			Kind:         kind,
			Score:        h.Score,
			MatchedTerms: matchedTerms(h),
		})
	}
	return hits, nil
}

func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for field, locs := range hit.Locations {
		if field != "content" {
			continue
		}
		for term := range locs {
			seen[term] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// DocCount returns the number of documents in one kind's index.
func DocCount(set *IndexSet, kind Kind) (uint64, error) {
	idx := set.Index(kind)
	if idx == nil {
		return 0, cerrors.New(cerrors.InternalError, fmt.Sprintf("no index open for kind %s", kind), nil)
	}
	n, err := idx.DocCount()
	if err != nil {
		return 0, cerrors.New(cerrors.InternalError, fmt.Sprintf("doc count %s: %v", kind, err), err)
	}
	return n, nil
}
