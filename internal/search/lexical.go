package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/signalridge/cruxe/internal/ftindex"
)

// lexicalHit is one scored document retrieved from a single full-text
// index, with its stored fields decoded back into a usable shape.
type lexicalHit struct {
	kind           ftindex.Kind
	score          float64
	path           string
	lineStart      int
	lineEnd        int
	symbolStableID string
	name           string
	qualifiedName  string
	symbolKind     string
	language       string
	content        string
}

// queryLexical runs one query string against a single kind's index,
// filtered by ref and (optionally) language, returning up to fanout
// hits ordered by Bleve's relevance score.
func queryLexical(idx *ftindex.IndexSet, kind ftindex.Kind, queryText, ref, language string, fanout int) ([]lexicalHit, error) {
	bleveIdx := idx.Index(kind)
	if bleveIdx == nil {
		return nil, nil
	}

	must := []query.Query{bleve.NewQueryStringQuery(queryText)}
	refQuery := bleve.NewTermQuery(ref)
	refQuery.SetField("ref")
	must = append(must, refQuery)
	if language != "" {
		langQuery := bleve.NewTermQuery(language)
		langQuery.SetField("language")
		must = append(must, langQuery)
	}

	conjunction := bleve.NewConjunctionQuery(must...)
	req := bleve.NewSearchRequestOptions(conjunction, fanout, 0, false)
	req.Fields = []string{"*"}

	result, err := bleveIdx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("query %s index: %w", kind, err)
	}

	hits := make([]lexicalHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, decodeHit(kind, h))
	}
	return hits, nil
}

func decodeHit(kind ftindex.Kind, h *search.DocumentMatch) lexicalHit {
	hit := lexicalHit{kind: kind, score: h.Score}
	hit.path = fieldString(h.Fields, "path")
	hit.lineStart = fieldInt(h.Fields, "line_start")
	hit.lineEnd = fieldInt(h.Fields, "line_end")
	hit.symbolStableID = fieldString(h.Fields, "symbol_stable_id")
	hit.name = fieldString(h.Fields, "name")
	hit.qualifiedName = fieldString(h.Fields, "qualified_name")
	hit.symbolKind = fieldString(h.Fields, "kind")
	hit.language = fieldString(h.Fields, "language")
	hit.content = fieldString(h.Fields, "content")
	return hit
}

func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func fieldInt(fields map[string]any, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
