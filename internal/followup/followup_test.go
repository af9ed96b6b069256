package followup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hasTool(suggestions []Suggestion, tool string) bool {
	for _, s := range suggestions {
		if s.Tool == tool {
			return true
		}
	}
	return false
}

func TestSuggest_LowConfidenceSearchAddsLocateSymbol(t *testing.T) {
	req := Request{
		PreviousQueryTool:   "search_code",
		PreviousQueryParams: map[string]any{"query": "where is rate limiting implemented"},
		PreviousResults: map[string]any{
			"query_intent":     "natural_language",
			"top_score":        0.25,
			"total_candidates": 3.0,
		},
		ConfidenceThreshold: 0.5,
	}

	result := Suggest(req)
	assert.NotEmpty(t, result.Suggestions)
	assert.True(t, hasTool(result.Suggestions, "locate_symbol"))
}

func TestSuggest_ZeroResultLocateSuggestsSearchAndCallGraph(t *testing.T) {
	req := Request{
		PreviousQueryTool:   "locate_symbol",
		PreviousQueryParams: map[string]any{"name": "validate_token"},
		PreviousResults: map[string]any{
			"top_score":        0.0,
			"total_candidates": 0.0,
			"results":          []any{},
		},
		ConfidenceThreshold: 0.5,
	}

	result := Suggest(req)
	assert.True(t, hasTool(result.Suggestions, "search_code"))
	assert.True(t, hasTool(result.Suggestions, "get_call_graph"))
}

func TestSuggest_AboveThresholdReturnsEmptySuggestions(t *testing.T) {
	req := Request{
		PreviousQueryTool:   "search_code",
		PreviousQueryParams: map[string]any{"query": "validate_token"},
		PreviousResults: map[string]any{
			"top_score":        0.91,
			"total_candidates": 4.0,
		},
		ConfidenceThreshold: 0.5,
	}

	result := Suggest(req)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, "results are above confidence threshold", result.Reason)
}

func TestSuggest_ZeroEdgesGetCallGraphSuggestsLocateAndSearch(t *testing.T) {
	req := Request{
		PreviousQueryTool: "get_call_graph",
		PreviousQueryParams: map[string]any{
			"symbol_name": "validate_token", "direction": "both", "depth": 2.0,
		},
		PreviousResults: map[string]any{
			"total_edges": 0.0,
			"callers":     []any{},
			"callees":     []any{},
		},
		ConfidenceThreshold: 0.5,
	}

	result := Suggest(req)
	assert.True(t, hasTool(result.Suggestions, "locate_symbol"))
	assert.True(t, hasTool(result.Suggestions, "search_code"))
}

func TestExtractIdentifiers_SkipsStopwordsAndShortTokens(t *testing.T) {
	ids := extractIdentifiers("where is rate limiting implemented")
	assert.Contains(t, ids, "rate")
	assert.Contains(t, ids, "limiting")
	assert.NotContains(t, ids, "where")
	assert.NotContains(t, ids, "implemented")
	assert.NotContains(t, ids, "is")
}
