package search

import (
	"strings"
	"testing"

	"github.com/signalridge/cruxe/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCompositeID_RoundTripsSymbolAndSnippetHash(t *testing.T) {
	stableID, hash, ok := splitCompositeID("sym123\x1fhash456")
	require.True(t, ok)
	assert.Equal(t, "sym123", stableID)
	assert.Equal(t, "hash456", hash)

	_, _, ok = splitCompositeID("no-separator")
	assert.False(t, ok)
}

func TestAssignResultIDs_DeterministicAndTypeAware(t *testing.T) {
	results := []*Result{
		{Path: "a.go", SymbolStableID: "s1", Kind: "function", Name: "Foo"},
		{Path: "b.md", Kind: "file"},
	}
	assignResultIDs(results, "repo", "main")
	assignResultIDs(results, "repo", "main") // recompute should be stable
	firstID := results[0].ResultID
	assert.NotEmpty(t, firstID)
	assert.NotEmpty(t, results[1].ResultID)
	assert.NotEqual(t, results[0].ResultID, results[1].ResultID)
}

func TestTruncateToByteBudget_FlagsSafetyLimitWhenOverBudget(t *testing.T) {
	results := make([]*Result, 0, 50)
	for i := 0; i < 50; i++ {
		results = append(results, &Result{Path: "a.go", Content: strings.Repeat("x", 200)})
	}

	truncated, applied := truncateToByteBudget(results, 1000)
	assert.True(t, applied)
	assert.Less(t, len(truncated), len(results))
}

func TestTruncateToByteBudget_NoLimitReturnsAllResults(t *testing.T) {
	results := []*Result{{Path: "a.go"}, {Path: "b.go"}}
	truncated, applied := truncateToByteBudget(results, 0)
	assert.False(t, applied)
	assert.Len(t, truncated, 2)
}

func TestSuggestedActions_TopHitSuggestsLocateSymbol(t *testing.T) {
	resp := &Response{
		Results:         []*Result{{Name: "validate_token", Score: 0.9}},
		TotalCandidates: 1,
	}
	actions := suggestedActions(Request{Query: "validate_token"}, Classification{Intent: planner.IntentSymbol, Confidence: 0.9}, resp)
	found := false
	for _, a := range actions {
		if strings.Contains(a, "locate_symbol") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSuggestedActions_ManyResultsSuggestsSmallerLimit(t *testing.T) {
	resp := &Response{
		Results: []*Result{
			{Name: "a", Score: 0.9}, {Name: "b", Score: 0.8},
			{Name: "c", Score: 0.7}, {Name: "d", Score: 0.6},
		},
		TotalCandidates: 4,
	}
	actions := suggestedActions(Request{Query: "foo"}, Classification{Intent: planner.IntentSymbol, Confidence: 0.9}, resp)
	found := false
	for _, a := range actions {
		if strings.Contains(a, "smaller limit") {
			found = true
		}
	}
	assert.True(t, found)
}
