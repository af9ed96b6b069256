package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSymbolBetweenRefs_DetectsBodyChange(t *testing.T) {
	f := newFixture(t)
	out, _, err := CompareSymbolBetweenRefs(context.Background(), f.stores(), CompareSymbolBetweenRefsInput{
		Name: "pkg.Callee", BaseRef: f.ref, HeadRef: f.otherRef,
	})
	require.NoError(t, err)
	assert.Equal(t, "modified", out.DiffSummary.Status)
	require.NotNil(t, out.DiffSummary.BodyChanged)
	assert.True(t, *out.DiffSummary.BodyChanged)
	require.NotNil(t, out.DiffSummary.LinesAdded)
	assert.Greater(t, *out.DiffSummary.LinesAdded, 0)
}

func TestCompareSymbolBetweenRefs_UnchangedSymbol(t *testing.T) {
	f := newFixture(t)
	out, _, err := CompareSymbolBetweenRefs(context.Background(), f.stores(), CompareSymbolBetweenRefsInput{
		Name: "pkg.Caller", BaseRef: f.ref, HeadRef: f.otherRef,
	})
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out.DiffSummary.Status)
}

func TestCompareSymbolBetweenRefs_NotFoundInEitherRef(t *testing.T) {
	f := newFixture(t)
	_, _, err := CompareSymbolBetweenRefs(context.Background(), f.stores(), CompareSymbolBetweenRefsInput{
		Name: "pkg.Ghost", BaseRef: f.ref, HeadRef: f.otherRef,
	})
	require.Error(t, err)
}

func TestLCSLength_IdenticalAndDisjointSequences(t *testing.T) {
	assert.Equal(t, 3, lcsLength([]string{"a", "b", "c"}, []string{"a", "b", "c"}))
	assert.Equal(t, 0, lcsLength([]string{"a", "b"}, []string{"x", "y"}))
	assert.Equal(t, 2, lcsLength([]string{"a", "b", "c"}, []string{"b", "c", "x"}))
}

func TestLineDiffCounts_FallsBackAboveMaxLCSLines(t *testing.T) {
	longBase := repeatLine("x", maxLCSLines+1)
	longHead := repeatLine("y", maxLCSLines+1)
	added, removed := lineDiffCounts(longBase, longHead)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}

func repeatLine(line string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
