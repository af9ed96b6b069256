package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
)

func TestGetCallGraph_CallersDirection(t *testing.T) {
	f := newFixture(t)
	out, _, err := GetCallGraph(context.Background(), f.stores(), GetCallGraphInput{
		SymbolName: "pkg.Callee", Direction: "callers", Depth: 2, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, out.Callers, 1)
	assert.Equal(t, "Caller", out.Callers[0].Symbol.Name)
}

func TestGetCallGraph_InvalidDirection(t *testing.T) {
	f := newFixture(t)
	_, _, err := GetCallGraph(context.Background(), f.stores(), GetCallGraphInput{
		SymbolName: "pkg.Callee", Direction: "sideways", Depth: 1, Limit: 10,
	})
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidInput, cerrors.Code(err))
}
