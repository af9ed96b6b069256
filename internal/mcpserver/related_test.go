package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRelatedSymbols_HydratesResolvedTarget(t *testing.T) {
	f := newFixture(t)
	out, _, err := FindRelatedSymbols(context.Background(), f.stores(), FindRelatedSymbolsInput{Name: "pkg.Caller"})
	require.NoError(t, err)
	require.Len(t, out.Imports, 1)
	require.NotNil(t, out.Imports[0].Symbol)
	assert.Equal(t, "Callee", out.Imports[0].Symbol.Name)
	assert.Equal(t, "call", out.Imports[0].EdgeType)
}

func TestFindRelatedSymbols_LeafSymbolHasNoImports(t *testing.T) {
	f := newFixture(t)
	out, _, err := FindRelatedSymbols(context.Background(), f.stores(), FindRelatedSymbolsInput{Name: "pkg.Callee"})
	require.NoError(t, err)
	assert.Empty(t, out.Imports)
}
