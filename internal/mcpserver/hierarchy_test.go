package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSymbolHierarchy_ReturnsChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Give Callee a child so the children branch is exercised.
	f.addChildOf(t, "callee", "callee.go")

	out, _, err := GetSymbolHierarchy(ctx, f.stores(), GetSymbolHierarchyInput{Name: "pkg.Callee"})
	require.NoError(t, err)
	assert.Equal(t, "Callee", out.Symbol.Name)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "Nested", out.Children[0].Name)
}

func TestGetSymbolHierarchy_RequiresNameOrStableID(t *testing.T) {
	f := newFixture(t)
	_, _, err := GetSymbolHierarchy(context.Background(), f.stores(), GetSymbolHierarchyInput{})
	require.Error(t, err)
}
