package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCodeContext_IncludesSymbolBody(t *testing.T) {
	f := newFixture(t)
	out, _, err := GetCodeContext(context.Background(), f.stores(), GetCodeContextInput{Name: "pkg.Caller"})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "Caller")
}

func TestGetCodeContext_NoSiblingsLeavesBeforeAfterEmpty(t *testing.T) {
	f := newFixture(t)
	// caller.go and callee.go each hold exactly one symbol, so neither has
	// a same-file sibling to surface as before/after context.
	out, _, err := GetCodeContext(context.Background(), f.stores(), GetCodeContextInput{Name: "pkg.Callee"})
	require.NoError(t, err)
	assert.Empty(t, out.Before)
	assert.Empty(t, out.After)
}
