package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
)

func TestFindReferences_MergesImportAndCallEdges(t *testing.T) {
	f := newFixture(t)
	out, _, err := FindReferences(context.Background(), f.stores(), FindReferencesInput{Name: "pkg.Callee"})
	require.NoError(t, err)
	require.Len(t, out.References, 2)
	for _, r := range out.References {
		assert.Equal(t, "caller.go", r.SourceFile)
	}
}

func TestFindReferences_NoEdgesAvailable(t *testing.T) {
	f := newFixture(t)
	_, _, err := FindReferences(context.Background(), f.stores(), FindReferencesInput{Name: "pkg.Caller"})
	require.Error(t, err)
	assert.Equal(t, cerrors.NoEdgesAvailable, cerrors.Code(err))
}
