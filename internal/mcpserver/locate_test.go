package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
)

func TestLocateSymbol_ResolvesByQualifiedName(t *testing.T) {
	f := newFixture(t)
	out, meta, err := LocateSymbol(context.Background(), f.stores(), LocateSymbolInput{Name: "pkg.Callee"})
	require.NoError(t, err)
	require.NotNil(t, out.Symbol)
	assert.Equal(t, "Callee", out.Symbol.Name)
	assert.Equal(t, f.ref, meta.Ref)
}

func TestLocateSymbol_FallsBackToShortName(t *testing.T) {
	f := newFixture(t)
	out, _, err := LocateSymbol(context.Background(), f.stores(), LocateSymbolInput{Name: "Caller"})
	require.NoError(t, err)
	require.NotNil(t, out.Symbol)
	assert.Equal(t, "pkg.Caller", out.Symbol.QualifiedName)
}

func TestLocateSymbol_NotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := LocateSymbol(context.Background(), f.stores(), LocateSymbolInput{Name: "DoesNotExist"})
	require.Error(t, err)
	assert.Equal(t, cerrors.SymbolNotFound, cerrors.Code(err))
}

func TestLocateSymbol_AmbiguousReturnsCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExtraSymbolNamed(t, "Callee", "other.go", "other.Callee")

	out, _, err := LocateSymbol(ctx, f.stores(), LocateSymbolInput{Name: "Callee"})
	require.Error(t, err)
	assert.Equal(t, cerrors.AmbiguousSymbol, cerrors.Code(err))
	assert.Len(t, out.Candidates, 2)
}

func TestLocateSymbol_PathDisambiguates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExtraSymbolNamed(t, "Callee", "other.go", "other.Callee")

	out, _, err := LocateSymbol(ctx, f.stores(), LocateSymbolInput{Name: "Callee", Path: "other.go"})
	require.NoError(t, err)
	require.NotNil(t, out.Symbol)
	assert.Equal(t, "other.go", out.Symbol.Path)
}
