package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
)

func TestGetFileOutline_ListsSymbolsInFile(t *testing.T) {
	f := newFixture(t)
	out, _, err := GetFileOutline(context.Background(), f.stores(), GetFileOutlineInput{Path: "caller.go"})
	require.NoError(t, err)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "Caller", out.Symbols[0].Name)
}

func TestGetFileOutline_UnknownPathIsFileNotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := GetFileOutline(context.Background(), f.stores(), GetFileOutlineInput{Path: "missing.go"})
	require.Error(t, err)
	assert.Equal(t, cerrors.FileNotFound, cerrors.Code(err))
}
