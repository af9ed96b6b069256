package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
)

func TestListRefs_ReturnsBothSeededRefs(t *testing.T) {
	f := newFixture(t)
	out, _, err := ListRefs(context.Background(), f.stores())
	require.NoError(t, err)
	assert.Len(t, out.Refs, 2)
}

func TestSwitchRef_ReadyWhenActive(t *testing.T) {
	f := newFixture(t)
	out, _, err := SwitchRef(context.Background(), f.stores(), SwitchRefInput{Ref: f.ref})
	require.NoError(t, err)
	assert.True(t, out.Ready)
}

func TestSwitchRef_UnknownRefIsNotIndexed(t *testing.T) {
	f := newFixture(t)
	_, _, err := SwitchRef(context.Background(), f.stores(), SwitchRefInput{Ref: "nope"})
	require.Error(t, err)
	assert.Equal(t, cerrors.RefNotIndexed, cerrors.Code(err))
}
