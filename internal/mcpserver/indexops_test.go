package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

func TestIndexStatus_ReportsEveryKnownRef(t *testing.T) {
	f := newFixture(t)
	out, _, err := IndexStatus(context.Background(), f.stores(), IndexStatusInput{})
	require.NoError(t, err)
	require.Len(t, out.Refs, 2)
}

func TestIndexStatus_SingleRefIncludesFileAndSymbolCounts(t *testing.T) {
	f := newFixture(t)
	out, _, err := IndexStatus(context.Background(), f.stores(), IndexStatusInput{Ref: f.ref})
	require.NoError(t, err)
	require.Len(t, out.Refs, 1)
	assert.Equal(t, 2, out.Refs[0].FileCount)
	assert.Equal(t, 2, out.Refs[0].SymbolCount)
}

func TestIndexRepo_RefusesWhenJobAlreadyActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, relstore.CreateJob(ctx, f.db, &relstore.Job{
		JobID: "job-1", ProjectID: f.projectID, Ref: f.ref, Mode: relstore.ModeFull, Status: relstore.JobRunning,
	}))

	_, _, err := IndexRepo(ctx, f.stores(), IndexRepoInput{Ref: f.ref})
	require.Error(t, err)
	assert.Equal(t, cerrors.SyncInProgress, cerrors.Code(err))
}

func TestHealthCheck_ReportsDatabaseReachable(t *testing.T) {
	f := newFixture(t)
	out, err := HealthCheck(context.Background(), f.stores(), time.Now())
	require.NoError(t, err)
	assert.True(t, out.DatabaseReachable)
	assert.False(t, out.SemanticAvailable) // no embedder wired in this fixture
}
