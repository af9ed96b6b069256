// Package jobs layers the job-coordination policy spec.md §4.8 requires
// on top of relstore's index_jobs DAO: freshness classification, schema
// compatibility gating, and the canonical "another job is already
// running" refusal the active-job unique index backs at the storage
// layer.
package jobs

import (
	"context"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// Freshness classifies how current an indexed ref's state is relative
// to the live worktree.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"
	FreshnessStale   Freshness = "stale"
	FreshnessSyncing Freshness = "syncing"
)

// SchemaStatus classifies whether a ref's index can be read as-is.
type SchemaStatus string

const (
	SchemaCompatible      SchemaStatus = "compatible"
	SchemaReindexRequired SchemaStatus = "reindex_required"
	SchemaCorruptManifest SchemaStatus = "corrupt_manifest"
	SchemaNotIndexed      SchemaStatus = "not_indexed"
)

// IndexingStatus classifies the ref's job lifecycle state for response metadata.
type IndexingStatus string

const (
	IndexingReady      IndexingStatus = "ready"
	IndexingInProgress IndexingStatus = "indexing"
	IndexingNotIndexed IndexingStatus = "not_indexed"
	IndexingFailed     IndexingStatus = "failed"
)

// CurrentSchemaVersion is the schema_version every freshly created
// project row is stamped with. A project row carrying an older value
// gates every ref under it to SchemaReindexRequired.
const CurrentSchemaVersion = 1

// Metadata is the subset of the response metadata contract this package
// computes; the MCP layer merges it with per-tool result fields.
type Metadata struct {
	Freshness Freshness
	Indexing  IndexingStatus
	Schema    SchemaStatus
}

// Classify derives the response metadata contract's status triple for
// one (project, ref), given the project's schema version and the
// caller-supplied knowledge of whether the live worktree has moved past
// the last indexed commit (headCommit == "" when unknown/unavailable).
func Classify(ctx context.Context, db relstore.DBTX, project *relstore.Project, ref, headCommit string) (Metadata, error) {
	if project == nil {
		return Metadata{Freshness: FreshnessStale, Indexing: IndexingNotIndexed, Schema: SchemaNotIndexed}, nil
	}

	active, err := relstore.GetActiveJobForRef(ctx, db, project.ProjectID, ref)
	if err != nil {
		return Metadata{}, err
	}
	if active != nil {
		indexing := IndexingInProgress
		freshness := FreshnessSyncing
		return Metadata{Freshness: freshness, Indexing: indexing, Schema: schemaStatus(project)}, nil
	}

	branch, err := relstore.GetBranchState(ctx, db, project.ProjectID, ref)
	if err != nil {
		return Metadata{}, err
	}
	if branch == nil {
		return Metadata{Freshness: FreshnessStale, Indexing: IndexingNotIndexed, Schema: SchemaNotIndexed}, nil
	}

	indexing := IndexingReady
	if branch.Status == relstore.BranchIndexing || branch.Status == relstore.BranchSyncing || branch.Status == relstore.BranchRebuilding {
		indexing = IndexingInProgress
	}

	freshness := FreshnessFresh
	if headCommit != "" && branch.LastIndexedCommit != "" && headCommit != branch.LastIndexedCommit {
		freshness = FreshnessStale
	}

	return Metadata{Freshness: freshness, Indexing: indexing, Schema: schemaStatus(project)}, nil
}

func schemaStatus(project *relstore.Project) SchemaStatus {
	if project.SchemaVersion < CurrentSchemaVersion {
		return SchemaReindexRequired
	}
	if project.SchemaVersion > CurrentSchemaVersion {
		return SchemaCorruptManifest
	}
	return SchemaCompatible
}

// RequireNoActiveJob is the guard index_repo/sync_repo run before
// attempting to create a new job: CreateJob's own unique-index conflict
// handler already produces the right error on a genuine race, but
// checking first avoids doing any scan work only to discard it.
func RequireNoActiveJob(ctx context.Context, db relstore.DBTX, projectID, ref string) error {
	active, err := relstore.GetActiveJobForRef(ctx, db, projectID, ref)
	if err != nil {
		return err
	}
	if active != nil {
		return cerrors.SyncInProgressErr(projectID, ref, active.JobID)
	}
	return nil
}

// MarkInterrupted scans for jobs left running/validating by a process
// that exited without finalizing them (crash, kill -9) and transitions
// them to interrupted. Call once at daemon/CLI startup before accepting
// new work for a project.
func MarkInterrupted(ctx context.Context, db relstore.DBTX, projectID string) (int, error) {
	marked := 0
	for {
		active, err := relstore.GetActiveJob(ctx, db, projectID)
		if err != nil {
			return marked, err
		}
		if active == nil {
			return marked, nil
		}
		durationMs := time.Since(active.CreatedAt).Milliseconds()
		msg := "process exited before the job finalized"
		if err := relstore.UpdateJobStatus(ctx, db, active.JobID, relstore.JobInterrupted, nil, &durationMs, &msg); err != nil {
			return marked, err
		}
		marked++
	}
}
