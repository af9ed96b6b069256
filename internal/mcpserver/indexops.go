package mcpserver

import (
	"context"
	"os"
	"time"

	"github.com/signalridge/cruxe/internal/jobs"
	"github.com/signalridge/cruxe/internal/pipeline"
	"github.com/signalridge/cruxe/internal/relstore"
)

// IndexRepoInput is index_repo's validated arguments.
type IndexRepoInput struct {
	Ref   string
	Force bool
}

// IndexRepoOutput mirrors pipeline.Report for the protocol layer.
type IndexRepoOutput struct {
	JobID            string `json:"job_id"`
	Ref              string `json:"ref"`
	Mode             string `json:"mode"`
	FilesScanned     int64  `json:"files_scanned"`
	FilesIndexed     int64  `json:"files_indexed"`
	SymbolsExtracted int64  `json:"symbols_extracted"`
	ChangedFiles     int64  `json:"changed_files"`
	RemovedCount     int64  `json:"removed_count"`
	DurationMs       int64  `json:"duration_ms"`
}

// IndexRepo runs a full (or forced-full) index of the project at ref.
// It refuses to start a second job on the same ref while one is active
// — RequireNoActiveJob's check plus CreateJob's own unique-index conflict
// both guard this, so a race loses here rather than corrupting state.
func IndexRepo(ctx context.Context, s *Stores, in IndexRepoInput) (*IndexRepoOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := jobs.RequireNoActiveJob(ctx, s.DB, s.ProjectID, ref); err != nil {
		return nil, Metadata{}, err
	}

	opts := s.indexOptions(ref, in.Force)
	report, err := pipeline.Run(ctx, s.SQLDB, s.ProjectID, opts)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	return reportToOutput(report), meta, nil
}

// SyncRepoInput is sync_repo's validated arguments.
type SyncRepoInput struct {
	Ref string
}

// SyncRepo runs an incremental re-index of ref — the same pipeline path
// IndexRepo uses, but with Force left false so unchanged files are
// skipped via the content-hash manifest comparison.
func SyncRepo(ctx context.Context, s *Stores, in SyncRepoInput) (*IndexRepoOutput, Metadata, error) {
	return IndexRepo(ctx, s, IndexRepoInput{Ref: in.Ref, Force: false})
}

func (s *Stores) indexOptions(ref string, force bool) pipeline.Options {
	return pipeline.Options{
		RepoRoot:          s.RepoRoot,
		Ref:               ref,
		Force:             force,
		DataDir:           s.DataDir,
		MaxFileSize:       s.PipelineBase.MaxFileSize,
		EnabledLanguages:  s.PipelineBase.EnabledLanguages,
		ExtraExcludeGlobs: s.PipelineBase.ExtraExcludeGlobs,
		CurrentHeadRef:    s.PipelineBase.CurrentHeadRef,
		DefaultRef:        s.DefaultRef,
	}
}

func reportToOutput(r *pipeline.Report) *IndexRepoOutput {
	return &IndexRepoOutput{
		JobID:            r.JobID,
		Ref:              r.Ref,
		Mode:             string(r.Mode),
		FilesScanned:     r.FilesScanned,
		FilesIndexed:     r.FilesIndexed,
		SymbolsExtracted: r.SymbolsExtracted,
		ChangedFiles:     r.ChangedFiles,
		RemovedCount:     r.RemovedCount,
		DurationMs:       r.DurationMs,
	}
}

// IndexStatusInput is index_status's validated arguments.
type IndexStatusInput struct {
	Ref string // empty reports every known ref
}

// RefStatus is one ref's job/branch-state summary.
type RefStatus struct {
	Ref         string              `json:"ref"`
	Freshness   jobs.Freshness      `json:"freshness"`
	Indexing    jobs.IndexingStatus `json:"indexing"`
	Schema      jobs.SchemaStatus   `json:"schema"`
	FileCount   int                 `json:"file_count"`
	SymbolCount int                 `json:"symbol_count"`
	ActiveJobID string              `json:"active_job_id,omitempty"`
}

// IndexStatusOutput is one or every ref's status.
type IndexStatusOutput struct {
	Refs []RefStatus `json:"refs"`
}

// IndexStatus reports job/freshness/schema state for one ref, or every
// ref known to the project when Ref is empty.
func IndexStatus(ctx context.Context, s *Stores, in IndexStatusInput) (*IndexStatusOutput, Metadata, error) {
	project, err := relstore.GetProject(ctx, s.DB, s.ProjectID)
	if err != nil {
		return nil, Metadata{}, err
	}

	var refs []string
	if in.Ref != "" {
		refs = []string{in.Ref}
	} else {
		branches, err := relstore.ListBranchStates(ctx, s.DB, s.ProjectID)
		if err != nil {
			return nil, Metadata{}, err
		}
		for _, b := range branches {
			refs = append(refs, b.Ref)
		}
	}

	out := make([]RefStatus, 0, len(refs))
	for _, ref := range refs {
		m, err := jobs.Classify(ctx, s.DB, project, ref, "")
		if err != nil {
			return nil, Metadata{}, err
		}
		status := RefStatus{Ref: ref, Freshness: m.Freshness, Indexing: m.Indexing, Schema: m.Schema}
		if branch, err := relstore.GetBranchState(ctx, s.DB, s.ProjectID, ref); err == nil && branch != nil {
			status.FileCount = branch.FileCount
			status.SymbolCount = branch.SymbolCount
		}
		if active, err := relstore.GetActiveJobForRef(ctx, s.DB, s.ProjectID, ref); err == nil && active != nil {
			status.ActiveJobID = active.JobID
		}
		out = append(out, status)
	}

	meta, err := s.metadataFor(ctx, s.ResolveRef(in.Ref), "")
	if err != nil {
		return nil, Metadata{}, err
	}
	return &IndexStatusOutput{Refs: out}, meta, nil
}

// HealthCheckOutput reports whether the project's storage is reachable
// and whether semantic search is currently available.
type HealthCheckOutput struct {
	DatabaseReachable bool   `json:"database_reachable"`
	RepoRootExists    bool   `json:"repo_root_exists"`
	SemanticAvailable bool   `json:"semantic_available"`
	EmbedderModel     string `json:"embedder_model,omitempty"`
	CheckedAt         string `json:"checked_at"`
}

// HealthCheck pings the database and reports embedder/worktree readiness
// without touching any particular ref.
func HealthCheck(ctx context.Context, s *Stores, now time.Time) (*HealthCheckOutput, error) {
	out := &HealthCheckOutput{CheckedAt: now.UTC().Format(time.RFC3339)}

	if s.SQLDB != nil {
		out.DatabaseReachable = s.SQLDB.PingContext(ctx) == nil
	}
	if _, err := os.Stat(s.RepoRoot); err == nil {
		out.RepoRootExists = true
	}
	if s.Embedder != nil {
		out.SemanticAvailable = s.Embedder.Available(ctx)
		out.EmbedderModel = s.Embedder.ModelName()
	}
	return out, nil
}
