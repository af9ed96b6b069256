// Package mcpserver is the thin, protocol-agnostic core behind every MCP
// tool: each operation is a pure function over opened stores and
// validated arguments, returning a typed response plus the response
// metadata contract (freshness/indexing/schema status). The MCP-SDK
// wiring in server.go only validates input and serializes these
// results — it holds no business logic of its own.
package mcpserver

import (
	"context"
	"database/sql"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/embed"
	"github.com/signalridge/cruxe/internal/ftindex"
	"github.com/signalridge/cruxe/internal/jobs"
	"github.com/signalridge/cruxe/internal/relstore"
	"github.com/signalridge/cruxe/internal/search"
	"github.com/signalridge/cruxe/internal/vectorstore"
	"github.com/signalridge/cruxe/internal/worktree"
)

// Metadata is the response-metadata contract attached to every tool
// result: the caller's view of how current and queryable the addressed
// ref is, independent of whether the operation itself succeeded.
type Metadata struct {
	ProjectID string              `json:"project_id"`
	Ref       string              `json:"ref"`
	Freshness jobs.Freshness      `json:"freshness"`
	Indexing  jobs.IndexingStatus `json:"indexing"`
	Schema    jobs.SchemaStatus   `json:"schema"`
}

// Stores bundles every opened dependency one project's tool calls share.
// Construction (opening the DB, indices, worktree manager) lives in
// cmd/cruxe; this package only ever receives an already-open Stores.
type Stores struct {
	ProjectID  string
	Repo       string
	RepoRoot   string
	DefaultRef string
	DataDir    string

	DB           relstore.DBTX // narrow read/write handle every query-side tool uses
	SQLDB        *sql.DB       // full handle index_repo/sync_repo/health_check need to open transactions
	IndexRoot    func(ref string) (*ftindex.IndexSet, error) // opens/caches the base or overlay index for ref
	VectorStore  *vectorstore.Store
	Embedder     embed.Embedder
	ModelVersion string

	Worktree *worktree.Manager
	Engine   *search.Engine

	SearchConfig search.EngineConfig
	PipelineBase pipelineBaseOptions
}

// pipelineBaseOptions carries the indexing options that don't vary per
// call (enabled languages, size limits, exclude globs) — index_repo and
// sync_repo both layer their own Ref/Force onto this.
type pipelineBaseOptions struct {
	MaxFileSize       int64
	EnabledLanguages  []string
	ExtraExcludeGlobs []string
	CurrentHeadRef    func(repoRoot string) (string, error)
}

// NewPipelineBase builds the Stores.PipelineBase value; cmd/cruxe is the
// only caller, since it's the package that owns the VCS shellout
// supplying currentHeadRef.
func NewPipelineBase(maxFileSize int64, enabledLanguages, extraExcludeGlobs []string, currentHeadRef func(repoRoot string) (string, error)) pipelineBaseOptions {
	return pipelineBaseOptions{
		MaxFileSize:       maxFileSize,
		EnabledLanguages:  enabledLanguages,
		ExtraExcludeGlobs: extraExcludeGlobs,
		CurrentHeadRef:    currentHeadRef,
	}
}

// ResolveRef applies the explicit > default ref fallthrough every tool
// that takes an optional ref argument uses.
func (s *Stores) ResolveRef(ref string) string {
	if ref != "" {
		return ref
	}
	return s.DefaultRef
}

func (s *Stores) metadataFor(ctx context.Context, ref, headCommit string) (Metadata, error) {
	project, err := relstore.GetProject(ctx, s.DB, s.ProjectID)
	if err != nil {
		return Metadata{}, err
	}
	m, err := jobs.Classify(ctx, s.DB, project, ref, headCommit)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ProjectID: s.ProjectID,
		Ref:       ref,
		Freshness: m.Freshness,
		Indexing:  m.Indexing,
		Schema:    m.Schema,
	}, nil
}

// requireIndexed returns a ref_not_indexed error unless ref's branch
// state row exists — the shared guard every read tool runs before
// touching the full-text index or symbol table.
func (s *Stores) requireIndexed(ctx context.Context, ref string) error {
	branch, err := relstore.GetBranchState(ctx, s.DB, s.ProjectID, ref)
	if err != nil {
		return err
	}
	if branch == nil {
		return cerrors.New(cerrors.RefNotIndexed, "ref has not been indexed", nil).WithDetail("ref", ref)
	}
	return nil
}
