// Package relstore is the single-writer embedded relational store: schema,
// DAOs, and the savepoint helper used for atomic per-file edge replacement.
// No DAO opens its own connection or manages its own transaction —
// composition lives in the indexing pipeline, per the store contract.
package relstore

import "time"

// Project is the top-level entity keyed by a deterministic project_id.
type Project struct {
	ProjectID     string
	RepoRoot      string
	DefaultRef    string
	VCSMode       string
	SchemaVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BranchStateStatus enumerates the lifecycle of a (project, ref) row.
type BranchStateStatus string

const (
	BranchActive     BranchStateStatus = "active"
	BranchIndexing   BranchStateStatus = "indexing"
	BranchSyncing    BranchStateStatus = "syncing"
	BranchRebuilding BranchStateStatus = "rebuilding"
	BranchStale      BranchStateStatus = "stale"
	BranchRemoving   BranchStateStatus = "removing"
)

// BranchState tracks one ref's index state within a project.
type BranchState struct {
	ProjectID          string
	Ref                string
	LastIndexedCommit  string
	MergeBaseCommit    string
	OverlayDir         string
	FileCount          int
	SymbolCount        int
	IsDefault          bool
	Status             BranchStateStatus
	EvictionEligibleAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastUsedAt         time.Time
}

// ManifestEntry records per-file metadata for incremental comparison.
type ManifestEntry struct {
	ProjectID   string
	Ref         string
	Path        string
	ContentHash string
	SizeBytes   int64
	MtimeNs     *int64
	Language    string
	IndexedAt   time.Time
}

// SymbolKind enumerates the extracted-symbol kinds.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
)

// Symbol is a code symbol extracted during indexing.
type Symbol struct {
	ProjectID       string
	Ref             string
	SymbolID        string // locally unique per (project, ref, file) — ephemeral
	SymbolStableID  string
	Name            string
	QualifiedName   string
	Kind            SymbolKind
	Path            string
	LineStart       int
	LineEnd         int
	ParentSymbolID  string
	Visibility      string
	Signature       string
	Content         string
}

// EdgeConfidence enumerates confidence levels for resolved relations.
type EdgeConfidence string

const (
	ConfidenceStatic    EdgeConfidence = "static"
	ConfidenceHeuristic EdgeConfidence = "heuristic"
)

// ImportEdge is a resolved or unresolved import relation between a file
// or symbol and a target symbol.
type ImportEdge struct {
	ProjectID      string
	Ref            string
	FromSymbolID   string // real symbol_stable_id or file::<path>
	ToSymbolID     string // mutually exclusive with ToName
	ToName         string
	EdgeType       string
	Confidence     EdgeConfidence
}

// CallEdge is a call-site relation; unresolved calls keep ToName with no
// ToSymbolID.
type CallEdge struct {
	ProjectID     string
	Ref           string
	FromSymbolID  string
	ToSymbolID    string
	ToName        string
	SourceFile    string
	SourceLine    int
	Confidence    EdgeConfidence
}

// JobMode enumerates index_repo modes.
type JobMode string

const (
	ModeFull        JobMode = "full"
	ModeIncremental JobMode = "incremental"
)

// JobStatus enumerates the job state machine.
type JobStatus string

const (
	JobQueued      JobStatus = "queued"
	JobRunning     JobStatus = "running"
	JobValidating  JobStatus = "validating"
	JobPublished   JobStatus = "published"
	JobFailed      JobStatus = "failed"
	JobInterrupted JobStatus = "interrupted"
)

// NonTerminalJobStatuses lists statuses that block a second job on the
// same (project, ref).
var NonTerminalJobStatuses = []JobStatus{JobQueued, JobRunning, JobValidating}

// Job is a row in index_jobs.
type Job struct {
	JobID            string
	ProjectID        string
	Ref              string
	Mode             JobMode
	Status           JobStatus
	RetryCount       int
	FilesScanned     int64
	FilesIndexed     int64
	SymbolsExtracted int64
	ChangedFiles     int64
	DurationMs       *int64
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LeaseStatus enumerates worktree lease states.
type LeaseStatus string

const (
	LeaseActive   LeaseStatus = "active"
	LeaseStale    LeaseStatus = "stale"
	LeaseRemoving LeaseStatus = "removing"
)

// WorktreeLease tracks a checked-out worktree shared across processes.
type WorktreeLease struct {
	ProjectID    string
	Ref          string
	WorktreePath string
	OwnerPID     int64
	Refcount     int
	Status       LeaseStatus
	CreatedAt    time.Time
	LastUsedAt   time.Time
}

// QueueStatus enumerates semantic-enrichment queue entry states.
type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueRunning QueueStatus = "running"
	QueueDone    QueueStatus = "done"
	QueueFailed  QueueStatus = "failed"
)

// SemanticQueueEntry is one unit of deferred embedding work.
type SemanticQueueEntry struct {
	ID            int64
	ProjectID     string
	Ref           string
	Path          string
	Generation    int64
	Status        QueueStatus
	RetryCount    int
	LastErrorCode string
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VectorRecord is a persisted embedding for a chunk of a symbol.
type VectorRecord struct {
	ProjectID      string
	Ref            string
	SymbolStableID string
	SnippetHash    string
	ModelVersion   string
	Vector         []float32
	Dimensions     int
	Path           string
	LineStart      int
	LineEnd        int
	ChunkType      string
}
