// Package cerrors provides the closed error taxonomy used across the
// engine: config, state, index, parse, query, protocol, vcs, and
// workspace errors, each carrying structured fields so the protocol
// layer can translate them into the canonical codes in the external
// interface without losing context.
package cerrors

import "fmt"

// Category classifies an error for routing and logging.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryState      Category = "STATE"
	CategoryIndex      Category = "INDEX"
	CategoryParse      Category = "PARSE"
	CategoryQuery      Category = "QUERY"
	CategoryProtocol   Category = "PROTOCOL"
	CategoryVCS        Category = "VCS"
	CategoryWorkspace  Category = "WORKSPACE"
	CategoryInternal   Category = "INTERNAL"
)

// ProtocolCode is the closed set of canonical protocol error strings.
type ProtocolCode string

const (
	InvalidInput           ProtocolCode = "invalid_input"
	InvalidStrategy         ProtocolCode = "invalid_strategy"
	InvalidMaxTokens        ProtocolCode = "invalid_max_tokens"
	ProjectNotFound         ProtocolCode = "project_not_found"
	WorkspaceNotRegistered  ProtocolCode = "workspace_not_registered"
	WorkspaceNotAllowed     ProtocolCode = "workspace_not_allowed"
	WorkspaceLimitExceeded  ProtocolCode = "workspace_limit_exceeded"
	IndexInProgress         ProtocolCode = "index_in_progress"
	IndexNotReady           ProtocolCode = "index_not_ready"
	SyncInProgress          ProtocolCode = "sync_in_progress"
	IndexStale              ProtocolCode = "index_stale"
	IndexIncompatible       ProtocolCode = "index_incompatible"
	RefNotIndexed           ProtocolCode = "ref_not_indexed"
	OverlayNotReady         ProtocolCode = "overlay_not_ready"
	MergeBaseFailed         ProtocolCode = "merge_base_failed"
	SymbolNotFound          ProtocolCode = "symbol_not_found"
	AmbiguousSymbol         ProtocolCode = "ambiguous_symbol"
	FileNotFound            ProtocolCode = "file_not_found"
	ResultNotFound          ProtocolCode = "result_not_found"
	NoEdgesAvailable        ProtocolCode = "no_edges_available"
	InternalError           ProtocolCode = "internal_error"
)

// Error is the structured error type threaded through every subsystem.
type Error struct {
	Code     ProtocolCode
	Message  string
	Category Category
	Details  map[string]string
	Cause    error
	Fatal    bool
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s %v", e.Code, e.Message, e.Details)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is enables errors.Is to match by protocol code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key-value pair of structured context and returns
// the error for chaining (project_id, ref, job_id, path, line_start, ...).
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds an Error with a category inferred from the protocol code.
func New(code ProtocolCode, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFor(code),
		Cause:    cause,
		Fatal:    isFatal(code),
	}
}

// Sqlite wraps a relational-store failure; every DAO operation that fails
// surfaces exactly this shape, per the relational store contract.
func Sqlite(detail string) *Error {
	return New(InternalError, fmt.Sprintf("sqlite: %s", detail), nil)
}

// SyncInProgressErr builds the canonical sync_in_progress error carrying
// the active job's ID, per the index_jobs uniqueness constraint.
func SyncInProgressErr(projectID, ref, activeJobID string) *Error {
	return New(SyncInProgress, "another index job is already active for this ref", nil).
		WithDetail("project_id", projectID).
		WithDetail("ref", ref).
		WithDetail("active_job_id", activeJobID)
}

func categoryFor(code ProtocolCode) Category {
	switch code {
	case InvalidInput, InvalidStrategy, InvalidMaxTokens:
		return CategoryQuery
	case ProjectNotFound, WorkspaceNotRegistered, WorkspaceNotAllowed, WorkspaceLimitExceeded:
		return CategoryWorkspace
	case IndexInProgress, IndexNotReady, SyncInProgress, IndexStale, IndexIncompatible, RefNotIndexed, OverlayNotReady:
		return CategoryIndex
	case MergeBaseFailed:
		return CategoryVCS
	case SymbolNotFound, AmbiguousSymbol, FileNotFound, ResultNotFound, NoEdgesAvailable:
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

func isFatal(code ProtocolCode) bool {
	switch code {
	case ProjectNotFound, IndexIncompatible, IndexInProgress:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err (if an *Error) is a fatal condition the
// engine must refuse to serve past until corrected.
func IsFatal(err error) bool {
	if ae, ok := err.(*Error); ok {
		return ae.Fatal
	}
	return false
}

// Code extracts the protocol code, or empty string if err is not an *Error.
func Code(err error) ProtocolCode {
	if ae, ok := err.(*Error); ok {
		return ae.Code
	}
	return ""
}
