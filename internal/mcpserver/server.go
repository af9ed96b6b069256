package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/pkg/version"
)

// Server wires the protocol-agnostic tool functions in this package to
// the MCP SDK: every handler below does nothing but shape raw MCP input
// into the corresponding *Input type, invoke the pure function, and
// translate any returned error into the MCP error contract. No tool's
// business logic lives here.
type Server struct {
	mcp    *mcp.Server
	stores *Stores
	logger *slog.Logger
}

// NewServer builds an MCP server over an already-opened Stores and
// registers every tool named in the tool catalog.
func NewServer(stores *Stores, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		stores: stores,
		logger: logger,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "cruxe",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP SDK server, for transport wiring.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// toolError converts the pure functions' *cerrors.Error results into an
// MCP-visible error, same contract as every handler below.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*cerrors.Error); ok {
		return ce
	}
	return cerrors.New(cerrors.InternalError, err.Error(), err)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Hybrid lexical and semantic search over indexed code, ranked by a single blended score with precedence-ordered tie-breaks.",
	}, s.searchCodeHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "locate_symbol",
		Description: "Resolve a symbol by name, optionally scoped to a file path; returns candidates when the name is ambiguous.",
	}, s.locateSymbolHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_symbol_hierarchy",
		Description: "Return a symbol's immediate parent and direct children.",
	}, s.getSymbolHierarchyHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_related_symbols",
		Description: "Return the import/type edges a symbol originates, with resolved targets hydrated to full symbol views.",
	}, s.findRelatedSymbolsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_code_context",
		Description: "Return a symbol's recorded body plus surrounding sibling bodies from the same file.",
	}, s.getCodeContextHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_references",
		Description: "Return every import and call edge that names a symbol, merged and ordered by file then line.",
	}, s.findReferencesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_call_graph",
		Description: "Traverse a symbol's call graph in either direction up to a bounded depth.",
	}, s.getCallGraphHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_symbol_between_refs",
		Description: "Diff a symbol's signature, body, and line range between two refs.",
	}, s.compareSymbolBetweenRefsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_refs",
		Description: "Enumerate every ref currently indexed for the project.",
	}, s.listRefsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "switch_ref",
		Description: "Validate that a ref is indexed and report whether it is ready to serve queries.",
	}, s.switchRefHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_file_outline",
		Description: "List every symbol recorded for one file, in source order.",
	}, s.getFileOutlineHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explain_ranking",
		Description: "Re-run a search query with scoring accounting enabled and return one result's full ranking breakdown.",
	}, s.explainRankingHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "suggest_followup_queries",
		Description: "Given a prior tool call and its results, suggest likely next queries.",
	}, s.suggestFollowupQueriesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_repo",
		Description: "Run a full index of the project at a ref.",
	}, s.indexRepoHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "sync_repo",
		Description: "Run an incremental re-index of a ref, skipping unchanged files.",
	}, s.syncRepoHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report job/freshness/schema status for one ref or every known ref.",
	}, s.indexStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "health_check",
		Description: "Report whether storage, the repository root, and semantic search are currently reachable.",
	}, s.healthCheckHandler)

	s.logger.Info("mcp tools registered", slog.Int("count", 17))
}

// --- search ---

type SearchCodeToolInput struct {
	Query        string   `json:"query" jsonschema:"the search query"`
	Ref          string   `json:"ref,omitempty" jsonschema:"ref to search; defaults to the project's default ref"`
	Language     string   `json:"language,omitempty" jsonschema:"restrict results to one language"`
	Scopes       []string `json:"scopes,omitempty" jsonschema:"restrict results to these path prefixes"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Debug        bool     `json:"debug,omitempty" jsonschema:"include the per-result scoring breakdown"`
	OverridePlan string   `json:"override_plan,omitempty" jsonschema:"force a specific query-plan strategy"`
}

func (s *Server) searchCodeHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchCodeToolInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	out, _, err := SearchCode(ctx, s.stores, SearchCodeInput{
		Query: in.Query, Ref: in.Ref, Language: in.Language, Scopes: in.Scopes,
		Limit: in.Limit, Debug: in.Debug, OverridePlan: in.OverridePlan,
	})
	if err != nil {
		return nil, SearchCodeOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- locate_symbol ---

type LocateSymbolToolInput struct {
	Name string `json:"name" jsonschema:"symbol name or qualified name"`
	Path string `json:"path,omitempty" jsonschema:"file path to disambiguate a short name"`
	Ref  string `json:"ref,omitempty"`
}

func (s *Server) locateSymbolHandler(ctx context.Context, _ *mcp.CallToolRequest, in LocateSymbolToolInput) (*mcp.CallToolResult, LocateSymbolOutput, error) {
	out, _, err := LocateSymbol(ctx, s.stores, LocateSymbolInput{Name: in.Name, Path: in.Path, Ref: in.Ref})
	if err != nil {
		if out == nil {
			return nil, LocateSymbolOutput{}, toolError(err)
		}
		return nil, *out, toolError(err)
	}
	return nil, *out, nil
}

// --- get_symbol_hierarchy ---

type GetSymbolHierarchyToolInput struct {
	SymbolStableID string `json:"symbol_stable_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Path           string `json:"path,omitempty"`
	Ref            string `json:"ref,omitempty"`
}

func (s *Server) getSymbolHierarchyHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetSymbolHierarchyToolInput) (*mcp.CallToolResult, GetSymbolHierarchyOutput, error) {
	out, _, err := GetSymbolHierarchy(ctx, s.stores, GetSymbolHierarchyInput{
		SymbolStableID: in.SymbolStableID, Name: in.Name, Path: in.Path, Ref: in.Ref,
	})
	if err != nil {
		return nil, GetSymbolHierarchyOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- find_related_symbols ---

type FindRelatedSymbolsToolInput struct {
	SymbolStableID string `json:"symbol_stable_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Path           string `json:"path,omitempty"`
	Ref            string `json:"ref,omitempty"`
}

func (s *Server) findRelatedSymbolsHandler(ctx context.Context, _ *mcp.CallToolRequest, in FindRelatedSymbolsToolInput) (*mcp.CallToolResult, FindRelatedSymbolsOutput, error) {
	out, _, err := FindRelatedSymbols(ctx, s.stores, FindRelatedSymbolsInput{
		SymbolStableID: in.SymbolStableID, Name: in.Name, Path: in.Path, Ref: in.Ref,
	})
	if err != nil {
		return nil, FindRelatedSymbolsOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- get_code_context ---

type GetCodeContextToolInput struct {
	SymbolStableID string `json:"symbol_stable_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Path           string `json:"path,omitempty"`
	Ref            string `json:"ref,omitempty"`
	ContextLines   int    `json:"context_lines,omitempty"`
}

func (s *Server) getCodeContextHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetCodeContextToolInput) (*mcp.CallToolResult, GetCodeContextOutput, error) {
	out, _, err := GetCodeContext(ctx, s.stores, GetCodeContextInput{
		SymbolStableID: in.SymbolStableID, Name: in.Name, Path: in.Path, Ref: in.Ref, ContextLines: in.ContextLines,
	})
	if err != nil {
		return nil, GetCodeContextOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- find_references ---

type FindReferencesToolInput struct {
	SymbolStableID string `json:"symbol_stable_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Path           string `json:"path,omitempty"`
	Ref            string `json:"ref,omitempty"`
}

func (s *Server) findReferencesHandler(ctx context.Context, _ *mcp.CallToolRequest, in FindReferencesToolInput) (*mcp.CallToolResult, FindReferencesOutput, error) {
	out, _, err := FindReferences(ctx, s.stores, FindReferencesInput{
		SymbolStableID: in.SymbolStableID, Name: in.Name, Path: in.Path, Ref: in.Ref,
	})
	if err != nil {
		if out == nil {
			return nil, FindReferencesOutput{}, toolError(err)
		}
		return nil, *out, toolError(err)
	}
	return nil, *out, nil
}

// --- get_call_graph ---

type GetCallGraphToolInput struct {
	SymbolName string `json:"symbol_name" jsonschema:"the root symbol's name"`
	Path       string `json:"path,omitempty"`
	Ref        string `json:"ref,omitempty"`
	Direction  string `json:"direction,omitempty" jsonschema:"callers, callees, or both"`
	Depth      int    `json:"depth,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (s *Server) getCallGraphHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetCallGraphToolInput) (*mcp.CallToolResult, GetCallGraphOutput, error) {
	out, _, err := GetCallGraph(ctx, s.stores, GetCallGraphInput{
		SymbolName: in.SymbolName, Path: in.Path, Ref: in.Ref, Direction: in.Direction, Depth: in.Depth, Limit: in.Limit,
	})
	if err != nil {
		return nil, GetCallGraphOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- compare_symbol_between_refs ---

type CompareSymbolBetweenRefsToolInput struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	BaseRef string `json:"base_ref"`
	HeadRef string `json:"head_ref"`
}

func (s *Server) compareSymbolBetweenRefsHandler(ctx context.Context, _ *mcp.CallToolRequest, in CompareSymbolBetweenRefsToolInput) (*mcp.CallToolResult, CompareSymbolBetweenRefsOutput, error) {
	out, _, err := CompareSymbolBetweenRefs(ctx, s.stores, CompareSymbolBetweenRefsInput{
		Name: in.Name, Path: in.Path, BaseRef: in.BaseRef, HeadRef: in.HeadRef,
	})
	if err != nil {
		return nil, CompareSymbolBetweenRefsOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- list_refs / switch_ref ---

type ListRefsToolInput struct{}

func (s *Server) listRefsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListRefsToolInput) (*mcp.CallToolResult, ListRefsOutput, error) {
	out, _, err := ListRefs(ctx, s.stores)
	if err != nil {
		return nil, ListRefsOutput{}, toolError(err)
	}
	return nil, *out, nil
}

type SwitchRefToolInput struct {
	Ref string `json:"ref" jsonschema:"the ref to switch to"`
}

func (s *Server) switchRefHandler(ctx context.Context, _ *mcp.CallToolRequest, in SwitchRefToolInput) (*mcp.CallToolResult, SwitchRefOutput, error) {
	out, _, err := SwitchRef(ctx, s.stores, SwitchRefInput{Ref: in.Ref})
	if err != nil {
		return nil, SwitchRefOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- get_file_outline ---

type GetFileOutlineToolInput struct {
	Path string `json:"path"`
	Ref  string `json:"ref,omitempty"`
}

func (s *Server) getFileOutlineHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetFileOutlineToolInput) (*mcp.CallToolResult, GetFileOutlineOutput, error) {
	out, _, err := GetFileOutline(ctx, s.stores, GetFileOutlineInput{Path: in.Path, Ref: in.Ref})
	if err != nil {
		return nil, GetFileOutlineOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- explain_ranking ---

type ExplainRankingToolInput struct {
	Query    string `json:"query"`
	Ref      string `json:"ref,omitempty"`
	Language string `json:"language,omitempty"`
	ResultID string `json:"result_id"`
}

func (s *Server) explainRankingHandler(ctx context.Context, _ *mcp.CallToolRequest, in ExplainRankingToolInput) (*mcp.CallToolResult, ExplainRankingOutput, error) {
	out, _, err := ExplainRanking(ctx, s.stores, ExplainRankingInput{
		Query: in.Query, Ref: in.Ref, Language: in.Language, ResultID: in.ResultID,
	})
	if err != nil {
		return nil, ExplainRankingOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- suggest_followup_queries ---

type SuggestFollowupQueriesToolInput struct {
	Ref                 string         `json:"ref,omitempty"`
	PreviousQueryTool   string         `json:"previous_query_tool"`
	PreviousQueryParams map[string]any `json:"previous_query_params,omitempty"`
	PreviousResults     map[string]any `json:"previous_results,omitempty"`
	ConfidenceThreshold float64        `json:"confidence_threshold,omitempty"`
}

func (s *Server) suggestFollowupQueriesHandler(ctx context.Context, _ *mcp.CallToolRequest, in SuggestFollowupQueriesToolInput) (*mcp.CallToolResult, SuggestFollowupQueriesOutput, error) {
	out, _, err := SuggestFollowupQueries(ctx, s.stores, SuggestFollowupQueriesInput{
		Ref: in.Ref, PreviousQueryTool: in.PreviousQueryTool, PreviousQueryParams: in.PreviousQueryParams,
		PreviousResults: in.PreviousResults, ConfidenceThreshold: in.ConfidenceThreshold,
	})
	if err != nil {
		return nil, SuggestFollowupQueriesOutput{}, toolError(err)
	}
	return nil, *out, nil
}

// --- index_repo / sync_repo / index_status / health_check ---

type IndexRepoToolInput struct {
	Ref   string `json:"ref,omitempty"`
	Force bool   `json:"force,omitempty"`
}

func (s *Server) indexRepoHandler(ctx context.Context, _ *mcp.CallToolRequest, in IndexRepoToolInput) (*mcp.CallToolResult, IndexRepoOutput, error) {
	out, _, err := IndexRepo(ctx, s.stores, IndexRepoInput{Ref: in.Ref, Force: in.Force})
	if err != nil {
		return nil, IndexRepoOutput{}, toolError(err)
	}
	return nil, *out, nil
}

type SyncRepoToolInput struct {
	Ref string `json:"ref,omitempty"`
}

func (s *Server) syncRepoHandler(ctx context.Context, _ *mcp.CallToolRequest, in SyncRepoToolInput) (*mcp.CallToolResult, IndexRepoOutput, error) {
	out, _, err := SyncRepo(ctx, s.stores, SyncRepoInput{Ref: in.Ref})
	if err != nil {
		return nil, IndexRepoOutput{}, toolError(err)
	}
	return nil, *out, nil
}

type IndexStatusToolInput struct {
	Ref string `json:"ref,omitempty"`
}

func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, in IndexStatusToolInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	out, _, err := IndexStatus(ctx, s.stores, IndexStatusInput{Ref: in.Ref})
	if err != nil {
		return nil, IndexStatusOutput{}, toolError(err)
	}
	return nil, *out, nil
}

type HealthCheckToolInput struct{}

func (s *Server) healthCheckHandler(ctx context.Context, _ *mcp.CallToolRequest, _ HealthCheckToolInput) (*mcp.CallToolResult, HealthCheckOutput, error) {
	out, err := HealthCheck(ctx, s.stores, time.Now())
	if err != nil {
		return nil, HealthCheckOutput{}, toolError(err)
	}
	return nil, *out, nil
}
