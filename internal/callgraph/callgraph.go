// Package callgraph implements the bounded bidirectional BFS over
// symbol_call_edges that backs the get_call_graph tool: expand callers
// and/or callees up to a depth limit, batching target resolution,
// deduplicating on (target, source_file, source_line, depth), and
// stopping as soon as the result limit is hit.
package callgraph

import (
	"context"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// MaxDepth bounds how far the traversal may expand regardless of the
// caller's requested depth.
const MaxDepth = 5

// resolveBatchSize is the IN-list chunk size bulk symbol lookups use.
const resolveBatchSize = 400

// Direction selects which side of the call graph to traverse.
type Direction string

const (
	DirectionCallers Direction = "callers"
	DirectionCallees Direction = "callees"
	DirectionBoth    Direction = "both"
)

// ParseDirection validates a caller-supplied direction string.
func ParseDirection(value string) (Direction, bool) {
	switch Direction(value) {
	case DirectionCallers, DirectionCallees, DirectionBoth:
		return Direction(value), true
	default:
		return "", false
	}
}

// ClampDepth bounds depth into [1, MaxDepth].
func ClampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// Request is one get_call_graph invocation's validated arguments.
type Request struct {
	SymbolName string
	Path       string // optional disambiguation hint
	Direction  Direction
	Depth      int
	Limit      int
}

// EdgeResult is one emitted caller/callee edge at a given depth.
type EdgeResult struct {
	Symbol     *relstore.Symbol
	SourceFile string
	SourceLine int
	Confidence relstore.EdgeConfidence
	Depth      int
}

// Result is the full call graph computed for one root symbol.
type Result struct {
	Root         *relstore.Symbol
	Callers      []EdgeResult
	Callees      []EdgeResult
	TotalEdges   int
	Truncated    bool
	DepthApplied int
}

// GetCallGraph resolves request.SymbolName to a root symbol and
// traverses callers and/or callees from it.
func GetCallGraph(ctx context.Context, db relstore.DBTX, projectID, ref string, req Request) (*Result, error) {
	root, err := resolveRootSymbol(ctx, db, projectID, ref, req.SymbolName, req.Path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, cerrors.New(cerrors.SymbolNotFound, "no symbol matches "+req.SymbolName, nil).
			WithDetail("project_id", projectID).WithDetail("ref", ref)
	}

	depth := ClampDepth(req.Depth)
	limit := req.Limit
	if limit < 1 {
		limit = 1
	}

	var callers, callees []EdgeResult
	var callersTruncated, calleesTruncated bool

	if req.Direction == DirectionCallers || req.Direction == DirectionBoth {
		callers, callersTruncated, err = traverse(ctx, db, projectID, ref, root.SymbolStableID, depth, limit, modeCallers)
		if err != nil {
			return nil, err
		}
	}
	if req.Direction == DirectionCallees || req.Direction == DirectionBoth {
		callees, calleesTruncated, err = traverse(ctx, db, projectID, ref, root.SymbolStableID, depth, limit, modeCallees)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Root:         root,
		Callers:      callers,
		Callees:      callees,
		TotalEdges:   len(callers) + len(callees),
		Truncated:    callersTruncated || calleesTruncated,
		DepthApplied: depth,
	}, nil
}

func resolveRootSymbol(ctx context.Context, db relstore.DBTX, projectID, ref, name, path string) (*relstore.Symbol, error) {
	byQualified, err := relstore.FindSymbolsByQualifiedName(ctx, db, projectID, ref, name)
	if err != nil {
		return nil, err
	}
	if len(byQualified) > 0 {
		return byQualified[0], nil
	}
	byName, err := relstore.FindSymbolsByName(ctx, db, projectID, ref, name, path)
	if err != nil {
		return nil, err
	}
	if len(byName) > 0 {
		return byName[0], nil
	}
	return nil, nil
}

type traversalMode int

const (
	modeCallers traversalMode = iota
	modeCallees
)

type queueEntry struct {
	symbolStableID string
	depth          int
}

type dedupKey struct {
	targetStableID string
	sourceFile     string
	sourceLine     int
	depth          int
}

// traverse runs one direction's bounded BFS: a node is enqueued for
// expansion at most once (tracked in expanded), emitted edges dedup on
// (target, source_file, source_line, depth), and the walk stops as soon
// as limit results have been emitted.
func traverse(ctx context.Context, db relstore.DBTX, projectID, ref, rootSymbolStableID string, depthLimit, limit int, mode traversalMode) ([]EdgeResult, bool, error) {
	queue := []queueEntry{{symbolStableID: rootSymbolStableID, depth: 0}}
	expanded := map[string]bool{rootSymbolStableID: true}
	emitted := map[dedupKey]bool{}
	var results []EdgeResult
	truncated := false

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depthLimit {
			continue
		}

		var edges []*relstore.CallEdge
		var err error
		if mode == modeCallers {
			edges, err = relstore.ListCallEdgesTo(ctx, db, projectID, ref, current.symbolStableID)
		} else {
			edges, err = relstore.ListCallEdgesFrom(ctx, db, projectID, ref, current.symbolStableID)
		}
		if err != nil {
			return results, truncated, err
		}

		targets, err := resolveTargets(ctx, db, projectID, ref, edges, mode)
		if err != nil {
			return results, truncated, err
		}

		edgeDepth := current.depth + 1
		for _, e := range edges {
			targetID := targetIDForEdge(e, mode)
			if targetID == "" {
				continue
			}
			targetSymbol, ok := targets[targetID]
			if !ok {
				continue
			}

			key := dedupKey{targetStableID: targetSymbol.SymbolStableID, sourceFile: e.SourceFile, sourceLine: e.SourceLine, depth: edgeDepth}
			if emitted[key] {
				continue
			}
			emitted[key] = true

			if len(results) >= limit {
				truncated = true
				break
			}
			results = append(results, EdgeResult{
				Symbol:     targetSymbol,
				SourceFile: e.SourceFile,
				SourceLine: e.SourceLine,
				Confidence: e.Confidence,
				Depth:      edgeDepth,
			})

			if !expanded[targetID] {
				expanded[targetID] = true
				queue = append(queue, queueEntry{symbolStableID: targetID, depth: edgeDepth})
			}
		}
		if truncated {
			break
		}
	}

	return results, truncated, nil
}

func targetIDForEdge(e *relstore.CallEdge, mode traversalMode) string {
	if mode == modeCallers {
		return e.FromSymbolID
	}
	if e.ToSymbolID != "" {
		return e.ToSymbolID
	}
	return "" // unresolved callee: no symbol to expand to or report
}

// resolveTargets bulk-resolves the symbol_stable_id every edge in edges
// points at (callers read FromSymbolID, callees read ToSymbolID),
// chunking the IN-list into batches of resolveBatchSize.
func resolveTargets(ctx context.Context, db relstore.DBTX, projectID, ref string, edges []*relstore.CallEdge, mode traversalMode) (map[string]*relstore.Symbol, error) {
	idSet := map[string]bool{}
	for _, e := range edges {
		id := targetIDForEdge(e, mode)
		if id != "" {
			idSet[id] = true
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	out := make(map[string]*relstore.Symbol, len(ids))
	for start := 0; start < len(ids); start += resolveBatchSize {
		end := start + resolveBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		symbols, err := relstore.GetSymbolsByStableIDs(ctx, db, projectID, ref, chunk)
		if err != nil {
			return nil, err
		}
		for _, s := range symbols {
			out[s.SymbolStableID] = s
		}
	}
	return out, nil
}
