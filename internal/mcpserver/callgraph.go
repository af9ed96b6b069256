package mcpserver

import (
	"context"

	"github.com/signalridge/cruxe/internal/callgraph"
	"github.com/signalridge/cruxe/internal/cerrors"
)

// GetCallGraphInput is get_call_graph's validated arguments.
type GetCallGraphInput struct {
	SymbolName string
	Path       string
	Ref        string
	Direction  string
	Depth      int
	Limit      int
}

// GetCallGraphOutput wraps callgraph.Result for the protocol layer.
type GetCallGraphOutput = callgraph.Result

// GetCallGraph resolves the root symbol and traverses its call graph —
// a thin validation wrapper around the already-complete callgraph
// package, which does the bidirectional bounded BFS and bulk target
// resolution itself.
func GetCallGraph(ctx context.Context, s *Stores, in GetCallGraphInput) (*GetCallGraphOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := s.requireIndexed(ctx, ref); err != nil {
		return nil, Metadata{}, err
	}

	direction, ok := callgraph.ParseDirection(in.Direction)
	if !ok {
		return nil, Metadata{}, cerrors.New(cerrors.InvalidInput, "direction must be callers, callees, or both", nil).
			WithDetail("direction", in.Direction)
	}
	depth := callgraph.ClampDepth(in.Depth)

	result, err := callgraph.GetCallGraph(ctx, s.DB, s.ProjectID, ref, callgraph.Request{
		SymbolName: in.SymbolName,
		Path:       in.Path,
		Direction:  direction,
		Depth:      depth,
		Limit:      in.Limit,
	})
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	return result, meta, nil
}
