package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/signalridge/cruxe/internal/embed"
	"github.com/signalridge/cruxe/internal/followup"
	"github.com/signalridge/cruxe/internal/ftindex"
	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/planner"
	"github.com/signalridge/cruxe/internal/relstore"
	"github.com/signalridge/cruxe/internal/vectorstore"
)

// EngineConfig tunes the parts of the pipeline that aren't covered by
// the adaptive plan controller's own Config: the lexical/semantic
// blend ratio and the response byte budget.
type EngineConfig struct {
	SemanticRatio    float64
	MaxResponseBytes int
	RRFConstant      int
	Planner          planner.Config
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SemanticRatio:    0.4,
		MaxResponseBytes: 256 * 1024,
		RRFConstant:      defaultRRFConstant,
		Planner:          planner.DefaultConfig(),
	}
}

// Dependencies wires the engine to one project's storage: the base
// index/DB, an optional ref overlay, and an optional semantic provider.
type Dependencies struct {
	ProjectID    string
	Repo         string
	DefaultRef   string
	BaseIndex    *ftindex.IndexSet
	BaseDB       relstore.DBTX
	OverlayRef   string // empty when the queried ref has no overlay
	OverlayIndex *ftindex.IndexSet
	OverlayDB    relstore.DBTX
	Tombstones   map[string]bool // overlay-tombstoned base paths, keyed by path
	VectorStore  *vectorstore.Store
	Embedder     embed.Embedder // nil when no semantic provider is configured
	ModelVersion string
	Config       EngineConfig
}

// Engine executes search_code against one project's wired dependencies.
type Engine struct {
	deps Dependencies
}

// NewEngine builds an Engine over the given dependencies.
func NewEngine(deps Dependencies) *Engine {
	return &Engine{deps: deps}
}

// SearchCode runs the full hybrid search pipeline (spec.md §4.5).
func (e *Engine) SearchCode(ctx context.Context, req Request) (*Response, error) {
	classification := ClassifyIntent(req.Query)

	semanticAvailable := e.deps.Embedder != nil && e.deps.Embedder.Available(ctx)
	ctrl := planner.Select(planner.SelectionInput{
		Intent:                   classification.Intent,
		LexicalConfidence:        classification.Confidence,
		SemanticRuntimeAvailable: semanticAvailable,
		OverridePlan:             req.OverridePlan,
		Config:                   e.deps.Config.Planner,
	})
	budget := planner.PlanBudget(ctrl.Executed, req.Limit, e.deps.Config.Planner)

	ref := req.Ref
	if ref == "" {
		ref = e.deps.DefaultRef
	}

	baseResults, semanticMode, err := e.runLayer(ctx, layerInput{
		index:       e.deps.BaseIndex,
		db:          e.deps.BaseDB,
		ref:         e.deps.DefaultRef,
		sourceLayer: SourceLayerBase,
		plan:        ctrl.Executed,
		budget:      budget,
		req:         req,
	})
	if err != nil {
		return nil, fmt.Errorf("query base layer: %w", err)
	}

	results := baseResults
	if e.deps.OverlayIndex != nil && ref == e.deps.OverlayRef {
		overlayResults, overlayMode, err := e.runLayer(ctx, layerInput{
			index:       e.deps.OverlayIndex,
			db:          e.deps.OverlayDB,
			ref:         e.deps.OverlayRef,
			sourceLayer: SourceLayerOverlay,
			plan:        ctrl.Executed,
			budget:      budget,
			req:         req,
		})
		if err != nil {
			return nil, fmt.Errorf("query overlay layer: %w", err)
		}
		if overlayMode == SemanticModeUsed {
			semanticMode = SemanticModeUsed
		}
		results = mergeOverlay(baseResults, overlayResults, e.deps.Tombstones)
	}

	totalCandidates := len(results)
	assignResultIDs(results, e.deps.Repo, ref)

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}

	truncated, safetyLimitApplied := truncateToByteBudget(results, e.deps.Config.MaxResponseBytes)

	completeness := CompletenessComplete
	switch {
	case safetyLimitApplied:
		completeness = CompletenessTruncated
	case totalCandidates > len(truncated):
		completeness = CompletenessPartial
	}

	resp := &Response{
		Results:            truncated,
		Intent:             classification.Intent,
		IntentConfidence:   classification.Confidence,
		EscalationHint:     classification.EscalationHint,
		TotalCandidates:    totalCandidates,
		SelectedPlan:       ctrl.Selected,
		ExecutedPlan:       ctrl.Executed,
		SelectionReason:    ctrl.SelectionReason,
		Downgraded:         ctrl.Downgraded,
		DowngradeReason:    ctrl.DowngradeReason,
		SemanticMode:       semanticMode,
		ResultCompleteness: completeness,
		SafetyLimitApplied: safetyLimitApplied,
	}
	resp.SuggestedActions = suggestedActions(req, classification, resp)

	return resp, nil
}

type layerInput struct {
	index       *ftindex.IndexSet
	db          relstore.DBTX
	ref         string
	sourceLayer SourceLayer
	plan        planner.QueryPlan
	budget      planner.Budget
	req         Request
}

// runLayer executes the lexical branch, optional semantic branch, blend,
// and rerank for one index/DB layer (spec.md §4.5 steps 3-6).
func (e *Engine) runLayer(ctx context.Context, in layerInput) ([]*Result, SemanticMode, error) {
	if in.index == nil {
		return nil, SemanticModeSkipped, nil
	}

	hitsByKind := make(map[ftindex.Kind][]lexicalHit, len(ftindex.AllKinds))
	for _, kind := range ftindex.AllKinds {
		hits, err := queryLexical(in.index, kind, in.req.Query, in.ref, in.req.Language, in.budget.LexicalFanout)
		if err != nil {
			return nil, SemanticModeSkipped, err
		}
		hitsByKind[kind] = hits
	}
	rrfConstant := e.deps.Config.RRFConstant
	if rrfConstant <= 0 {
		rrfConstant = defaultRRFConstant
	}
	lexicalCandidates := fuseLexicalChannel(hitsByKind, rrfConstant)

	var semanticCandidates []*candidate
	semanticMode := SemanticModeSkipped
	if in.plan != planner.PlanLexicalFast {
		switch {
		case e.deps.Embedder == nil || !e.deps.Embedder.Available(ctx):
			semanticMode = SemanticModeUnavailable
		default:
			cands, err := e.runSemanticBranch(ctx, in)
			if err != nil {
				semanticMode = SemanticModeUnavailable
			} else {
				semanticCandidates = cands
				semanticMode = SemanticModeUsed
			}
		}
	}

	blended := blendChannels(lexicalCandidates, semanticCandidates, e.deps.Config.SemanticRatio, rrfConstant)
	for _, c := range blended {
		c.sourceLayer = in.sourceLayer
	}
	results := rerankResults(blended, in.req.Query, in.req.Debug)
	for _, r := range results {
		r.SourceLayer = in.sourceLayer
	}
	return results, semanticMode, nil
}

func (e *Engine) runSemanticBranch(ctx context.Context, in layerInput) ([]*candidate, error) {
	vec, err := e.deps.Embedder.Embed(ctx, in.req.Query)
	if err != nil {
		return nil, err
	}

	key := vectorstore.Key{ProjectID: e.deps.ProjectID, Ref: in.ref, ModelVersion: e.deps.ModelVersion}
	matches, err := e.deps.VectorStore.Search(key, vec, in.budget.SemanticLimit)
	if err != nil {
		return nil, err
	}

	candidates := make([]*candidate, 0, len(matches))
	for _, m := range matches {
		stableID, _, ok := splitCompositeID(m.ID)
		if !ok {
			continue
		}
		sym, err := relstore.GetSymbolByStableID(ctx, in.db, e.deps.ProjectID, in.ref, stableID)
		if err != nil || sym == nil {
			continue
		}
		candidates = append(candidates, &candidate{
			mergeKey:       "symbol:" + stableID,
			path:           sym.Path,
			lineStart:      sym.LineStart,
			lineEnd:        sym.LineEnd,
			symbolStableID: stableID,
			name:           sym.Name,
			qualifiedName:  sym.QualifiedName,
			symbolKind:     string(sym.Kind),
			content:        sym.Content,
			semanticScore:  float64(m.Score),
			sourceLayer:    in.sourceLayer,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].semanticScore > candidates[j].semanticScore
	})
	return candidates, nil
}

func splitCompositeID(id string) (symbolStableID, snippetHash string, ok bool) {
	parts := strings.SplitN(id, "\x1f", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func assignResultIDs(results []*Result, repo, ref string) {
	for _, r := range results {
		resultType := "snippet"
		if r.SymbolStableID != "" {
			resultType = "symbol"
		} else if r.Kind == "file" {
			resultType = "file"
		}
		r.ResultID = ids.ResultID(ids.ResultIDFields{
			ResultType:     resultType,
			Repo:           repo,
			Ref:            ref,
			Path:           r.Path,
			LineStart:      r.LineStart,
			LineEnd:        r.LineEnd,
			Kind:           r.Kind,
			Name:           r.Name,
			QualifiedName:  r.QualifiedName,
			Language:       r.Language,
			SymbolStableID: r.SymbolStableID,
		})
	}
}

// truncateToByteBudget packs results (in order) until the JSON-encoded
// size of the accumulated slice would exceed maxBytes, dropping the
// rest (spec.md §4.5 step 9).
func truncateToByteBudget(results []*Result, maxBytes int) ([]*Result, bool) {
	if maxBytes <= 0 {
		return results, false
	}

	out := make([]*Result, 0, len(results))
	size := 2 // "[]"
	for _, r := range results {
		encoded, err := json.Marshal(r)
		if err != nil {
			continue
		}
		delta := len(encoded)
		if len(out) > 0 {
			delta++ // comma
		}
		if size+delta > maxBytes {
			return out, len(out) < len(results)
		}
		size += delta
		out = append(out, r)
	}
	return out, false
}

// suggestedActions implements the deterministic fallback of spec.md
// §4.5 step 10, delegating complementary-tool proposals to the shared
// followup package.
func suggestedActions(req Request, classification Classification, resp *Response) []string {
	var actions []string

	if len(resp.Results) > 0 && resp.Results[0].Name != "" {
		actions = append(actions, fmt.Sprintf("locate_symbol(name=%q)", resp.Results[0].Name))
	}
	if len(resp.Results) > 3 {
		actions = append(actions, "search_code with a smaller limit for a tighter result set")
	}

	topScore := 0.0
	if len(resp.Results) > 0 {
		topScore = resp.Results[0].Score
	}

	fu := followup.Suggest(followup.Request{
		PreviousQueryTool:   "search_code",
		PreviousQueryParams: map[string]any{"query": req.Query},
		PreviousResults: map[string]any{
			"query_intent":     string(classification.Intent),
			"top_score":        topScore,
			"total_candidates": float64(resp.TotalCandidates),
		},
		ConfidenceThreshold: 0.65,
	})
	for _, s := range fu.Suggestions {
		actions = append(actions, formatSuggestion(s))
	}

	return actions
}

func formatSuggestion(s followup.Suggestion) string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, s.Params[k]))
	}
	return fmt.Sprintf("%s(%s)", s.Tool, strings.Join(parts, ", "))
}
