// Package search implements hybrid search_code: intent classification,
// adaptive plan selection, a lexical branch over the full-text indices,
// an optional semantic branch over the vector store, RRF blending,
// rule-based reranking, overlay merge, and deterministic result IDs.
package search

import (
	"github.com/signalridge/cruxe/internal/planner"
)

// Provenance marks which channel(s) contributed a merged result.
type Provenance string

const (
	ProvenanceLexical  Provenance = "lexical"
	ProvenanceSemantic Provenance = "semantic"
	ProvenanceHybrid   Provenance = "hybrid"
)

// SourceLayer marks which index layer a merged result came from when an
// overlay exists for the queried ref.
type SourceLayer string

const (
	SourceLayerBase    SourceLayer = "base"
	SourceLayerOverlay SourceLayer = "overlay"
)

// Completeness reports whether a response was truncated and why.
type Completeness string

const (
	CompletenessComplete  Completeness = "complete"
	CompletenessPartial   Completeness = "partial"
	CompletenessTruncated Completeness = "truncated"
)

// Request is one search_code invocation's validated arguments.
type Request struct {
	Query        string
	Ref          string
	Language     string
	Scopes       []string
	Limit        int
	Debug        bool
	OverridePlan string
}

// Result is one merged, reranked hit returned to the caller.
type Result struct {
	ResultID       string
	Path           string
	LineStart      int
	LineEnd        int
	SymbolStableID string // empty for snippet/file-level results
	Name           string
	QualifiedName  string
	Kind           string // symbol kind, or "snippet"/"file"
	Language       string
	Content        string
	Score          float64
	Provenance     Provenance
	SourceLayer    SourceLayer
	Reasons        *RankingReasons // nil unless the request asked for debug detail
}

// SignalContribution is one named rerank rule's raw and effective
// contribution to a result's final score — the accounting that backs
// explain_ranking's scoring breakdown.
type SignalContribution struct {
	Rule           string
	RawValue       float64
	EffectiveValue float64
}

// RankingReasons is the full scoring breakdown for one result: the
// per-rule contributions plus the order rules were applied in.
type RankingReasons struct {
	BM25             float64
	ExactMatch       float64
	QualifiedName    float64
	PathAffinity     float64
	DefinitionBoost  float64
	KindMatch        float64
	TestFilePenalty  float64
	FinalScore       float64
	SignalAccounting []SignalContribution
	Precedence       []string
}

// SemanticMode reports how the semantic branch of one query behaved.
type SemanticMode string

const (
	SemanticModeUsed        SemanticMode = "used"
	SemanticModeSkipped     SemanticMode = "skipped" // plan didn't call for it
	SemanticModeUnavailable SemanticMode = "unavailable"
)

// Response is the full search_code result: ranked hits plus the
// telemetry the protocol's response-metadata contract requires.
type Response struct {
	Results            []*Result
	Intent             planner.Intent
	IntentConfidence   float64
	EscalationHint     string
	TotalCandidates    int
	SuggestedActions   []string
	SelectedPlan       planner.QueryPlan
	ExecutedPlan       planner.QueryPlan
	SelectionReason    planner.SelectionReason
	Downgraded         bool
	DowngradeReason    planner.DowngradeReason
	SemanticMode       SemanticMode
	ResultCompleteness Completeness
	SafetyLimitApplied bool
}
