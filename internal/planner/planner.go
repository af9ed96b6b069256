// Package planner is the adaptive plan controller: it picks one of
// three execution plans for a search query based on intent and lexical
// confidence, enforces a one-way downgrade when the semantic runtime is
// unavailable or a latency budget is exceeded, and exposes the derived
// per-plan fanout/limit budget along with process-wide selection and
// downgrade counters for telemetry.
package planner

import (
	"strings"
	"sync/atomic"
)

// Intent classifies what a search query is after: a symbol/path/error
// lookup favors precise lexical matching, natural language favors
// semantic search. Defined here rather than imported from the search
// package so search can depend on planner without a cycle.
type Intent string

const (
	IntentSymbol          Intent = "symbol"
	IntentPath            Intent = "path"
	IntentError           Intent = "error"
	IntentNaturalLanguage Intent = "natural_language"
)

// QueryPlan is one of the three execution strategies search_code can run.
type QueryPlan string

const (
	PlanLexicalFast    QueryPlan = "lexical_fast"
	PlanHybridStandard QueryPlan = "hybrid_standard"
	PlanSemanticDeep   QueryPlan = "semantic_deep"
)

// ParsePlan accepts the canonical names plus the short aliases the
// override argument may carry.
func ParsePlan(raw string) (QueryPlan, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lexical_fast", "fast", "lexical":
		return PlanLexicalFast, true
	case "hybrid_standard", "standard", "hybrid":
		return PlanHybridStandard, true
	case "semantic_deep", "deep", "semantic":
		return PlanSemanticDeep, true
	default:
		return "", false
	}
}

// SelectionReason explains why a plan was chosen.
type SelectionReason string

const (
	ReasonOverride                     SelectionReason = "override"
	ReasonSemanticUnavailable          SelectionReason = "semantic_unavailable_rule"
	ReasonHighLexicalConfidence        SelectionReason = "high_confidence_lexical_rule"
	ReasonLowLexicalConfidenceExplore  SelectionReason = "low_confidence_exploratory_rule"
	ReasonDefaultHybrid                SelectionReason = "default_hybrid_rule"
	ReasonDisabledFallback             SelectionReason = "adaptive_plan_disabled"
)

// DowngradeReason explains why a plan was downgraded from what was selected.
type DowngradeReason string

const (
	DowngradeSemanticUnavailable DowngradeReason = "semantic_unavailable"
	DowngradeBudgetExhausted     DowngradeReason = "budget_exhausted"
	DowngradeTimeoutGuard        DowngradeReason = "timeout_guard"
	DowngradeConfigForced        DowngradeReason = "config_forced"
)

// Config mirrors the tunables the adaptive controller reads from search
// configuration: confidence thresholds and per-plan fanout multipliers.
type Config struct {
	Enabled                 bool
	AllowOverride           bool
	HighConfidenceThreshold float64
	LowConfidenceThreshold  float64

	LexicalFastLexicalFanoutMultiplier int
	LexicalFastLatencyBudgetMs         int64

	HybridStandardSemanticLimitMultiplier  int
	HybridStandardLexicalFanoutMultiplier  int
	HybridStandardSemanticFanoutMultiplier int
	HybridStandardLatencyBudgetMs          int64

	SemanticDeepSemanticLimitMultiplier  int
	SemanticDeepLexicalFanoutMultiplier  int
	SemanticDeepSemanticFanoutMultiplier int
	SemanticDeepLatencyBudgetMs          int64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		AllowOverride:           true,
		HighConfidenceThreshold: 0.85,
		LowConfidenceThreshold:  0.35,

		LexicalFastLexicalFanoutMultiplier: 4,
		LexicalFastLatencyBudgetMs:         300,

		HybridStandardSemanticLimitMultiplier:  3,
		HybridStandardLexicalFanoutMultiplier:  6,
		HybridStandardSemanticFanoutMultiplier: 3,
		HybridStandardLatencyBudgetMs:          900,

		SemanticDeepSemanticLimitMultiplier:  6,
		SemanticDeepLexicalFanoutMultiplier:  8,
		SemanticDeepSemanticFanoutMultiplier: 6,
		SemanticDeepLatencyBudgetMs:          2500,
	}
}

// SelectionInput is everything PlanController.Select needs to choose a plan.
type SelectionInput struct {
	Intent                   Intent
	LexicalConfidence        float64
	SemanticRuntimeAvailable bool
	OverridePlan             string // "" means no override requested
	Config                   Config
}

// Budget is the per-plan fanout/limit budget a selected plan expands into.
type Budget struct {
	SemanticLimit   int
	LexicalFanout   int
	SemanticFanout  int
	LatencyBudgetMs int64
}

// Controller carries the outcome of one Select call plus any subsequent
// downgrades applied during execution.
type Controller struct {
	Selected         QueryPlan
	Executed         QueryPlan
	SelectionReason  SelectionReason
	Downgraded       bool
	DowngradeReason  DowngradeReason // zero value when Downgraded is false
}

// Select picks a plan for one query. Override only applies when
// config.AllowOverride is set and parses to a known plan; otherwise rule
// based selection runs. A selected semantic_deep plan downgrades one
// step if the semantic runtime is unavailable; an override that forced
// deep in that situation is allowed a second one-way downgrade down to
// lexical_fast.
func Select(input SelectionInput) *Controller {
	cfg := input.Config

	var selected QueryPlan
	var reason SelectionReason

	switch {
	case !cfg.Enabled:
		selected = PlanHybridStandard
		reason = ReasonDisabledFallback
	case cfg.AllowOverride && input.OverridePlan != "":
		if parsed, ok := ParsePlan(input.OverridePlan); ok {
			selected = parsed
			reason = ReasonOverride
		} else {
			selected = selectWithoutOverride(input)
			reason = selectReasonWithoutOverride(input)
		}
	default:
		selected = selectWithoutOverride(input)
		reason = selectReasonWithoutOverride(input)
	}

	c := &Controller{Selected: selected, Executed: selected, SelectionReason: reason}

	// One-way guard: a selected deep plan cannot execute without the
	// semantic runtime.
	if c.Executed == PlanSemanticDeep && !input.SemanticRuntimeAvailable {
		c.Downgrade(DowngradeSemanticUnavailable)
	}
	// An override that forced hybrid (deep downgraded to hybrid above, or
	// directly overridden to hybrid) still can't run semantic without the
	// runtime; allow the second one-way step to lexical_fast.
	if c.Executed == PlanHybridStandard && !input.SemanticRuntimeAvailable && reason == ReasonOverride {
		c.Downgrade(DowngradeSemanticUnavailable)
	}

	recordSelectedPlan(c.Selected)
	return c
}

func selectWithoutOverride(input SelectionInput) QueryPlan {
	cfg := input.Config
	if !input.SemanticRuntimeAvailable {
		switch input.Intent {
		case IntentSymbol, IntentPath, IntentError:
			return PlanLexicalFast
		default:
			return PlanHybridStandard
		}
	}

	if isPrecise(input.Intent) && input.LexicalConfidence >= cfg.HighConfidenceThreshold {
		return PlanLexicalFast
	}
	if input.Intent == IntentNaturalLanguage && input.LexicalConfidence < cfg.LowConfidenceThreshold {
		return PlanSemanticDeep
	}
	return PlanHybridStandard
}

func selectReasonWithoutOverride(input SelectionInput) SelectionReason {
	cfg := input.Config
	if !input.SemanticRuntimeAvailable {
		return ReasonSemanticUnavailable
	}
	if isPrecise(input.Intent) && input.LexicalConfidence >= cfg.HighConfidenceThreshold {
		return ReasonHighLexicalConfidence
	}
	if input.Intent == IntentNaturalLanguage && input.LexicalConfidence < cfg.LowConfidenceThreshold {
		return ReasonLowLexicalConfidenceExplore
	}
	return ReasonDefaultHybrid
}

func isPrecise(k Intent) bool {
	return k == IntentSymbol || k == IntentPath || k == IntentError
}

// Downgrade steps the executed plan down one tier: semantic_deep ->
// hybrid_standard -> lexical_fast. lexical_fast has nowhere left to go.
// The first downgrade reason recorded is kept even if Downgrade is
// called again.
func (c *Controller) Downgrade(reason DowngradeReason) {
	var next QueryPlan
	switch c.Executed {
	case PlanSemanticDeep:
		next = PlanHybridStandard
	case PlanHybridStandard:
		next = PlanLexicalFast
	default:
		next = PlanLexicalFast
	}
	if next == c.Executed {
		return
	}
	c.Executed = next
	c.Downgraded = true
	if c.DowngradeReason == "" {
		c.DowngradeReason = reason
	}
	recordDowngradeReason(reason)
}

// EnsureLatencyBudget downgrades the plan one step if elapsedMs exceeds
// the plan's latency budget.
func (c *Controller) EnsureLatencyBudget(elapsedMs int64, budget Budget) {
	if elapsedMs > budget.LatencyBudgetMs {
		c.Downgrade(DowngradeTimeoutGuard)
	}
}

// PlanBudget derives a plan's fanout/limit budget, scaled by the
// caller's requested result limit and clamped to sane floors/ceilings
// so a limit of 1 still fans out enough candidates to rank meaningfully.
func PlanBudget(plan QueryPlan, limit int, cfg Config) Budget {
	var semanticLimitMul, lexicalMul, semanticMul int
	var latencyMs int64

	switch plan {
	case PlanLexicalFast:
		lexicalMul = cfg.LexicalFastLexicalFanoutMultiplier
		latencyMs = cfg.LexicalFastLatencyBudgetMs
	case PlanSemanticDeep:
		semanticLimitMul = cfg.SemanticDeepSemanticLimitMultiplier
		lexicalMul = cfg.SemanticDeepLexicalFanoutMultiplier
		semanticMul = cfg.SemanticDeepSemanticFanoutMultiplier
		latencyMs = cfg.SemanticDeepLatencyBudgetMs
	default: // hybrid_standard
		semanticLimitMul = cfg.HybridStandardSemanticLimitMultiplier
		lexicalMul = cfg.HybridStandardLexicalFanoutMultiplier
		semanticMul = cfg.HybridStandardSemanticFanoutMultiplier
		latencyMs = cfg.HybridStandardLatencyBudgetMs
	}

	semanticLimit := clamp(limit*semanticLimitMul, 20, 1000)
	lexicalFanout := clamp(limit*lexicalMul, 40, 2000)
	semanticFanout := clamp(limit*semanticMul, 30, 1000)

	if plan == PlanLexicalFast {
		semanticLimit = 0
		semanticFanout = 0
	}

	return Budget{
		SemanticLimit:   semanticLimit,
		LexicalFanout:   lexicalFanout,
		SemanticFanout:  semanticFanout,
		LatencyBudgetMs: latencyMs,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Counters is a point-in-time snapshot of process-wide plan selection
// and downgrade counts, read through SnapshotCounters. No MCP tool
// reports them.
type Counters struct {
	SelectedLexicalFast           uint64
	SelectedHybridStandard        uint64
	SelectedSemanticDeep          uint64
	DowngradeSemanticUnavailable  uint64
	DowngradeBudgetExhausted      uint64
	DowngradeTimeoutGuard         uint64
	DowngradeConfigForced         uint64
}

var (
	selectedLexicalFast    atomic.Uint64
	selectedHybridStandard atomic.Uint64
	selectedSemanticDeep   atomic.Uint64

	downgradeSemanticUnavailable atomic.Uint64
	downgradeBudgetExhausted     atomic.Uint64
	downgradeTimeoutGuard        atomic.Uint64
	downgradeConfigForced        atomic.Uint64
)

func recordSelectedPlan(plan QueryPlan) {
	switch plan {
	case PlanLexicalFast:
		selectedLexicalFast.Add(1)
	case PlanHybridStandard:
		selectedHybridStandard.Add(1)
	case PlanSemanticDeep:
		selectedSemanticDeep.Add(1)
	}
}

func recordDowngradeReason(reason DowngradeReason) {
	switch reason {
	case DowngradeSemanticUnavailable:
		downgradeSemanticUnavailable.Add(1)
	case DowngradeBudgetExhausted:
		downgradeBudgetExhausted.Add(1)
	case DowngradeTimeoutGuard:
		downgradeTimeoutGuard.Add(1)
	case DowngradeConfigForced:
		downgradeConfigForced.Add(1)
	}
}

// SnapshotCounters reads the current process-wide counters.
func SnapshotCounters() Counters {
	return Counters{
		SelectedLexicalFast:          selectedLexicalFast.Load(),
		SelectedHybridStandard:       selectedHybridStandard.Load(),
		SelectedSemanticDeep:         selectedSemanticDeep.Load(),
		DowngradeSemanticUnavailable: downgradeSemanticUnavailable.Load(),
		DowngradeBudgetExhausted:     downgradeBudgetExhausted.Load(),
		DowngradeTimeoutGuard:        downgradeTimeoutGuard.Load(),
		DowngradeConfigForced:        downgradeConfigForced.Load(),
	}
}

// ResetCountersForTest zeroes every counter; test-only helper kept in
// the main file because the counters themselves are package-private.
func ResetCountersForTest() {
	selectedLexicalFast.Store(0)
	selectedHybridStandard.Store(0)
	selectedSemanticDeep.Store(0)
	downgradeSemanticUnavailable.Store(0)
	downgradeBudgetExhausted.Store(0)
	downgradeTimeoutGuard.Store(0)
	downgradeConfigForced.Store(0)
}
