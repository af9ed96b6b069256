package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_OverrideIsPreferredWhenAllowed(t *testing.T) {
	// When: an override names a valid plan and the config allows overrides
	c := Select(SelectionInput{
		Intent:                   IntentNaturalLanguage,
		LexicalConfidence:        0.5,
		SemanticRuntimeAvailable: true,
		OverridePlan:             "lexical_fast",
		Config:                   DefaultConfig(),
	})

	// Then: the override wins regardless of the rule table
	assert.Equal(t, PlanLexicalFast, c.Selected)
	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.Equal(t, ReasonOverride, c.SelectionReason)
	assert.False(t, c.Downgraded)
}

func TestSelect_SemanticUnavailableFallsBackToHybridForNaturalLanguage(t *testing.T) {
	// Given: no override, natural language intent, low confidence, no semantic runtime
	c := Select(SelectionInput{
		Intent:                   IntentNaturalLanguage,
		LexicalConfidence:        0.1,
		SemanticRuntimeAvailable: false,
		Config:                   DefaultConfig(),
	})

	// Then: natural language falls back to hybrid, not lexical, when semantic is down
	assert.Equal(t, PlanHybridStandard, c.Executed)
	assert.Equal(t, ReasonSemanticUnavailable, c.SelectionReason)
}

func TestSelect_SemanticUnavailableForcesLexicalOnPreciseIntents(t *testing.T) {
	// Given: a symbol-lookup intent with no semantic runtime
	c := Select(SelectionInput{
		Intent:                   IntentSymbol,
		LexicalConfidence:        0.4,
		SemanticRuntimeAvailable: false,
		Config:                   DefaultConfig(),
	})

	// Then: precise intents always run lexical fast without semantic
	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.Equal(t, ReasonSemanticUnavailable, c.SelectionReason)
}

func TestSelect_HighConfidenceSymbolRunsLexicalFast(t *testing.T) {
	// Given: a symbol intent with confidence above the high threshold
	c := Select(SelectionInput{
		Intent:                   IntentSymbol,
		LexicalConfidence:        0.9,
		SemanticRuntimeAvailable: true,
		Config:                   DefaultConfig(),
	})

	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.Equal(t, ReasonHighLexicalConfidence, c.SelectionReason)
}

func TestSelect_LowConfidenceNaturalLanguageGoesSemanticDeep(t *testing.T) {
	// Given: natural language with confidence below the low threshold and semantic available
	c := Select(SelectionInput{
		Intent:                   IntentNaturalLanguage,
		LexicalConfidence:        0.2,
		SemanticRuntimeAvailable: true,
		Config:                   DefaultConfig(),
	})

	assert.Equal(t, PlanSemanticDeep, c.Executed)
	assert.Equal(t, ReasonLowLexicalConfidenceExplore, c.SelectionReason)
}

func TestSelect_MidConfidenceNaturalLanguageDefaultsToHybrid(t *testing.T) {
	// Given: natural language confidence between the two thresholds
	c := Select(SelectionInput{
		Intent:                   IntentNaturalLanguage,
		LexicalConfidence:        0.72,
		SemanticRuntimeAvailable: true,
		Config:                   DefaultConfig(),
	})

	assert.Equal(t, PlanHybridStandard, c.Executed)
	assert.Equal(t, ReasonDefaultHybrid, c.SelectionReason)
}

func TestSelect_OverrideDeepCollapsesToLexicalFastInOneCallWhenSemanticUnavailable(t *testing.T) {
	// Given: an override forcing semantic_deep, but no semantic runtime
	c := Select(SelectionInput{
		Intent:                   IntentNaturalLanguage,
		LexicalConfidence:        0.5,
		SemanticRuntimeAvailable: false,
		OverridePlan:             "semantic_deep",
		Config:                   DefaultConfig(),
	})

	// Then: one Select call applies both one-way downgrade steps
	assert.Equal(t, PlanSemanticDeep, c.Selected)
	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.True(t, c.Downgraded)
	assert.Equal(t, DowngradeSemanticUnavailable, c.DowngradeReason)
}

func TestSelect_DisabledConfigFallsBackToHybrid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	c := Select(SelectionInput{
		Intent:                   IntentSymbol,
		LexicalConfidence:        0.95,
		SemanticRuntimeAvailable: true,
		Config:                   cfg,
	})

	assert.Equal(t, PlanHybridStandard, c.Executed)
	assert.Equal(t, ReasonDisabledFallback, c.SelectionReason)
}

func TestPlanBudget_ScalesByPlan(t *testing.T) {
	cfg := DefaultConfig()

	lexical := PlanBudget(PlanLexicalFast, 20, cfg)
	hybrid := PlanBudget(PlanHybridStandard, 20, cfg)
	deep := PlanBudget(PlanSemanticDeep, 20, cfg)

	// lexical_fast never touches the semantic side of the budget
	assert.Equal(t, 0, lexical.SemanticLimit)
	assert.Equal(t, 0, lexical.SemanticFanout)

	// hybrid commits a nonzero semantic budget
	assert.Greater(t, hybrid.SemanticLimit, 0)

	// deep fans out at least as wide as hybrid on both axes
	assert.GreaterOrEqual(t, deep.SemanticLimit, hybrid.SemanticLimit)
	assert.GreaterOrEqual(t, deep.LexicalFanout, hybrid.LexicalFanout)
}

func TestPlanBudget_ClampsAtFloorsAndCeilings(t *testing.T) {
	cfg := DefaultConfig()

	tiny := PlanBudget(PlanHybridStandard, 1, cfg)
	assert.GreaterOrEqual(t, tiny.SemanticLimit, 20)
	assert.GreaterOrEqual(t, tiny.LexicalFanout, 40)
	assert.GreaterOrEqual(t, tiny.SemanticFanout, 30)

	huge := PlanBudget(PlanSemanticDeep, 100000, cfg)
	assert.LessOrEqual(t, huge.SemanticLimit, 1000)
	assert.LessOrEqual(t, huge.LexicalFanout, 2000)
	assert.LessOrEqual(t, huge.SemanticFanout, 1000)
}

func TestController_EnsureLatencyBudgetDowngradesOneWay(t *testing.T) {
	c := &Controller{Selected: PlanSemanticDeep, Executed: PlanSemanticDeep, SelectionReason: ReasonDefaultHybrid}

	c.EnsureLatencyBudget(500, Budget{LatencyBudgetMs: 100})

	assert.Equal(t, PlanHybridStandard, c.Executed)
	assert.True(t, c.Downgraded)
	require.NotEmpty(t, c.DowngradeReason)
	assert.Equal(t, DowngradeTimeoutGuard, c.DowngradeReason)
}

func TestController_DowngradeKeepsFirstReason(t *testing.T) {
	c := &Controller{Selected: PlanSemanticDeep, Executed: PlanSemanticDeep}

	c.Downgrade(DowngradeSemanticUnavailable)
	c.Downgrade(DowngradeBudgetExhausted)

	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.Equal(t, DowngradeSemanticUnavailable, c.DowngradeReason)
}

func TestController_DowngradeAtLexicalFastIsNoOp(t *testing.T) {
	c := &Controller{Selected: PlanLexicalFast, Executed: PlanLexicalFast}

	c.Downgrade(DowngradeConfigForced)

	assert.Equal(t, PlanLexicalFast, c.Executed)
	assert.False(t, c.Downgraded)
}

func TestCounters_TrackSelectionAndDowngrade(t *testing.T) {
	ResetCountersForTest()

	Select(SelectionInput{
		Intent:                   IntentSymbol,
		LexicalConfidence:        0.95,
		SemanticRuntimeAvailable: true,
		Config:                   DefaultConfig(),
	})

	c := &Controller{Selected: PlanSemanticDeep, Executed: PlanSemanticDeep}
	c.Downgrade(DowngradeBudgetExhausted)

	snap := SnapshotCounters()
	assert.Equal(t, uint64(1), snap.SelectedLexicalFast)
	assert.Equal(t, uint64(1), snap.DowngradeBudgetExhausted)
}
