package search

import (
	"testing"

	"github.com/signalridge/cruxe/internal/planner"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent_Symbol(t *testing.T) {
	assert.Equal(t, planner.IntentSymbol, ClassifyIntent("validate_token").Intent)
	assert.Equal(t, planner.IntentSymbol, ClassifyIntent("AuthHandler").Intent)
	assert.Equal(t, planner.IntentSymbol, ClassifyIntent("auth::jwt::validate").Intent)
}

func TestClassifyIntent_Path(t *testing.T) {
	assert.Equal(t, planner.IntentPath, ClassifyIntent("src/auth/handler.go").Intent)
	assert.Equal(t, planner.IntentPath, ClassifyIntent("handler.go").Intent)
}

func TestClassifyIntent_Error(t *testing.T) {
	assert.Equal(t, planner.IntentError, ClassifyIntent(`"connection refused"`).Intent)
	assert.Equal(t, planner.IntentError, ClassifyIntent("error: cannot find module").Intent)
	assert.Equal(t, planner.IntentError, ClassifyIntent("panic: runtime error at line 12").Intent)
}

func TestClassifyIntent_ApostropheDoesNotForceError(t *testing.T) {
	assert.Equal(t, planner.IntentNaturalLanguage, ClassifyIntent("where's rate limiting implemented").Intent)
}

func TestClassifyIntent_NaturalLanguage(t *testing.T) {
	assert.Equal(t, planner.IntentNaturalLanguage, ClassifyIntent("where is rate limiting implemented").Intent)
	assert.Equal(t, planner.IntentNaturalLanguage, ClassifyIntent("how does authentication work").Intent)
}

func TestClassifyIntent_ConfidenceAndEscalationHint(t *testing.T) {
	c := ClassifyIntent("abc")
	assert.Equal(t, planner.IntentSymbol, c.Intent)
	assert.Less(t, c.Confidence, 0.75)
	assert.NotEmpty(t, c.EscalationHint)

	c = ClassifyIntent("src/auth/handler.go")
	assert.Equal(t, planner.IntentPath, c.Intent)
	assert.Greater(t, c.Confidence, 0.9)
	assert.Empty(t, c.EscalationHint)
}

func TestClassifyIntentWithPolicy_CustomRuleOrderPrioritizesPathOverErrorPattern(t *testing.T) {
	policy := DefaultIntentPolicy()
	policy.RuleOrder = []IntentRule{RulePath, RuleErrorPattern, RuleSymbol, RuleNaturalLanguage}

	c := ClassifyIntentWithPolicy("panic: failure at src/lib.go:12", policy)
	assert.Equal(t, planner.IntentPath, c.Intent)
}

func TestClassifyIntentWithPolicy_CustomErrorPatternsAreRespected(t *testing.T) {
	policy := DefaultIntentPolicy()
	policy.ErrorPatterns = []string{"FAILED_ASSERT"}

	c := ClassifyIntentWithPolicy("FAILED_ASSERT in request validator", policy)
	assert.Equal(t, planner.IntentError, c.Intent)
}

func TestClassifyIntentWithPolicy_WrappedQuoteErrorLiteralCanBeDisabled(t *testing.T) {
	policy := DefaultIntentPolicy()
	policy.EnableWrappedQuotedErrorLiteral = false

	c := ClassifyIntentWithPolicy(`"connection refused"`, policy)
	assert.Equal(t, planner.IntentNaturalLanguage, c.Intent)
}
