package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRerankResults_ExactNameMatchOutranksPartialMatch(t *testing.T) {
	exact := &candidate{mergeKey: "symbol:s1", name: "validate_token", symbolStableID: "s1", symbolKind: "function", blendedScore: 0.1}
	partial := &candidate{mergeKey: "symbol:s2", name: "validate_token_expiry", symbolStableID: "s2", symbolKind: "function", blendedScore: 0.1}

	results := rerankResults([]*candidate{partial, exact}, "validate_token", false)
	assert.Equal(t, "validate_token", results[0].Name)
	assert.Nil(t, results[0].Reasons)
}

func TestRerankResults_TestFilePenaltyDemotesMockOverImplementation(t *testing.T) {
	impl := &candidate{mergeKey: "a", path: "internal/auth/handler.go", name: "Search", blendedScore: 0.2}
	test := &candidate{mergeKey: "b", path: "internal/auth/handler_test.go", name: "Search", blendedScore: 0.22}

	results := rerankResults([]*candidate{test, impl}, "Search", false)
	assert.Equal(t, "internal/auth/handler.go", results[0].Path)
}

func TestRerankResults_InternalPathOutranksCmdWrapper(t *testing.T) {
	internal := &candidate{mergeKey: "a", path: "internal/search/engine.go", name: "Run", blendedScore: 0.1}
	cmd := &candidate{mergeKey: "b", path: "cmd/cruxe/main.go", name: "Run", blendedScore: 0.1}

	results := rerankResults([]*candidate{cmd, internal}, "Run", false)
	assert.Equal(t, "internal/search/engine.go", results[0].Path)
}

func TestRerankResults_DebugModePopulatesSignalAccountingAndPrecedence(t *testing.T) {
	c := &candidate{mergeKey: "a", path: "a.go", name: "Foo", blendedScore: 0.3}
	results := rerankResults([]*candidate{c}, "Foo", true)

	reasons := results[0].Reasons
	assert.NotNil(t, reasons)
	assert.Len(t, reasons.SignalAccounting, len(rerankPrecedence))
	assert.Equal(t, rerankPrecedence, reasons.Precedence)
	assert.Equal(t, results[0].Score, reasons.FinalScore)
}

func TestIsTestFile_RecognizesConventionsAcrossLanguages(t *testing.T) {
	assert.True(t, isTestFile("internal/search/engine_test.go"))
	assert.True(t, isTestFile("src/auth.test.ts"))
	assert.True(t, isTestFile("src/auth.spec.js"))
	assert.True(t, isTestFile("tests/test_auth.py"))
	assert.True(t, isTestFile("pkg/auth_test.py"))
	assert.False(t, isTestFile("internal/search/engine.go"))
}
