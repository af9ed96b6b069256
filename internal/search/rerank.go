package search

import (
	"sort"
	"strings"
)

// rerank constants mirror the original scoring model's tuned
// multipliers/boosts, expressed as additive deltas over the blended
// RRF score so each rule's contribution can be accounted for
// independently (explain_ranking's scoring breakdown).
const (
	exactMatchBoost        = 0.5
	qualifiedNameBoost     = 0.3
	definitionBoost        = 0.2
	kindMatchBoost         = 0.15
	internalPathMultiplier = 1.3
	cmdPathMultiplier      = 0.6
	testFileMultiplier     = 0.5
)

// rerankPrecedence is the fixed order rerank rules are applied in,
// recorded verbatim into RankingReasons.Precedence for explain_ranking.
var rerankPrecedence = []string{
	"bm25", "exact_match", "qualified_name", "path_affinity",
	"definition_boost", "kind_match", "test_file_penalty",
}

// rerankResults applies the rule-based scoring adjustments to blended
// candidates and returns them sorted by final score descending. When
// debug is true, every result carries its full RankingReasons
// breakdown; otherwise Reasons is left nil to avoid the bookkeeping
// cost on the hot path.
func rerankResults(candidates []*candidate, queryText string, debug bool) []*Result {
	query := strings.TrimSpace(queryText)
	lowerQuery := strings.ToLower(query)

	out := make([]*Result, 0, len(candidates))
	for _, c := range candidates {
		result, reasons := rerankOne(c, query, lowerQuery)
		if debug {
			result.Reasons = reasons
		}
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func rerankOne(c *candidate, query, lowerQuery string) (*Result, *RankingReasons) {
	bm25 := c.blendedScore
	score := bm25

	accounting := []SignalContribution{{Rule: "bm25", RawValue: bm25, EffectiveValue: bm25}}

	exactMatch := 0.0
	if query != "" && strings.EqualFold(c.name, query) {
		exactMatch = exactMatchBoost
		score += exactMatch
	}
	accounting = append(accounting, SignalContribution{Rule: "exact_match", RawValue: exactMatchBoost, EffectiveValue: exactMatch})

	qualifiedName := 0.0
	if query != "" && c.qualifiedName != "" && strings.Contains(strings.ToLower(c.qualifiedName), lowerQuery) {
		qualifiedName = qualifiedNameBoost
		score += qualifiedName
	}
	accounting = append(accounting, SignalContribution{Rule: "qualified_name", RawValue: qualifiedNameBoost, EffectiveValue: qualifiedName})

	pathBefore := score
	if isImplementationPath(c.path) {
		score *= internalPathMultiplier
	}
	if isWrapperPath(c.path) {
		score *= cmdPathMultiplier
	}
	pathAffinity := score - pathBefore
	accounting = append(accounting, SignalContribution{Rule: "path_affinity", RawValue: pathAffinity, EffectiveValue: pathAffinity})

	definition := 0.0
	if c.symbolStableID != "" && c.symbolKind != "" && c.symbolKind != "snippet" && c.symbolKind != "file" {
		definition = definitionBoost
		score += definition
	}
	accounting = append(accounting, SignalContribution{Rule: "definition_boost", RawValue: definitionBoost, EffectiveValue: definition})

	kindMatch := 0.0
	if kw, ok := queryKindKeyword(lowerQuery); ok && strings.EqualFold(kw, c.symbolKind) {
		kindMatch = kindMatchBoost
		score += kindMatch
	}
	accounting = append(accounting, SignalContribution{Rule: "kind_match", RawValue: kindMatch, EffectiveValue: kindMatch})

	testPenaltyBefore := score
	if isTestFile(c.path) {
		score *= testFileMultiplier
	}
	testFilePenalty := score - testPenaltyBefore
	accounting = append(accounting, SignalContribution{Rule: "test_file_penalty", RawValue: testFilePenalty, EffectiveValue: testFilePenalty})

	result := &Result{
		Path:           c.path,
		LineStart:      c.lineStart,
		LineEnd:        c.lineEnd,
		SymbolStableID: c.symbolStableID,
		Name:           c.name,
		QualifiedName:  c.qualifiedName,
		Kind:           c.symbolKind,
		Language:       c.language,
		Content:        c.content,
		Score:          score,
		Provenance:     c.provenance,
		SourceLayer:    c.sourceLayer,
	}

	reasons := &RankingReasons{
		BM25:             bm25,
		ExactMatch:       exactMatch,
		QualifiedName:    qualifiedName,
		PathAffinity:     pathAffinity,
		DefinitionBoost:  definition,
		KindMatch:        kindMatch,
		TestFilePenalty:  testFilePenalty,
		FinalScore:       score,
		SignalAccounting: accounting,
		Precedence:       append([]string{}, rerankPrecedence...),
	}

	return result, reasons
}

// queryKindKeyword extracts a leading kind keyword from a two-word
// query ("function validate_token" -> "function"), mirroring the
// keyword list the intent classifier's symbol rule uses.
func queryKindKeyword(lowerQuery string) (string, bool) {
	words := strings.Fields(lowerQuery)
	if len(words) != 2 {
		return "", false
	}
	for _, kw := range DefaultSymbolKindKeywords {
		if kw == words[0] {
			return kw, true
		}
	}
	return "", false
}

// isTestFile reports whether path looks like a test file across the
// languages the indexer extracts: Go's _test.go suffix, JS/TS's
// .test./.spec. infix, and Python's test_*.py/*_test.py conventions,
// plus common test directories.
func isTestFile(path string) bool {
	if strings.HasSuffix(path, "_test.go") {
		return true
	}
	if strings.Contains(path, ".test.") || strings.Contains(path, ".spec.") {
		return true
	}
	fileName := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		fileName = path[idx+1:]
	}
	if strings.HasPrefix(fileName, "test_") && strings.HasSuffix(fileName, ".py") {
		return true
	}
	if strings.HasSuffix(fileName, "_test.py") {
		return true
	}
	if strings.Contains(path, "/test/") || strings.Contains(path, "/tests/") ||
		strings.HasPrefix(path, "test/") || strings.HasPrefix(path, "tests/") {
		return true
	}
	if strings.Contains(path, "/__tests__/") || strings.HasPrefix(path, "__tests__/") {
		return true
	}
	return false
}

func isImplementationPath(path string) bool {
	return strings.HasPrefix(path, "internal/") || strings.Contains(path, "/internal/")
}

func isWrapperPath(path string) bool {
	return strings.HasPrefix(path, "cmd/") || strings.Contains(path, "/cmd/")
}
