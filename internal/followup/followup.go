// Package followup implements suggest_followup_queries: given a prior
// tool call and its result, decide whether confidence was low and, if
// so, propose a complementary tool call (search_code, locate_symbol,
// get_call_graph) likely to recover better results.
package followup

import (
	"fmt"
	"sort"
	"strings"
)

// Request describes the prior tool invocation to analyze.
type Request struct {
	PreviousQueryTool   string
	PreviousQueryParams map[string]any
	PreviousResults     map[string]any
	ConfidenceThreshold float64
}

// Suggestion is one proposed follow-up tool call.
type Suggestion struct {
	Tool   string
	Params map[string]any
	Reason string
}

// Analysis summarizes why a result was judged low- or sufficient-confidence.
type Analysis struct {
	PreviousConfidence  string // "low" or "sufficient"
	TopScore            float64
	Threshold           float64
	ExtractedIdentifiers []string
}

// Result is the full suggest_followup_queries response.
type Result struct {
	Suggestions []Suggestion
	Analysis    Analysis
	Reason      string // set only when no suggestions were produced because confidence was sufficient
}

var identifierStopwords = map[string]bool{
	"where": true, "what": true, "when": true, "which": true, "with": true,
	"without": true, "from": true, "into": true, "implemented": true,
	"implementation": true, "function": true, "method": true, "class": true,
	"module": true, "code": true, "the": true, "and": true, "for": true, "that": true,
}

// Suggest runs the confidence check and, when warranted, produces
// complementary-tool suggestions (spec.md §4.5 step 10 and the
// standalone suggest_followup_queries tool).
func Suggest(req Request) Result {
	threshold := clamp01(req.ConfidenceThreshold)
	topScore := floatField(req.PreviousResults, "top_score")
	totalCandidates := extractTotalCandidates(req.PreviousResults)
	totalEdges := extractTotalEdges(req.PreviousResults)
	queryIntent := stringField(req.PreviousResults, "query_intent")
	queryText, hasQueryText := extractQueryText(req.PreviousQueryParams)

	var identifiers []string
	if hasQueryText {
		identifiers = extractIdentifiers(queryText)
	}

	lowConfidence := false
	switch req.PreviousQueryTool {
	case "get_call_graph":
		lowConfidence = totalEdges == 0
	default:
		lowConfidence = totalCandidates == 0 || topScore < threshold
	}

	analysis := Analysis{
		TopScore:             topScore,
		Threshold:            threshold,
		ExtractedIdentifiers: identifiers,
	}
	if lowConfidence {
		analysis.PreviousConfidence = "low"
	} else {
		analysis.PreviousConfidence = "sufficient"
	}

	if !lowConfidence {
		return Result{Analysis: analysis, Reason: "results are above confidence threshold"}
	}

	b := &builder{seen: map[string]bool{}}

	switch req.PreviousQueryTool {
	case "search_code":
		if len(identifiers) > 0 {
			identifier := identifiers[0]
			b.add("locate_symbol", map[string]any{"name": identifier, "limit": 10},
				fmt.Sprintf("Extracted identifier '%s' from prior query; symbol lookup is likely more precise.", identifier))
			b.add("get_call_graph", map[string]any{
				"symbol_name": identifier, "direction": "both", "depth": 1, "limit": 20,
			}, "Call graph traversal can reveal relationships around the likely target symbol.")
		}
		if queryIntent == "natural_language" && hasQueryText {
			fallback := queryText
			if len(identifiers) > 0 {
				fallback = strings.Join(identifiers, " ")
			}
			b.add("search_code", map[string]any{"query": fallback},
				"Rewrite the natural-language query into identifiers to improve lexical recall.")
		}
	case "locate_symbol":
		if totalCandidates == 0 {
			name := firstNonEmpty(stringField(req.PreviousQueryParams, "name"), stringField(req.PreviousQueryParams, "symbol_name"))
			if strings.TrimSpace(name) != "" {
				b.add("search_code", map[string]any{"query": name},
					"No exact symbol match found; broaden search to raw code text.")
				b.add("get_call_graph", map[string]any{
					"symbol_name": name, "direction": "both", "depth": 1, "limit": 20,
				}, "If the symbol exists under a variant path/name, call graph lookup may still surface adjacent symbols.")
			}
		}
	case "get_call_graph":
		if totalEdges == 0 {
			name := firstNonEmpty(stringField(req.PreviousQueryParams, "symbol_name"), stringField(req.PreviousQueryParams, "name"))
			if strings.TrimSpace(name) != "" {
				b.add("locate_symbol", map[string]any{"name": name, "limit": 10},
					"Call graph returned no edges; first verify the symbol resolves in this ref.")
				b.add("search_code", map[string]any{"query": name},
					"No graph edges found; broaden lookup to alternate names or nearby call sites.")
			}
		}
	default:
		if hasQueryText {
			b.add("search_code", map[string]any{"query": queryText},
				"Fallback to direct code search to recover from low-confidence results.")
		}
	}

	if len(b.suggestions) == 0 {
		b.add("search_code", map[string]any{"query": queryText},
			"Fallback: retry with direct search_code to gather broader candidate context.")
	}

	return Result{Suggestions: b.suggestions, Analysis: analysis}
}

type builder struct {
	suggestions []Suggestion
	seen        map[string]bool
}

func (b *builder) add(tool string, params map[string]any, reason string) {
	key := tool + ":" + paramsKey(params)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.suggestions = append(b.suggestions, Suggestion{Tool: tool, Params: params, Reason: reason})
}

// paramsKey renders params deterministically (sorted keys) so dedup
// doesn't depend on map iteration order.
func paramsKey(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, params[k])
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func sliceLen(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case []any:
		return len(v)
	default:
		return 0
	}
}

func extractTotalCandidates(results map[string]any) int {
	if n, ok := intField(results, "total_candidates"); ok {
		return n
	}
	return sliceLen(results, "results")
}

func extractTotalEdges(results map[string]any) int {
	if n, ok := intField(results, "total_edges"); ok {
		return n
	}
	return sliceLen(results, "callers") + sliceLen(results, "callees")
}

func extractQueryText(params map[string]any) (string, bool) {
	for _, key := range []string{"query", "name", "symbol_name"} {
		if s, ok := params[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// extractIdentifiers tokenizes input into lowercase alnum/underscore
// runs, keeping tokens of length >= 3 that contain a letter, aren't
// stopwords, and haven't been seen before.
func extractIdentifiers(input string) []string {
	seen := map[string]bool{}
	var identifiers []string
	var token strings.Builder

	flush := func() {
		defer token.Reset()
		word := token.String()
		if len(word) < 3 || identifierStopwords[word] || seen[word] {
			return
		}
		hasLetter := false
		for _, r := range word {
			if r >= 'a' && r <= 'z' {
				hasLetter = true
				break
			}
		}
		if !hasLetter {
			return
		}
		seen[word] = true
		identifiers = append(identifiers, word)
	}

	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			token.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			token.WriteRune(r - 'A' + 'a')
		default:
			flush()
		}
	}
	flush()
	return identifiers
}
