package search

import (
	"strings"

	"github.com/signalridge/cruxe/internal/planner"
)

// IntentRule names one step of the ordered classification rule chain.
type IntentRule string

const (
	RuleErrorPattern    IntentRule = "error_pattern"
	RulePath            IntentRule = "path"
	RuleQuotedError     IntentRule = "quoted_error"
	RuleSymbol          IntentRule = "symbol"
	RuleNaturalLanguage IntentRule = "natural_language"
)

// DefaultRuleOrder is the order rules are tried when the caller hasn't
// configured a custom one.
var DefaultRuleOrder = []IntentRule{
	RuleErrorPattern, RulePath, RuleQuotedError, RuleSymbol, RuleNaturalLanguage,
}

// DefaultErrorPatterns are substrings whose presence strongly suggests
// the query is pasted error/log text rather than an identifier search.
var DefaultErrorPatterns = []string{
	"error:", "panic", "panicked", "exception", "traceback", "stack trace",
	"failed to", "cannot find", "undefined reference", "segmentation fault",
}

// DefaultPathExtensions are file extensions that make a bare query look
// like a path even without a separator.
var DefaultPathExtensions = []string{
	".go", ".rs", ".py", ".ts", ".tsx", ".js", ".jsx", ".java", ".rb", ".c", ".cc", ".cpp", ".h", ".hpp",
}

// DefaultSymbolKindKeywords are leading words in a two-word query that
// suggest the remainder names a symbol of that kind.
var DefaultSymbolKindKeywords = []string{"function", "struct", "class", "method", "interface", "type"}

// IntentPolicy configures the ordered rule engine. The zero value is
// not usable directly; call DefaultIntentPolicy.
type IntentPolicy struct {
	RuleOrder                       []IntentRule
	ErrorPatterns                   []string
	PathExtensions                  []string
	SymbolKindKeywords              []string
	EnableWrappedQuotedErrorLiteral bool
}

// DefaultIntentPolicy returns the documented default classification policy.
func DefaultIntentPolicy() IntentPolicy {
	return IntentPolicy{
		RuleOrder:                       append([]IntentRule{}, DefaultRuleOrder...),
		ErrorPatterns:                   append([]string{}, DefaultErrorPatterns...),
		PathExtensions:                  append([]string{}, DefaultPathExtensions...),
		SymbolKindKeywords:              append([]string{}, DefaultSymbolKindKeywords...),
		EnableWrappedQuotedErrorLiteral: true,
	}
}

// Classification is the outcome of classifying one query.
type Classification struct {
	Intent         planner.Intent
	Confidence     float64
	EscalationHint string // empty when confidence >= 0.65
}

// ClassifyIntent runs the default policy over query.
func ClassifyIntent(query string) Classification {
	return ClassifyIntentWithPolicy(query, DefaultIntentPolicy())
}

// ClassifyIntentWithPolicy walks policy.RuleOrder, returning the first
// rule's match; natural language is the fallback if no rule matches
// (and is always reached if it's last in the order, since it never
// declines to match).
func ClassifyIntentWithPolicy(query string, policy IntentPolicy) Classification {
	trimmed := strings.TrimSpace(query)

	for _, rule := range policy.RuleOrder {
		switch rule {
		case RuleErrorPattern:
			if c, ok := errorPatternConfidence(trimmed, policy.ErrorPatterns); ok {
				return buildClassification(planner.IntentError, c)
			}
		case RulePath:
			if c, ok := pathConfidence(trimmed, policy.PathExtensions); ok {
				return buildClassification(planner.IntentPath, c)
			}
		case RuleQuotedError:
			if c, ok := quotedErrorConfidence(trimmed, policy.EnableWrappedQuotedErrorLiteral); ok {
				return buildClassification(planner.IntentError, c)
			}
		case RuleSymbol:
			if c, ok := symbolConfidence(trimmed, policy.SymbolKindKeywords); ok {
				return buildClassification(planner.IntentSymbol, c)
			}
		case RuleNaturalLanguage:
			return buildClassification(planner.IntentNaturalLanguage, naturalLanguageConfidence(trimmed))
		}
	}

	return buildClassification(planner.IntentNaturalLanguage, naturalLanguageConfidence(trimmed))
}

func buildClassification(in planner.Intent, confidence float64) Classification {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	c := Classification{Intent: in, Confidence: confidence}
	if confidence >= 0.65 {
		return c
	}

	switch in {
	case planner.IntentNaturalLanguage:
		c.EscalationHint = "Intent confidence is low; retry as symbol/path if you know exact identifiers."
	case planner.IntentSymbol:
		c.EscalationHint = "Intent confidence is low; retry with natural-language wording or include file path."
	case planner.IntentPath:
		c.EscalationHint = "Intent confidence is low; retry with exact path or broaden to filename-only search."
	case planner.IntentError:
		c.EscalationHint = "Intent confidence is low; include exact error text or stack-frame snippet."
	}
	return c
}

func naturalLanguageConfidence(query string) float64 {
	if len(strings.Fields(query)) <= 1 {
		return 0.55
	}
	return 0.72
}

func pathConfidence(query string, extensions []string) (float64, bool) {
	if strings.ContainsAny(query, "/\\") {
		return 0.95, true
	}
	lowered := strings.ToLower(query)
	for _, ext := range extensions {
		if strings.HasSuffix(lowered, ext) {
			return 0.85, true
		}
	}
	return 0, false
}

func errorPatternConfidence(query string, patterns []string) (float64, bool) {
	lowered := strings.ToLower(query)
	for _, p := range patterns {
		if strings.Contains(lowered, strings.ToLower(p)) {
			return 0.9, true
		}
	}
	return 0, false
}

func quotedErrorConfidence(query string, enabled bool) (float64, bool) {
	if enabled && looksLikeQuotedErrorLiteral(query) {
		return 0.9, true
	}
	return 0, false
}

// looksLikeQuotedErrorLiteral treats a complete quoted literal (e.g.
// `"connection refused"`) as error intent while avoiding apostrophe
// false positives from natural-language contractions ("where's auth
// handled").
func looksLikeQuotedErrorLiteral(query string) bool {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) <= 1 {
		return false
	}
	return (strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`)) ||
		(strings.HasPrefix(trimmed, "`") && strings.HasSuffix(trimmed, "`"))
}

func symbolConfidence(query string, kindKeywords []string) (float64, bool) {
	words := strings.Fields(query)

	if len(words) == 1 {
		word := words[0]
		if len(word) > 1 && hasInternalUppercase(word) {
			return 0.88, true
		}
		if strings.Contains(word, "_") {
			return 0.85, true
		}
		if strings.Contains(word, "::") || (strings.Contains(word, ".") && !isPathLike(word)) {
			return 0.9, true
		}
		if isIdentifierLike(word) && len(word) > 2 {
			return 0.6, true
		}
	}

	if len(words) == 2 {
		first := strings.ToLower(words[0])
		for _, kw := range kindKeywords {
			if kw == first {
				return 0.76, true
			}
		}
	}

	return 0, false
}

func hasInternalUppercase(word string) bool {
	for _, r := range word[1:] {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func isPathLike(query string) bool {
	return strings.ContainsAny(query, "/\\")
}

func isIdentifierLike(word string) bool {
	for _, r := range word {
		if !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
