package ftindex

import (
	"regexp"
	"strings"
	"unicode"
)

var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeIdentifier splits source text into lowercase subtokens: it
// splits on non-identifier runes first, then further splits each run on
// snake_case and camelCase/PascalCase boundaries, and drops tokens under
// two characters.
func TokenizeIdentifier(text string) []string {
	var tokens []string
	for _, word := range identifierRegex.FindAllString(text, -1) {
		for _, t := range splitCompoundToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCompoundToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase/PascalCase identifiers, keeping runs
// of capitals together so acronyms like HTTP in parseHTTPRequest stay
// whole until the next lowercase run starts.
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// BuildStopWordSet lowercases a stop-word list into a lookup set.
func BuildStopWordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// DefaultStopWords filters keywords and generic identifier names common
// across the supported languages, so they don't dominate ranking.
var DefaultStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class", "interface",
	"return", "if", "else", "elif", "for", "while", "switch", "case",
	"import", "export", "package", "module", "public", "private", "static",
	"data", "result", "value", "item", "key", "err", "error", "ctx", "tmp", "self", "this",
}
