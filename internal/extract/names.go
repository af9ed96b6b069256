package extract

import (
	"strings"

	"github.com/signalridge/cruxe/internal/relstore"
)

// extractName finds the identifier that names a declaration node,
// following each language's own placement rules (Go methods name their
// receiver method via field_identifier, not identifier; JS/TS const
// functions nest their name inside a variable_declarator; and so on).
func extractName(n *Node, source []byte, lang string) string {
	switch lang {
	case LangGo:
		return extractGoName(n, source)
	case LangTypeScript, LangTSX:
		return extractJSFamilyName(n, source)
	case LangJavaScript:
		return extractJSFamilyName(n, source)
	case LangPython:
		return firstChildOfType(n, source, "identifier")
	default:
		return firstChildOfType(n, source, "identifier")
	}
}

func extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		return firstChildOfType(n, source, "identifier")
	case "method_declaration":
		return firstChildOfType(n, source, "field_identifier")
	case "type_declaration":
		if spec := n.Child("type_spec"); spec != nil {
			return firstChildOfType(spec, source, "type_identifier")
		}
	case "const_declaration":
		if spec := n.Child("const_spec"); spec != nil {
			return firstChildOfType(spec, source, "identifier")
		}
	case "var_declaration":
		if spec := n.Child("var_spec"); spec != nil {
			return firstChildOfType(spec, source, "identifier")
		}
	}
	return ""
}

func extractJSFamilyName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		if decl := n.Child("variable_declarator"); decl != nil {
			return firstChildOfType(decl, source, "identifier")
		}
	}
	if name := firstChildOfType(n, source, "identifier"); name != "" {
		return name
	}
	return firstChildOfType(n, source, "type_identifier")
}

func firstChildOfType(n *Node, source []byte, nodeType string) string {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c.Content(source)
		}
	}
	return ""
}

// extractDocComment looks one line above n's start for a leading
// comment. Python's docstrings live inside the body, not above the
// declaration, so they are not handled here.
func extractDocComment(n *Node, source []byte, lang string) string {
	if lang == LangPython {
		return ""
	}
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevEnd := lineStart - 1
	prevStart := prevEnd
	for prevStart > 0 && source[prevStart-1] != '\n' {
		prevStart--
	}

	prevLine := strings.TrimSpace(string(source[prevStart:prevEnd]))
	if strings.HasPrefix(prevLine, "//") {
		return strings.TrimSpace(strings.TrimPrefix(prevLine, "//"))
	}
	return ""
}

func extractSignature(n *Node, source []byte, kind relstore.SymbolKind, lang string) string {
	content := n.Content(source)
	if content == "" {
		return ""
	}
	switch kind {
	case relstore.KindFunction, relstore.KindMethod:
		return extractFunctionSignature(content, lang)
	case relstore.KindClass, relstore.KindInterface, relstore.KindType:
		return firstLineUpToBrace(content)
	default:
		return firstLineUpToBrace(content)
	}
}

func extractFunctionSignature(content, lang string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	switch lang {
	case LangPython:
		return firstLine
	default:
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}

func firstLineUpToBrace(content string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}
