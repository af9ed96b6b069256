package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/signalridge/cruxe/internal/relstore"
)

// declRule maps one tree-sitter node type to the symbol kind it declares.
type declRule struct {
	nodeType string
	kind     relstore.SymbolKind
}

// grammar bundles a tree-sitter language with the node-type tables the
// extractor uses to recognize declarations, imports, and calls.
type grammar struct {
	tsLanguage   *sitter.Language
	declRules    []declRule
	importTypes  []string // node types that denote an import/require statement
	callTypes    []string // node types that denote a call expression
}

var registry = map[string]*grammar{
	LangGo: {
		tsLanguage: golang.GetLanguage(),
		declRules: []declRule{
			{"function_declaration", relstore.KindFunction},
			{"method_declaration", relstore.KindMethod},
			{"type_declaration", relstore.KindType},
			{"const_declaration", relstore.KindConstant},
			{"var_declaration", relstore.KindVariable},
		},
		importTypes: []string{"import_declaration", "import_spec"},
		callTypes:   []string{"call_expression"},
	},
	LangTypeScript: {
		tsLanguage: typescript.GetLanguage(),
		declRules: []declRule{
			{"function_declaration", relstore.KindFunction},
			{"method_definition", relstore.KindMethod},
			{"class_declaration", relstore.KindClass},
			{"interface_declaration", relstore.KindInterface},
			{"type_alias_declaration", relstore.KindType},
			{"lexical_declaration", relstore.KindConstant},
			{"variable_declaration", relstore.KindVariable},
		},
		importTypes: []string{"import_statement"},
		callTypes:   []string{"call_expression"},
	},
	LangTSX: {
		tsLanguage: tsx.GetLanguage(),
		declRules: []declRule{
			{"function_declaration", relstore.KindFunction},
			{"method_definition", relstore.KindMethod},
			{"class_declaration", relstore.KindClass},
			{"interface_declaration", relstore.KindInterface},
			{"type_alias_declaration", relstore.KindType},
			{"lexical_declaration", relstore.KindConstant},
			{"variable_declaration", relstore.KindVariable},
		},
		importTypes: []string{"import_statement"},
		callTypes:   []string{"call_expression"},
	},
	LangJavaScript: {
		tsLanguage: javascript.GetLanguage(),
		declRules: []declRule{
			{"function_declaration", relstore.KindFunction},
			{"function", relstore.KindFunction},
			{"method_definition", relstore.KindMethod},
			{"class_declaration", relstore.KindClass},
			{"lexical_declaration", relstore.KindConstant},
			{"variable_declaration", relstore.KindVariable},
		},
		importTypes: []string{"import_statement"},
		callTypes:   []string{"call_expression"},
	},
	LangPython: {
		tsLanguage: python.GetLanguage(),
		declRules: []declRule{
			{"function_definition", relstore.KindFunction},
			{"class_definition", relstore.KindClass},
		},
		importTypes: []string{"import_statement", "import_from_statement"},
		callTypes:   []string{"call"},
	},
}

func (g *grammar) kindFor(nodeType string) (relstore.SymbolKind, bool) {
	for _, r := range g.declRules {
		if r.nodeType == nodeType {
			return r.kind, true
		}
	}
	return "", false
}

func (g *grammar) isImport(nodeType string) bool {
	for _, t := range g.importTypes {
		if t == nodeType {
			return true
		}
	}
	return false
}

func (g *grammar) isCall(nodeType string) bool {
	for _, t := range g.callTypes {
		if t == nodeType {
			return true
		}
	}
	return false
}
