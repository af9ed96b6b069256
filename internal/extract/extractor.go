package extract

import (
	"context"
	"strings"

	"github.com/signalridge/cruxe/internal/relstore"
)

// Extract parses source as lang and returns every symbol, raw import,
// and raw call site it finds. A nil ParseError on the returned Result
// doesn't guarantee a clean parse — tree-sitter is error-tolerant and
// happily returns partial trees for broken source; callers only see a
// non-nil ParseError when the parser itself fails outright. A language
// with no grammar yields an empty Result with a nil ParseError.
func Extract(ctx context.Context, p *Parser, source []byte, lang, path string) Result {
	g, ok := registry[lang]
	if !ok {
		return Result{}
	}

	tree, err := p.Parse(ctx, source, lang)
	if err != nil {
		return Result{ParseError: err}
	}

	w := &walker{g: g, source: source, lang: lang, path: path}
	w.walk(tree.Root, nil)

	return Result{Symbols: w.symbols, Imports: w.imports, Calls: w.calls}
}

// walker carries the enclosing-symbol stack while descending the tree
// so nested calls and parent-qualified names come out right.
type walker struct {
	g       *grammar
	source  []byte
	lang    string
	path    string
	stack   []string // qualified names of symbols currently enclosing the cursor
	symbols []Symbol
	imports []RawImport
	calls   []RawCall
}

func (w *walker) currentQualifiedName() string {
	if len(w.stack) == 0 {
		return "file::" + w.path
	}
	return w.stack[len(w.stack)-1]
}

func (w *walker) walk(n *Node, parent *Node) {
	if n == nil {
		return
	}

	switch {
	case w.g.isImport(n.Type):
		w.extractImport(n)
	case w.g.isCall(n.Type):
		w.extractCall(n)
	}

	if kind, ok := w.g.kindFor(n.Type); ok && w.extractSpecialSymbol(n) == nil {
		if sym, qualified := w.extractSymbol(n, kind); sym != nil {
			w.symbols = append(w.symbols, *sym)
			w.stack = append(w.stack, qualified)
			for _, c := range n.Children {
				w.walk(c, n)
			}
			w.stack = w.stack[:len(w.stack)-1]
			return
		}
	} else if special := w.extractSpecialSymbol(n); special != nil {
		qualified := w.qualify(special.Name)
		w.symbols = append(w.symbols, *special)
		w.stack = append(w.stack, qualified)
		for _, c := range n.Children {
			w.walk(c, n)
		}
		w.stack = w.stack[:len(w.stack)-1]
		return
	}

	for _, c := range n.Children {
		w.walk(c, n)
	}
}

func (w *walker) qualify(name string) string {
	if len(w.stack) == 0 {
		return w.path + "::" + name
	}
	return w.stack[len(w.stack)-1] + "." + name
}

func (w *walker) extractSymbol(n *Node, kind relstore.SymbolKind) (*Symbol, string) {
	name := extractName(n, w.source, w.lang)
	if name == "" {
		return nil, ""
	}
	qualified := w.qualify(name)
	parentName := ""
	if len(w.stack) > 0 {
		parentName = w.stack[len(w.stack)-1]
	}
	return &Symbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		LineStart:     int(n.StartPoint.Row) + 1,
		LineEnd:       int(n.EndPoint.Row) + 1,
		Visibility:    visibilityOf(name, w.lang),
		Signature:     extractSignature(n, w.source, kind, w.lang),
		Content:       n.Content(w.source),
		DocComment:    extractDocComment(n, w.source, w.lang),
		ParentName:    parentName,
	}, qualified
}

// extractSpecialSymbol recognizes JS/TS `const f = () => {}` and
// `const f = function() {}` patterns that otherwise have no dedicated
// declaration node type.
func (w *walker) extractSpecialSymbol(n *Node) *Symbol {
	switch w.lang {
	case LangTypeScript, LangTSX, LangJavaScript:
		if n.Type != "lexical_declaration" && n.Type != "variable_declaration" {
			return nil
		}
	default:
		return nil
	}

	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}
		var name string
		var hasFunc bool
		for _, gc := range child.Children {
			if gc.Type == "identifier" {
				name = gc.Content(w.source)
			}
			if gc.Type == "arrow_function" || gc.Type == "function" || gc.Type == "function_expression" {
				hasFunc = true
			}
		}
		if name != "" && hasFunc {
			parentName := ""
			if len(w.stack) > 0 {
				parentName = w.stack[len(w.stack)-1]
			}
			return &Symbol{
				Name:          name,
				QualifiedName: w.qualify(name),
				Kind:          relstore.KindFunction,
				LineStart:     int(n.StartPoint.Row) + 1,
				LineEnd:       int(n.EndPoint.Row) + 1,
				Visibility:    visibilityOf(name, w.lang),
				Signature:     extractFunctionSignature(n.Content(w.source), w.lang),
				Content:       n.Content(w.source),
				ParentName:    parentName,
			}
		}
	}
	return nil
}

func (w *walker) extractImport(n *Node) {
	line := int(n.StartPoint.Row) + 1
	source := w.currentQualifiedName()

	switch w.lang {
	case LangGo:
		if n.Type != "import_spec" {
			return
		}
		path := strings.Trim(n.Content(w.source), `"`)
		w.imports = append(w.imports, RawImport{
			SourceQualifiedName: source,
			TargetQualifiedName: path,
			TargetName:          lastSegment(path, "/"),
			ImportLine:          line,
		})
	case LangPython:
		for _, c := range n.Children {
			if c.Type == "dotted_name" || c.Type == "aliased_import" {
				mod := c.Content(w.source)
				w.imports = append(w.imports, RawImport{
					SourceQualifiedName: source,
					TargetQualifiedName: mod,
					TargetName:          lastSegment(mod, "."),
					ImportLine:          line,
				})
			}
		}
	default: // JS/TS family
		for _, c := range n.Children {
			if c.Type == "string" {
				mod := strings.Trim(c.Content(w.source), `"'`+"`")
				w.imports = append(w.imports, RawImport{
					SourceQualifiedName: source,
					TargetQualifiedName: mod,
					TargetName:          lastSegment(mod, "/"),
					ImportLine:          line,
				})
			}
		}
	}
}

func (w *walker) extractCall(n *Node) {
	if len(n.Children) == 0 {
		return
	}
	callee := n.Children[0]
	name := callee.Content(w.source)
	if name == "" {
		return
	}
	w.calls = append(w.calls, RawCall{
		FromQualifiedName: w.currentQualifiedName(),
		CalleeName:        lastSegment(name, "."),
		CallLine:          int(n.StartPoint.Row) + 1,
	})
}

func lastSegment(s, sep string) string {
	parts := strings.Split(s, sep)
	return parts[len(parts)-1]
}

func visibilityOf(name, lang string) string {
	if name == "" {
		return "private"
	}
	switch lang {
	case LangGo:
		if strings.ToUpper(name[:1]) == name[:1] {
			return "public"
		}
		return "private"
	case LangPython:
		if strings.HasPrefix(name, "_") {
			return "private"
		}
		return "public"
	default:
		return "public"
	}
}
