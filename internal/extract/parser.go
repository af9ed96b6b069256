package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a 0-indexed row/column position in source bytes.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is a tree-sitter node flattened into a plain tree so the walker
// never has to touch the cgo-backed and somewhat fiddly sitter.Node
// API more than once per node.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
}

// Content returns the node's source slice.
func (n *Node) Content(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// Child returns the first direct child of the given type.
func (n *Node) Child(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// Walk traverses the tree depth-first, calling fn for every node
// including n itself. Returning false from fn stops descent into that
// node's children, not the whole walk.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is one file's parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Parser wraps a tree-sitter parser, one per extraction call since the
// underlying C parser is not safe for concurrent use.
type Parser struct {
	p *sitter.Parser
}

// NewParser returns an unconfigured parser; SetLanguage is called per Parse.
func NewParser() *Parser {
	return &Parser{p: sitter.NewParser()}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.p != nil {
		p.p.Close()
	}
}

// Parse parses source as lang and flattens the result into a Tree.
func (p *Parser) Parse(ctx context.Context, source []byte, lang string) (*Tree, error) {
	g, ok := registry[lang]
	if !ok {
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}
	p.p.SetLanguage(g.tsLanguage)

	tsTree, err := p.p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("extract: parse produced a nil tree")
	}

	root := flatten(tsTree.RootNode())
	return &Tree{Root: root, Source: source, Language: lang}, nil
}

func flatten(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:       n.Type(),
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: Point{Row: n.StartPoint().Row, Column: n.StartPoint().Column},
		EndPoint:   Point{Row: n.EndPoint().Row, Column: n.EndPoint().Column},
		Children:   make([]*Node, 0, int(n.ChildCount())),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			out.Children = append(out.Children, flatten(c))
		}
	}
	return out
}
