// Package chunker provides a tree-sitter-backed implementation of
// indexer.Chunker, the pluggable syntactic-analyzer boundary. It exists so the repository is runnable and
// testable end to end without a separately maintained analyzer; a
// production deployment may swap in a different Chunker.
package chunker

import sitter "github.com/smacker/go-tree-sitter"

// SymbolType classifies an extracted code symbol.
type SymbolType string

const (
	SymbolFunction  SymbolType = "function"
	SymbolMethod    SymbolType = "method"
	SymbolClass     SymbolType = "class"
	SymbolInterface SymbolType = "interface"
	SymbolTypeDef   SymbolType = "type"
	SymbolConstant  SymbolType = "constant"
	SymbolVariable  SymbolType = "variable"
)

// Symbol is a single named construct found in a parsed file.
type Symbol struct {
	Name      string
	Type      SymbolType
	StartLine int // 1-indexed
	EndLine   int // 1-indexed, inclusive
	Exported  bool
}

// node wraps a tree-sitter node with the plain-Go fields the extractor
// needs, avoiding repeated cgo-adjacent calls during tree walks.
type node struct {
	tsNode   *sitter.Node
	children []*node
}

func convertNode(tsNode *sitter.Node) *node {
	if tsNode == nil {
		return nil
	}
	n := &node{tsNode: tsNode, children: make([]*node, 0, int(tsNode.ChildCount()))}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if child := tsNode.Child(i); child != nil {
			n.children = append(n.children, convertNode(child))
		}
	}
	return n
}

func (n *node) typ() string { return n.tsNode.Type() }

func (n *node) content(source []byte) string {
	start, end := n.tsNode.StartByte(), n.tsNode.EndByte()
	if start >= end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

func (n *node) startLine() int { return int(n.tsNode.StartPoint().Row) + 1 }
func (n *node) endLine() int   { return int(n.tsNode.EndPoint().Row) + 1 }

func (n *node) walk(fn func(*node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.children {
		child.walk(fn)
	}
}

func (n *node) firstChildByType(nodeType string) *node {
	for _, c := range n.children {
		if c.typ() == nodeType {
			return c
		}
	}
	return nil
}

func (n *node) childrenByType(nodeType string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.typ() == nodeType {
			out = append(out, c)
		}
	}
	return out
}
