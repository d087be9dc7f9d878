// Package treesitter adapts smacker/go-tree-sitter nodes to ast.Node.
package treesitter

import (
	"github.com/panbanda/spaces/pkg/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// Node wraps a tree-sitter node together with the source it was parsed from.
type Node struct {
	node   *sitter.Node
	source []byte
}

// Ensure Node implements ast.Node.
var _ ast.Node = (*Node)(nil)

// Wrap adapts a tree-sitter node. It returns nil for a nil node so callers
// never see a typed-nil interface.
func Wrap(n *sitter.Node, source []byte) ast.Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return &Node{node: n, source: source}
}

func (n *Node) Kind() string {
	return n.node.Type()
}

func (n *Node) IsNamed() bool {
	return n.node.IsNamed()
}

func (n *Node) Parent() ast.Node {
	return Wrap(n.node.Parent(), n.source)
}

func (n *Node) ChildCount() int {
	return int(n.node.ChildCount())
}

func (n *Node) Child(i int) ast.Node {
	if i < 0 || i >= n.ChildCount() {
		return nil
	}
	return Wrap(n.node.Child(i), n.source)
}

func (n *Node) StartLine() int {
	return int(n.node.StartPoint().Row) + 1
}

func (n *Node) EndLine() int {
	return int(n.node.EndPoint().Row) + 1
}

// FieldText returns the source text of the named field child. Byte offsets
// outside the source yield "".
func (n *Node) FieldText(field string) string {
	child := n.node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	start, end := child.StartByte(), child.EndByte()
	if start > end || end > uint32(len(n.source)) {
		return ""
	}
	return string(n.source[start:end])
}
