package ast

// Node is a syntax tree node produced by a parser.
type Node interface {
	// Kind returns the grammar-specific node kind. Anonymous tokens such as
	// keywords and operators report their literal text ("if", "&&").
	Kind() string

	// IsNamed reports whether the node is a named grammar rule rather than
	// an anonymous token.
	IsNamed() bool

	// Parent returns the enclosing node, or nil at the root.
	Parent() Node

	// ChildCount returns the number of children, named and anonymous.
	ChildCount() int

	// Child returns the i-th child, or nil when i is out of range.
	Child(i int) Node

	// StartLine returns the 1-based line the node starts on.
	StartLine() int

	// EndLine returns the 1-based line the node ends on.
	EndLine() int

	// FieldText returns the source text of the child bound to the given
	// grammar field, or "" when there is none.
	FieldText(field string) string
}

// Predicate reports whether a node satisfies a condition.
type Predicate func(Node) bool

// DefaultAncestorDepth bounds HasAncestor walks when no explicit limit is given.
const DefaultAncestorDepth = 64

// HasAncestor walks upward from n (exclusive) and reports whether an
// ancestor satisfying match is found before one satisfying stop. match is
// checked first at every level. The walk gives up after maxDepth parents;
// a maxDepth <= 0 uses DefaultAncestorDepth.
func HasAncestor(n Node, match, stop Predicate, maxDepth int) bool {
	if n == nil {
		return false
	}
	if maxDepth <= 0 {
		maxDepth = DefaultAncestorDepth
	}

	cur := n.Parent()
	for depth := 0; cur != nil && depth < maxDepth; depth++ {
		if match(cur) {
			return true
		}
		if stop(cur) {
			return false
		}
		cur = cur.Parent()
	}
	return false
}

// KindIs returns a predicate matching any of the given kinds.
func KindIs(kinds ...string) Predicate {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(n Node) bool {
		return set[n.Kind()]
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(n Node) bool {
		return !p(n)
	}
}

// Visitor is called once when a node is entered (enter == true) and once
// when it is left, after all of its children.
type Visitor func(n Node, enter bool)

type walkFrame struct {
	node Node
	next int
}

// Walk traverses the tree depth-first using an explicit stack, so the
// depth of the tree never grows the goroutine stack.
func Walk(root Node, visit Visitor) {
	if root == nil {
		return
	}

	stack := []walkFrame{{node: root}}
	visit(root, true)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < top.node.ChildCount() {
			child := top.node.Child(top.next)
			top.next++
			if child == nil {
				continue
			}
			visit(child, true)
			stack = append(stack, walkFrame{node: child})
			continue
		}

		visit(top.node, false)
		stack = stack[:len(stack)-1]
	}
}
