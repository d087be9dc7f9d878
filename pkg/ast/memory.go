package ast

// MemNode is an in-memory Node for building trees by hand.
type MemNode struct {
	kind     string
	parent   *MemNode
	children []*MemNode
	start    int
	end      int
	fields   map[string]string
	token    bool
}

// NewNode creates a node of the given kind and adopts children.
func NewNode(kind string, children ...*MemNode) *MemNode {
	n := &MemNode{kind: kind, children: children}
	for _, c := range children {
		c.parent = n
	}
	return n
}

// NewToken creates an anonymous leaf node, such as a keyword or operator.
func NewToken(kind string) *MemNode {
	return &MemNode{kind: kind, token: true}
}

// WithLines sets the 1-based line span.
func (m *MemNode) WithLines(start, end int) *MemNode {
	m.start, m.end = start, end
	return m
}

// WithField records the text bound to a grammar field.
func (m *MemNode) WithField(name, text string) *MemNode {
	if m.fields == nil {
		m.fields = make(map[string]string)
	}
	m.fields[name] = text
	return m
}

func (m *MemNode) Kind() string { return m.kind }

func (m *MemNode) IsNamed() bool { return !m.token }

func (m *MemNode) Parent() Node {
	if m.parent == nil {
		return nil
	}
	return m.parent
}

func (m *MemNode) ChildCount() int { return len(m.children) }

func (m *MemNode) Child(i int) Node {
	if i < 0 || i >= len(m.children) {
		return nil
	}
	return m.children[i]
}

func (m *MemNode) StartLine() int { return m.start }

func (m *MemNode) EndLine() int { return m.end }

func (m *MemNode) FieldText(field string) string {
	return m.fields[field]
}
