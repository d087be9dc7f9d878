package spaces

import "strings"

// Anonymous is the display name of spaces without a name.
const Anonymous = "<anonymous>"

// DisplayName returns the space name, or Anonymous.
func (s *FuncSpace) DisplayName() string {
	if s.Name == "" {
		return Anonymous
	}
	return s.Name
}

// Entry is one space of a flattened space tree.
type Entry struct {
	// Path joins the display names of the enclosing non-unit spaces and
	// this one with ".".
	Path  string
	Depth int
	Space *FuncSpace
}

// Flatten lists every space below the unit in pre-order.
func (s *FuncSpace) Flatten() []Entry {
	type frame struct {
		space *FuncSpace
		path  []string
		depth int
	}

	var out []Entry
	stack := make([]frame, 0, len(s.Spaces))
	for i := len(s.Spaces) - 1; i >= 0; i-- {
		stack = append(stack, frame{space: s.Spaces[i], depth: 1})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path := append(append([]string(nil), f.path...), f.space.DisplayName())
		out = append(out, Entry{Path: strings.Join(path, "."), Depth: f.depth, Space: f.space})
		for i := len(f.space.Spaces) - 1; i >= 0; i-- {
			stack = append(stack, frame{space: f.space.Spaces[i], path: path, depth: f.depth + 1})
		}
	}
	return out
}

// Functions returns the flattened function and closure spaces.
func (s *FuncSpace) Functions() []Entry {
	var out []Entry
	for _, e := range s.Flatten() {
		if e.Space.Kind == KindFunction || e.Space.Kind == KindClosure {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of spaces in the tree, the unit included.
func (s *FuncSpace) Count() int {
	return len(s.Flatten()) + 1
}

// Depth returns the deepest nesting level of the tree, counting s as 1.
func (s *FuncSpace) Depth() int {
	type frame struct {
		space *FuncSpace
		depth int
	}

	max := 0
	stack := []frame{{space: s, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > max {
			max = f.depth
		}
		for _, c := range f.space.Spaces {
			stack = append(stack, frame{space: c, depth: f.depth + 1})
		}
	}
	return max
}
