package spaces

import (
	"github.com/panbanda/spaces/pkg/ast"
	"github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/parser"
)

// FuncSpace is a finalized space: a program unit with its cyclomatic
// summary and the spaces nested directly inside it.
type FuncSpace struct {
	Name      string `json:"name,omitempty"`
	Kind      Kind   `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	// Complexity is the local complexity of this space alone.
	Complexity float64            `json:"complexity"`
	Cyclomatic cyclomatic.Summary `json:"cyclomatic"`
	Spaces     []*FuncSpace       `json:"spaces,omitempty"`
}

// openSpace is a space still on the traversal stack.
type openSpace struct {
	space *FuncSpace
	stats cyclomatic.Stats
}

// Builder turns one syntax tree into a space tree.
type Builder struct {
	lang       parser.Language
	classifier *cyclomatic.Classifier
}

// NewBuilder creates a builder for the given language.
func NewBuilder(lang parser.Language) *Builder {
	return &Builder{
		lang:       lang,
		classifier: cyclomatic.ForLanguage(lang),
	}
}

// Build walks root and returns the finalized unit space. The walk uses an
// explicit stack, so very deep trees are safe.
func (b *Builder) Build(root ast.Node, name string) *FuncSpace {
	unit := &FuncSpace{Name: name, Kind: KindUnit}
	if root != nil {
		unit.StartLine = root.StartLine()
		unit.EndLine = root.EndLine()
	}

	stack := []*openSpace{{space: unit, stats: cyclomatic.NewStats()}}
	// opened mirrors the node walk: one entry per entered node, true when
	// that node pushed a space.
	var opened []bool
	// Languages without decision rules still get a space tree, every space
	// at complexity 1.
	counting := !b.classifier.Empty()

	ast.Walk(root, func(n ast.Node, enter bool) {
		if enter {
			top := stack[len(stack)-1]
			if counting {
				b.classifier.Compute(n, &top.stats)
			}

			kind, ok := Kind(""), false
			if len(opened) > 0 {
				kind, ok = Opens(b.lang, n)
			}
			opened = append(opened, ok)
			if ok {
				stack = append(stack, &openSpace{
					space: &FuncSpace{
						Name:      nameOf(b.lang, n),
						Kind:      kind,
						StartLine: n.StartLine(),
						EndLine:   n.EndLine(),
					},
					stats: cyclomatic.NewStats(),
				})
			}
			return
		}

		pushed := opened[len(opened)-1]
		opened = opened[:len(opened)-1]
		if !pushed {
			return
		}
		child := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		summary := finalize(child)
		parent := stack[len(stack)-1]
		parent.stats.Absorb(summary)
		parent.space.Spaces = append(parent.space.Spaces, child.space)
	})

	finalize(stack[0])
	return unit
}

func finalize(o *openSpace) cyclomatic.Summary {
	o.space.Complexity = o.stats.Local()
	o.space.Cyclomatic = o.stats.Finalize()
	return o.space.Cyclomatic
}

// Build is a convenience wrapper around NewBuilder(lang).Build.
func Build(lang parser.Language, root ast.Node, name string) *FuncSpace {
	return NewBuilder(lang).Build(root, name)
}
