package cyclomatic

import (
	"github.com/panbanda/spaces/pkg/ast"
	"github.com/panbanda/spaces/pkg/parser"
)

// Guard decides whether a node whose kind is in the decision set really is
// a decision point, usually by inspecting its ancestors.
type Guard func(ast.Node) bool

// Rules is the decision vocabulary of one language: node kinds that add a
// path, plus optional guards for kinds that only count in some contexts.
type Rules struct {
	Decisions []string
	Guards    map[string]Guard
}

// Classifier marks decision points for one language. It is immutable and
// safe for concurrent use.
type Classifier struct {
	decisions map[string]bool
	guards    map[string]Guard
}

// NewClassifier builds a classifier from a rule table. Guarded kinds are
// implicitly part of the decision set.
func NewClassifier(rules Rules) *Classifier {
	c := &Classifier{
		decisions: makeSet(rules.Decisions),
		guards:    make(map[string]Guard, len(rules.Guards)),
	}
	for kind, g := range rules.Guards {
		c.decisions[kind] = true
		c.guards[kind] = g
	}
	return c
}

// IsDecision reports whether n is a decision point.
func (c *Classifier) IsDecision(n ast.Node) bool {
	kind := n.Kind()
	if !c.decisions[kind] {
		return false
	}
	if g, ok := c.guards[kind]; ok {
		return g(n)
	}
	return true
}

// Compute adds one to the local complexity of s when n is a decision point.
func (c *Classifier) Compute(n ast.Node, s *Stats) {
	if c.IsDecision(n) {
		s.Increment()
	}
}

// Empty reports whether the classifier never counts anything.
func (c *Classifier) Empty() bool {
	return len(c.decisions) == 0
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

var classifiers = buildClassifiers()

func buildClassifiers() map[parser.Language]*Classifier {
	out := make(map[parser.Language]*Classifier, len(languageRules))
	for lang, rules := range languageRules {
		out[lang] = NewClassifier(rules)
	}
	return out
}

var noop = NewClassifier(Rules{})

// ForLanguage returns the classifier of a language. Languages without rules
// get a classifier that never counts.
func ForLanguage(lang parser.Language) *Classifier {
	if c, ok := classifiers[lang]; ok {
		return c
	}
	return noop
}
