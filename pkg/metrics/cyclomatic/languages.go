package cyclomatic

import (
	"github.com/panbanda/spaces/pkg/ast"
	"github.com/panbanda/spaces/pkg/parser"
)

// Kinds are tree-sitter node types. Keywords and operators are anonymous
// tokens whose kind is their literal text.

// cFamily covers the C-like grammars that name the ternary ternary_expression.
var cFamily = []string{
	"if", "for", "while", "case", "catch",
	"ternary_expression",
	"&&", "||",
}

// cpp names the ternary conditional_expression.
var cpp = []string{
	"if", "for", "while", "case", "catch",
	"conditional_expression",
	"&&", "||",
}

var python = Rules{
	Decisions: []string{
		"if", "elif", "for", "while", "except", "with", "assert",
		"and", "or",
	},
	Guards: map[string]Guard{
		"else": pythonLoopElse,
	},
}

// pythonLoopElse counts the else of for/while loops, which runs only when
// the loop was not broken out of. Any other else is implied by its if.
func pythonLoopElse(n ast.Node) bool {
	return ast.HasAncestor(n,
		ast.KindIs("for_statement", "while_statement"),
		ast.Not(ast.KindIs("else_clause")),
		2,
	)
}

var rust = Rules{
	Decisions: []string{
		"if", "for_expression", "while", "loop",
		"match_arm", "try_expression",
		"&&", "||",
	},
}

var golang = Rules{
	Decisions: []string{"if", "for", "case", "&&", "||"},
}

var languageRules = map[parser.Language]Rules{
	parser.LangPython:     python,
	parser.LangJavaScript: {Decisions: cFamily},
	parser.LangMozjs:      {Decisions: cFamily},
	parser.LangTypeScript: {Decisions: cFamily},
	parser.LangTSX:        {Decisions: cFamily},
	parser.LangJava:       {Decisions: cFamily},
	parser.LangC:          {Decisions: cpp},
	parser.LangCPP:        {Decisions: cpp},
	parser.LangRust:       rust,
	parser.LangGo:         golang,
	parser.LangKotlin:     {},
	parser.LangBash:       {},
}
