// Package ast defines the read-only syntax node view consumed by the space
// builder and the metric classifiers.
//
// A Node exposes its grammar-specific kind and structural navigation. The
// tree-sitter implementation lives in the treesitter subpackage; NewNode
// builds small in-memory trees for tests that must not depend on a grammar.
//
// Usage:
//
//	root := treesitter.Wrap(tree.RootNode(), source)
//	ast.Walk(root, func(n ast.Node, enter bool) {
//	    if enter {
//	        fmt.Println(n.Kind(), n.StartLine())
//	    }
//	})
package ast
