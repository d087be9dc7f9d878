package spaces

import (
	"strings"

	"github.com/panbanda/spaces/pkg/ast"
	"github.com/panbanda/spaces/pkg/parser"
)

// Kind is the kind of program unit a space represents.
type Kind string

const (
	KindUnit      Kind = "unit"
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindTrait     Kind = "trait"
	KindImpl      Kind = "impl"
	KindInterface Kind = "interface"
	KindNamespace Kind = "namespace"
	KindClosure   Kind = "closure"
)

// IsType reports whether the kind belongs to the class/type family.
func (k Kind) IsType() bool {
	switch k {
	case KindClass, KindStruct, KindTrait, KindImpl, KindInterface, KindNamespace:
		return true
	}
	return false
}

// rule describes a node kind that opens a space.
type rule struct {
	kind Kind
	// bodyField, when set, must be present for the node to open a space.
	// It keeps forward declarations and type references out of the tree.
	bodyField string
}

var jsSpaces = map[string]rule{
	"function":                       {kind: KindFunction},
	"function_expression":            {kind: KindFunction},
	"function_declaration":           {kind: KindFunction},
	"generator_function":             {kind: KindFunction},
	"generator_function_declaration": {kind: KindFunction},
	"method_definition":              {kind: KindFunction},
	"class":                          {kind: KindClass},
	"class_declaration":              {kind: KindClass},
	"arrow_function":                 {kind: KindClosure},
}

var tsSpaces = merge(jsSpaces, map[string]rule{
	"interface_declaration":      {kind: KindInterface},
	"abstract_class_declaration": {kind: KindClass},
})

var cSpaces = map[string]rule{
	"function_definition": {kind: KindFunction},
	"struct_specifier":    {kind: KindStruct, bodyField: "body"},
}

var cppSpaces = merge(cSpaces, map[string]rule{
	"class_specifier":      {kind: KindClass, bodyField: "body"},
	"namespace_definition": {kind: KindNamespace},
	"lambda_expression":    {kind: KindClosure},
})

var languageSpaces = map[parser.Language]map[string]rule{
	parser.LangPython: {
		"function_definition": {kind: KindFunction},
		"class_definition":    {kind: KindClass},
	},
	parser.LangJavaScript: jsSpaces,
	parser.LangMozjs:      jsSpaces,
	parser.LangTypeScript: tsSpaces,
	parser.LangTSX:        tsSpaces,
	parser.LangJava: {
		"class_declaration":       {kind: KindClass},
		"enum_declaration":        {kind: KindClass},
		"record_declaration":      {kind: KindClass},
		"interface_declaration":   {kind: KindInterface},
		"method_declaration":      {kind: KindFunction},
		"constructor_declaration": {kind: KindFunction},
		"lambda_expression":       {kind: KindClosure},
	},
	parser.LangC:   cSpaces,
	parser.LangCPP: cppSpaces,
	parser.LangRust: {
		"function_item":      {kind: KindFunction},
		"closure_expression": {kind: KindClosure},
		"trait_item":         {kind: KindTrait},
		"impl_item":          {kind: KindImpl},
	},
	parser.LangGo: {
		"function_declaration": {kind: KindFunction},
		"method_declaration":   {kind: KindFunction},
		"func_literal":         {kind: KindClosure},
	},
}

func merge(base, extra map[string]rule) map[string]rule {
	out := make(map[string]rule, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Opens reports whether n opens a new space in lang, and of which kind.
// The root of a file is the unit space and is never reported here.
// Anonymous tokens never open a space, even when their text matches a
// node kind ("function", "class").
func Opens(lang parser.Language, n ast.Node) (Kind, bool) {
	if !n.IsNamed() {
		return "", false
	}
	r, ok := languageSpaces[lang][n.Kind()]
	if !ok {
		return "", false
	}
	if r.bodyField != "" && n.FieldText(r.bodyField) == "" {
		return "", false
	}
	return r.kind, true
}

// nameOf returns the display name of a space node, or "" when anonymous.
func nameOf(lang parser.Language, n ast.Node) string {
	switch lang {
	case parser.LangC, parser.LangCPP:
		if n.Kind() == "function_definition" {
			return declaratorName(n.FieldText("declarator"))
		}
	case parser.LangRust:
		if n.Kind() == "impl_item" {
			if trait := n.FieldText("trait"); trait != "" {
				return trait + " for " + n.FieldText("type")
			}
			return n.FieldText("type")
		}
	}
	return n.FieldText("name")
}

// declaratorName trims the parameter list from a C function declarator,
// "sum(int a, int b)" becomes "sum".
func declaratorName(decl string) string {
	if i := strings.IndexByte(decl, '('); i >= 0 {
		decl = decl[:i]
	}
	decl = strings.TrimLeft(strings.TrimSpace(decl), "*&")
	return strings.TrimSpace(decl)
}
