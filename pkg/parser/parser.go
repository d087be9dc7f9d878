package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/panbanda/spaces/pkg/ast"
	"github.com/panbanda/spaces/pkg/ast/treesitter"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage is returned when no grammar is registered for a language or path.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language represents a supported programming language.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangMozjs      Language = "mozjs"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangKotlin     Language = "kotlin"
	LangBash       Language = "bash"
	LangUnknown    Language = "unknown"
)

// Languages lists every language with a registered grammar.
func Languages() []Language {
	return []Language{
		LangPython, LangJavaScript, LangMozjs, LangTypeScript, LangTSX,
		LangJava, LangC, LangCPP, LangRust, LangGo, LangKotlin, LangBash,
	}
}

// ParseLanguage converts a language name to a Language, returning
// LangUnknown for names without a grammar.
func ParseLanguage(s string) Language {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range Languages() {
		if l == lang {
			return l
		}
	}
	return LangUnknown
}

// Parser wraps tree-sitter for multi-language parsing. A Parser is not safe
// for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the tree root as an ast.Node.
func (r *ParseResult) Root() ast.Node {
	return treesitter.Wrap(r.Tree.RootNode(), r.Source)
}

// Close releases the syntax tree.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
	}
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// Parse parses source code with a specified language.
func (p *Parser) Parse(source []byte, lang Language, path string) (*ParseResult, error) {
	return p.ParseCtx(context.Background(), source, lang, path)
}

// ParseCtx parses source code with a specified language, aborting when ctx is cancelled.
func (p *Parser) ParseCtx(ctx context.Context, source []byte, lang Language, path string) (*ParseResult, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a Language.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return python.GetLanguage(), nil
	case LangJavaScript, LangMozjs:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangC:
		return c.GetLanguage(), nil
	case LangCPP:
		return cpp.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	case LangBash:
		return bash.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsm":
		return LangMozjs
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".jsx":
		return LangTSX // Use TSX parser for JSX
	case ".java":
		return LangJava
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".hh":
		return LangCPP
	case ".rs":
		return LangRust
	case ".go":
		return LangGo
	case ".kt", ".kts":
		return LangKotlin
	case ".sh", ".bash":
		return LangBash
	default:
		return LangUnknown
	}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}
