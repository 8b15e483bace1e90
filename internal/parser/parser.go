// Package parser provides tree-sitter-based multi-language source code parsing
// with language detection from file extensions. It extracts the top-level
// function- and class-like symbols of a file.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SymbolKind classifies a symbol.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindType     SymbolKind = "type"
)

// Symbol is a top-level definition found in source code.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	StartLine int
	EndLine   int
}

// langInfo holds tree-sitter language metadata: the language name used in
// prompts and which node types count as symbols.
type langInfo struct {
	name      string
	lang      func() *sitter.Language
	funcTypes []string
	typeTypes []string
}

var (
	pythonInfo = langInfo{
		name:      "python",
		lang:      python.GetLanguage,
		funcTypes: []string{"function_definition"},
		typeTypes: []string{"class_definition"},
	}
	javaInfo = langInfo{
		name:      "java",
		lang:      java.GetLanguage,
		funcTypes: []string{"method_declaration"},
		typeTypes: []string{"class_declaration", "interface_declaration", "enum_declaration"},
	}
	javascriptInfo = langInfo{
		name:      "javascript",
		lang:      javascript.GetLanguage,
		funcTypes: []string{"function_declaration", "method_definition"},
		typeTypes: []string{"class_declaration"},
	}
	typescriptInfo = langInfo{
		name:      "typescript",
		lang:      typescript.GetLanguage,
		funcTypes: []string{"function_declaration", "method_definition"},
		typeTypes: []string{"class_declaration", "interface_declaration"},
	}
	tsxInfo = langInfo{
		name:      "tsx",
		lang:      tsx.GetLanguage,
		funcTypes: typescriptInfo.funcTypes,
		typeTypes: typescriptInfo.typeTypes,
	}
	htmlInfo = langInfo{name: "html", lang: html.GetLanguage}
	cssInfo  = langInfo{name: "css", lang: css.GetLanguage}
	cInfo    = langInfo{
		name:      "c",
		lang:      c.GetLanguage,
		funcTypes: []string{"function_definition"},
		typeTypes: []string{"struct_specifier"},
	}
	cppInfo = langInfo{
		name:      "cpp",
		lang:      cpp.GetLanguage,
		funcTypes: []string{"function_definition"},
		typeTypes: []string{"class_specifier", "struct_specifier"},
	}
	goInfo = langInfo{
		name:      "go",
		lang:      golang.GetLanguage,
		funcTypes: []string{"function_declaration", "method_declaration"},
		typeTypes: []string{"type_declaration"},
	}
	kotlinInfo = langInfo{
		name:      "kotlin",
		lang:      kotlin.GetLanguage,
		funcTypes: []string{"function_declaration"},
		typeTypes: []string{"class_declaration", "object_declaration"},
	}
)

// registry maps file extensions to language info for auto-detection.
var registry = map[string]langInfo{
	".py":   pythonInfo,
	".java": javaInfo,
	".js":   javascriptInfo,
	".ts":   typescriptInfo,
	".tsx":  tsxInfo,
	".html": htmlInfo,
	".css":  cssInfo,
	".c":    cInfo,
	".h":    cInfo,
	".cpp":  cppInfo,
	".cc":   cppInfo,
	".cxx":  cppInfo,
	".hpp":  cppInfo,
	".go":   goInfo,
	".kt":   kotlinInfo,
}

// Detect returns the language name for filename, or false when the
// extension is not registered.
func Detect(filename string) (string, bool) {
	info, ok := registry[strings.ToLower(filepath.Ext(filename))]
	return info.name, ok
}

// Extensions returns the registered extensions, sorted.
func Extensions() []string {
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Parser wraps tree-sitter to parse source files with automatic language
// detection. A Parser is not safe for concurrent use.
type Parser struct {
	inner *sitter.Parser
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		inner: sitter.NewParser(),
	}
}

// Parse parses source code from the given filename, auto-detecting the language
// from the file extension. Returns an error for unsupported extensions.
func (p *Parser) Parse(ctx context.Context, filename string, source []byte) (*Tree, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	info, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension %q: language not in registry", ext)
	}

	p.inner.SetLanguage(info.lang())
	sitterTree, err := p.inner.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return &Tree{
		tree:   sitterTree,
		source: source,
		info:   info,
	}, nil
}

// Symbols parses source and returns the names of its top-level symbols.
func (p *Parser) Symbols(ctx context.Context, filename string, source []byte) ([]string, error) {
	tree, err := p.Parse(ctx, filename, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	syms := tree.Symbols()
	names := make([]string, 0, len(syms))
	for _, s := range syms {
		names = append(names, s.Name)
	}
	return names, nil
}

// Tree wraps a parsed tree-sitter syntax tree.
type Tree struct {
	tree   *sitter.Tree
	source []byte
	info   langInfo
}

// Language returns the detected language name.
func (t *Tree) Language() string { return t.info.name }

// RootNode returns the root node of the parsed syntax tree.
func (t *Tree) RootNode() *sitter.Node {
	return t.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Symbols returns the top-level functions and types in source order. Nodes
// nested inside a symbol (methods of a class, closures) are not reported.
func (t *Tree) Symbols() []Symbol {
	kinds := make(map[string]SymbolKind, len(t.info.funcTypes)+len(t.info.typeTypes))
	for _, ft := range t.info.funcTypes {
		kinds[ft] = KindFunction
	}
	for _, tt := range t.info.typeTypes {
		kinds[tt] = KindType
	}

	var syms []Symbol
	walkTop(t.RootNode(), func(node *sitter.Node) bool {
		kind, ok := kinds[node.Type()]
		if !ok {
			return false
		}
		name := symbolName(node, t.source)
		if name == "" {
			// Anonymous structs and forward declarations still stop the descent.
			return true
		}
		syms = append(syms, Symbol{
			Name:      name,
			Kind:      kind,
			StartLine: int(node.StartPoint().Row) + 1, // 0-indexed to 1-indexed
			EndLine:   int(node.EndPoint().Row) + 1,
		})
		return true
	})

	return syms
}

// walkTop performs a depth-first traversal, calling match for each node and
// skipping the children of nodes for which match returns true.
func walkTop(node *sitter.Node, match func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if match(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			walkTop(child, match)
		}
	}
}

// symbolName finds the identifier of a symbol node. It checks the "name"
// field first, then the C/C++ declarator chain, then the Go type_spec, and
// finally Kotlin's unnamed identifier children.
func symbolName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(source)
	}

	// function_definition -> declarator (function_declarator) -> declarator ...
	if decl := node.ChildByFieldName("declarator"); decl != nil {
		for {
			inner := decl.ChildByFieldName("declarator")
			if inner == nil {
				return decl.Content(source)
			}
			decl = inner
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_spec", "type_alias":
			if n := child.ChildByFieldName("name"); n != nil {
				return n.Content(source)
			}
		case "type_identifier", "simple_identifier":
			return child.Content(source)
		}
	}

	return ""
}
