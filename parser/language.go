package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
)

// nodeKind classifies a syntax node with respect to function boundaries.
type nodeKind int

const (
	kindNone nodeKind = iota
	// kindDefinition is a function with a body.
	kindDefinition
	// kindDeclaration is a body-less prototype or abstract declaration.
	kindDeclaration
)

// Language describes how function boundaries are recognized for one grammar.
// Each supported language provides node classification, name and parameter
// extraction, and the enclosing scope path used for function identity.
type Language struct {
	Name       string
	Extensions []string

	lang       *sitter.Language
	classify   func(node *sitter.Node) nodeKind
	name       func(node *sitter.Node, source []byte) string
	parameters func(node *sitter.Node, source []byte) string
	scopePath  func(node *sitter.Node, source []byte) []string
	body       func(node *sitter.Node) *sitter.Node
}

var languages = []*Language{cppLanguage, cLanguage, goLanguage, javaLanguage}

var extensionIndex = buildExtensionIndex()

func buildExtensionIndex() map[string]*Language {
	index := make(map[string]*Language)
	for _, lang := range languages {
		for _, ext := range lang.Extensions {
			index[ext] = lang
		}
	}
	return index
}

// LanguageFor returns the language registered for the file's extension.
func LanguageFor(filename string) (*Language, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := extensionIndex[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	return lang, nil
}

// Supported reports whether a language is registered for the file's extension.
func Supported(filename string) bool {
	_, ok := extensionIndex[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions returns every file extension with a registered language.
func Extensions() []string {
	var result []string
	for _, lang := range languages {
		result = append(result, lang.Extensions...)
	}
	return result
}

var cppLanguage = &Language{
	Name:       "cpp",
	Extensions: []string{".cpp", ".hpp", ".cc", ".hh", ".cxx", ".hxx", ".h"},
	lang:       cpp.GetLanguage(),
	classify:   classifyCFamily,
	name:       cppFunctionName,
	parameters: cppParameters,
	scopePath:  cppScopePath,
	body:       fieldBody,
}

var cLanguage = &Language{
	Name:       "c",
	Extensions: []string{".c"},
	lang:       tsc.GetLanguage(),
	classify:   classifyCFamily,
	name:       cppFunctionName,
	parameters: cppParameters,
	scopePath:  cppScopePath,
	body:       fieldBody,
}

var goLanguage = &Language{
	Name:       "go",
	Extensions: []string{".go"},
	lang:       golang.GetLanguage(),
	classify:   classifyGo,
	name:       fieldNameContent,
	parameters: goParameters,
	scopePath:  goScopePath,
	body:       fieldBody,
}

var javaLanguage = &Language{
	Name:       "java",
	Extensions: []string{".java"},
	lang:       java.GetLanguage(),
	classify:   classifyJava,
	name:       fieldNameContent,
	parameters: javaParameters,
	scopePath:  javaScopePath,
	body:       fieldBody,
}

func fieldBody(node *sitter.Node) *sitter.Node {
	return node.ChildByFieldName("body")
}

func fieldNameContent(node *sitter.Node, source []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return name.Content(source)
}

func classifyCFamily(node *sitter.Node) nodeKind {
	switch node.Type() {
	case "function_definition":
		return kindDefinition
	case "declaration", "field_declaration":
		if findFunctionDeclarator(node) != nil {
			return kindDeclaration
		}
	}
	return kindNone
}

// findFunctionDeclarator descends through declarator wrappers (pointers,
// references) looking for the function_declarator node.
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	decl := node.ChildByFieldName("declarator")
	for decl != nil {
		if decl.Type() == "function_declarator" {
			return decl
		}
		decl = decl.ChildByFieldName("declarator")
	}
	return nil
}

// cppFunctionName extracts the fully qualified declarator name, skipping
// template argument lists so Foo<T>::bar and Foo::bar hash the same.
func cppFunctionName(node *sitter.Node, source []byte) string {
	decl := findFunctionDeclarator(node)
	if decl == nil {
		return ""
	}
	inner := decl.ChildByFieldName("declarator")
	if inner == nil {
		return ""
	}
	return cppDeclaratorName(inner, source)
}

func cppDeclaratorName(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "identifier", "field_identifier", "destructor_name", "operator_name":
		return node.Content(source)
	case "qualified_identifier":
		var full string
		if scope := node.ChildByFieldName("scope"); scope != nil {
			full = cppDeclaratorName(scope, source) + "::"
		}
		if name := node.ChildByFieldName("name"); name != nil {
			full += cppDeclaratorName(name, source)
		}
		return full
	case "namespace_identifier", "type_identifier":
		return node.Content(source)
	case "template_argument_list":
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if result := cppDeclaratorName(node.Child(i), source); result != "" {
			return result
		}
	}
	return ""
}

func cppParameters(node *sitter.Node, source []byte) string {
	decl := findFunctionDeclarator(node)
	if decl == nil {
		return ""
	}
	params := decl.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	return normalizeWhitespace(params.Content(source))
}

// cppScopePath walks ancestors collecting namespace and class-like scopes.
func cppScopePath(node *sitter.Node, source []byte) []string {
	var segments []string
	for current := node.Parent(); current != nil; current = current.Parent() {
		switch current.Type() {
		case "namespace_definition", "class_specifier", "struct_specifier", "union_specifier":
			if name := current.ChildByFieldName("name"); name != nil {
				segments = append([]string{name.Content(source)}, segments...)
			}
		}
	}
	return segments
}

func classifyGo(node *sitter.Node) nodeKind {
	switch node.Type() {
	case "function_declaration", "method_declaration":
		// Assembly-backed declarations have no block.
		if node.ChildByFieldName("body") == nil {
			return kindDeclaration
		}
		return kindDefinition
	}
	return kindNone
}

func goParameters(node *sitter.Node, source []byte) string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	return normalizeWhitespace(params.Content(source))
}

// goScopePath reports the receiver type for methods so that methods on
// different types with the same name keep distinct identities.
func goScopePath(node *sitter.Node, source []byte) []string {
	if node.Type() != "method_declaration" {
		return nil
	}
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return nil
	}
	if name := goReceiverTypeName(receiver, source); name != "" {
		return []string{name}
	}
	return nil
}

func goReceiverTypeName(receiver *sitter.Node, source []byte) string {
	for i := 0; i < int(receiver.ChildCount()); i++ {
		param := receiver.Child(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Type() == "pointer_type" {
			for j := 0; j < int(typeNode.ChildCount()); j++ {
				if inner := typeNode.Child(j); inner.Type() == "type_identifier" {
					return inner.Content(source)
				}
			}
		}
		if typeNode.Type() == "type_identifier" {
			return typeNode.Content(source)
		}
		return normalizeWhitespace(typeNode.Content(source))
	}
	return ""
}

func classifyJava(node *sitter.Node) nodeKind {
	switch node.Type() {
	case "method_declaration", "constructor_declaration":
		if node.ChildByFieldName("body") == nil {
			return kindDeclaration
		}
		return kindDefinition
	}
	return kindNone
}

func javaParameters(node *sitter.Node, source []byte) string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	return normalizeWhitespace(params.Content(source))
}

func javaScopePath(node *sitter.Node, source []byte) []string {
	var segments []string
	for current := node.Parent(); current != nil; current = current.Parent() {
		switch current.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			if name := current.ChildByFieldName("name"); name != nil {
				segments = append([]string{name.Content(source)}, segments...)
			}
		}
	}
	return segments
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
