// Package parser turns raw source bytes into a syntax tree and answers
// function-boundary queries on top of tree-sitter grammars.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is the parse result over one file's bytes. It is owned by the call
// that produced it and is meant to be discarded once function boundaries
// have been extracted.
type Tree struct {
	lang   *Language
	tree   *sitter.Tree
	source []byte
}

// Parse parses src into a best-effort syntax tree. Malformed input never
// fails the parse; tree-sitter recovers with error nodes and Parse only
// returns an error when the runtime itself misbehaves. Each call uses a
// fresh parser instance, so Parse is safe to invoke concurrently.
func (l *Language) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(l.lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	return &Tree{lang: l, tree: tree, source: src}, nil
}

// ParseFile parses source bytes for the language registered for filename.
func ParseFile(ctx context.Context, filename string, src []byte) (*Tree, error) {
	lang, err := LanguageFor(filename)
	if err != nil {
		return nil, err
	}
	return lang.Parse(ctx, src)
}

// Source returns the exact bytes the tree was parsed from.
func (t *Tree) Source() []byte {
	return t.source
}

// Language returns the grammar used to produce the tree.
func (t *Tree) Language() *Language {
	return t.lang
}

// HasError reports whether the tree contains error nodes from recovery.
func (t *Tree) HasError() bool {
	return t.tree.RootNode().HasError()
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Functions enumerates every outermost function in document order.
// Traversal stops at a function boundary, so constructs nested inside a
// body (closures, lambdas, anonymous-class methods) are not reported as
// separate functions; their bytes belong to the enclosing boundary.
// Functions whose nodes sit inside unparseable regions are excluded;
// callers treat those regions as skipped.
func (t *Tree) Functions() []*Function {
	var functions []*Function
	t.collect(t.tree.RootNode(), &functions)
	return functions
}

func (t *Tree) collect(node *sitter.Node, out *[]*Function) {
	kind := t.lang.classify(node)
	if kind != kindNone {
		if fn := t.newFunction(node, kind); fn != nil {
			*out = append(*out, fn)
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		t.collect(node.Child(i), out)
	}
}

func (t *Tree) newFunction(node *sitter.Node, kind nodeKind) *Function {
	if node.HasError() {
		return nil
	}
	name := t.lang.name(node, t.source)
	if name == "" {
		return nil
	}

	// A templated definition owns its template header, so the boundary
	// starts at the template keyword rather than the return type.
	boundary := node
	if parent := node.Parent(); parent != nil && parent.Type() == "template_declaration" {
		boundary = parent
	}

	fn := &Function{
		Name:      name,
		ScopePath: t.lang.scopePath(node, t.source),
		Params:    t.lang.parameters(node, t.source),
		StartByte: int(boundary.StartByte()),
		EndByte:   int(boundary.EndByte()),
		StartLine: int(boundary.StartPoint().Row) + 1,
		EndLine:   int(boundary.EndPoint().Row) + 1,
		BodyStart: -1,
	}
	if kind == kindDefinition {
		if body := t.lang.body(node); body != nil {
			fn.HasBody = true
			fn.BodyStart = int(body.StartByte())
		}
	}
	return fn
}

// FunctionAt returns the function whose byte range contains the offset, or
// nil when the offset falls outside every function. Enumerated boundaries
// never nest, so at most one function can contain the offset.
func (t *Tree) FunctionAt(offset int) *Function {
	for _, fn := range t.Functions() {
		if fn.Contains(offset) {
			return fn
		}
	}
	return nil
}

// FunctionAtLine returns the function spanning the 1-based line. Several
// one-line functions may share a line; the narrowest wins.
func (t *Tree) FunctionAtLine(line int) *Function {
	var narrowest *Function
	for _, fn := range t.Functions() {
		if line < fn.StartLine || line > fn.EndLine {
			continue
		}
		if narrowest == nil || fn.EndLine-fn.StartLine < narrowest.EndLine-narrowest.StartLine {
			narrowest = fn
		}
	}
	return narrowest
}
