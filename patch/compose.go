package patch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/viant/docpatch/generator"
	"github.com/viant/docpatch/parser"
)

// docLookback bounds how far above a function an existing documentation
// block is searched for.
const docLookback = 4096

// blockOpeners are recognized documentation block openers.
var blockOpeners = []string{"/**", "/*!"}

// linePrefixes are recognized per-line documentation markers.
var linePrefixes = []string{"///", "//!", "//"}

// OutOfRangeError reports an inline comment targeting a line outside its
// function. The entry is rejected, not applied; sibling entries still apply.
type OutOfRangeError struct {
	Function string
	Line     int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("inline comment for %s targets line %d outside the function", e.Function, e.Line)
}

// ComposeBlockDoc computes the edit that attaches a documentation block to
// the function. An immediately preceding recognized block is replaced in
// place; otherwise the rendered block is inserted before the function's
// first line. Every generated line carries the function's indentation.
func ComposeBlockDoc(fn *parser.Function, src []byte, text string) Patch {
	lineStart := startOfLine(src, fn.StartByte)
	rendered := renderBlock(text, indentationAt(src, lineStart))

	var result Patch
	if blockStart, ok := docBlockStart(fn, src); ok {
		result.Add(Edit{Start: blockStart, End: lineStart, Replacement: rendered})
		return result
	}
	result.Add(Edit{Start: lineStart, End: lineStart, Replacement: rendered})
	return result
}

// ComposeInlineComments converts line annotations into line-start
// insertions. Lines are 1-based relative to the function start; entries
// outside the function's line range are reported as OutOfRangeError and the
// remaining entries still compose.
func ComposeInlineComments(fn *parser.Function, src []byte, comments []generator.InlineComment) (Patch, []error) {
	var result Patch
	var rejected []error
	for _, comment := range comments {
		absolute := fn.StartLine + comment.Line - 1
		if comment.Line < 1 || absolute > fn.EndLine {
			rejected = append(rejected, &OutOfRangeError{Function: fn.QualifiedName(), Line: comment.Line})
			continue
		}
		offset := offsetOfLine(src, absolute)
		indent := indentationAt(src, offset)
		insertion := indent + "// " + strings.TrimSpace(comment.Text) + "\n"
		result.Add(Edit{Start: offset, End: offset, Replacement: []byte(insertion)})
	}
	return result, rejected
}

// HasDocBlock reports whether a recognized documentation block immediately
// precedes the function; it satisfies the classifier's predicate contract.
func HasDocBlock(fn *parser.Function, src []byte) bool {
	_, ok := docBlockStart(fn, src)
	return ok
}

// docBlockStart finds the byte offset of the first line of an existing
// documentation block whose terminator ends just above the function's start
// line with only whitespace between, within a fixed lookback window.
func docBlockStart(fn *parser.Function, src []byte) (int, bool) {
	lineStart := startOfLine(src, fn.StartByte)
	before := src[:lineStart]
	end := len(bytes.TrimRight(before, " \t\r\n"))
	if end == 0 || lineStart-end > docLookback {
		return 0, false
	}

	tail := before[:end]
	if bytes.HasSuffix(tail, []byte("*/")) {
		opener := bytes.LastIndex(tail, []byte("/*"))
		if opener < 0 || lineStart-opener > docLookback {
			return 0, false
		}
		for _, prefix := range blockOpeners {
			if bytes.HasPrefix(tail[opener:], []byte(prefix)) {
				return startOfLine(src, opener), true
			}
		}
		return 0, false
	}
	return lineCommentBlockStart(src, end)
}

// lineCommentBlockStart walks upward over a contiguous run of line-comment
// lines ending at offset end.
func lineCommentBlockStart(src []byte, end int) (int, bool) {
	blockStart := -1
	cursor := startOfLine(src, end)
	for {
		line := lineAt(src, cursor)
		trimmed := strings.TrimLeft(line, " \t")
		if !hasAnyPrefix(trimmed, linePrefixes) {
			break
		}
		blockStart = cursor
		if cursor == 0 {
			break
		}
		cursor = startOfLine(src, cursor-1)
		if end-cursor > docLookback {
			break
		}
	}
	if blockStart < 0 {
		return 0, false
	}
	return blockStart, true
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// renderBlock indents every generated line and terminates the block with a
// single line break so it sits immediately above the function line.
func renderBlock(text, indent string) []byte {
	trimmed := strings.TrimRight(text, " \t\r\n")
	lines := strings.Split(trimmed, "\n")
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(indent)
		builder.WriteString(strings.TrimRight(line, " \t\r"))
		builder.WriteString("\n")
	}
	return []byte(builder.String())
}

// startOfLine returns the offset of the first byte of the line containing
// the given offset.
func startOfLine(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	idx := bytes.LastIndexByte(src[:offset], '\n')
	return idx + 1
}

// offsetOfLine returns the byte offset of the start of the 1-based line.
func offsetOfLine(src []byte, line int) int {
	current := 1
	offset := 0
	for current < line {
		next := bytes.IndexByte(src[offset:], '\n')
		if next < 0 {
			return len(src)
		}
		offset += next + 1
		current++
	}
	return offset
}

// lineAt returns the text of the line starting at the given offset.
func lineAt(src []byte, lineStart int) string {
	rest := src[lineStart:]
	if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	return string(rest)
}

// indentationAt returns the leading whitespace of the line starting at the
// given offset.
func indentationAt(src []byte, lineStart int) string {
	line := lineAt(src, lineStart)
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
