package parser

import "strings"

// Function describes one function boundary inside a parsed file. Offsets are
// valid only against the exact bytes that produced the tree; the boundary
// always includes the full signature through the closing body delimiter.
type Function struct {
	Name      string
	ScopePath []string
	Params    string
	StartByte int
	EndByte   int
	StartLine int // 1-based
	EndLine   int
	HasBody   bool
	BodyStart int // byte offset of the body delimiter, -1 without a body
}

// QualifiedName joins the enclosing scope path with the function name.
func (f *Function) QualifiedName() string {
	if len(f.ScopePath) == 0 {
		return f.Name
	}
	return strings.Join(f.ScopePath, "::") + "::" + f.Name
}

// Identity returns a stable key for the function that survives relocation:
// qualified name plus the normalized parameter signature, so overloads with
// identical names keep distinct identities.
func (f *Function) Identity() string {
	return f.QualifiedName() + f.Params
}

// Contains reports whether the byte offset falls inside the boundary.
func (f *Function) Contains(offset int) bool {
	return offset >= f.StartByte && offset < f.EndByte
}

// Intersects reports whether the half-open byte range [start, end) touches
// the boundary. A zero-width range stands for a pure deletion point and
// intersects any function containing it.
func (f *Function) Intersects(start, end int) bool {
	if start == end {
		return f.Contains(start)
	}
	return start < f.EndByte && end > f.StartByte
}

// Content returns the function text from the producing source bytes.
func (f *Function) Content(source []byte) string {
	return string(source[f.StartByte:f.EndByte])
}

// SignatureText returns the text from the boundary start to the body
// delimiter, or the whole boundary for body-less declarations.
func (f *Function) SignatureText(source []byte) string {
	if f.BodyStart < 0 {
		return f.Content(source)
	}
	return string(source[f.StartByte:f.BodyStart])
}

// LineCount returns the number of lines the boundary spans.
func (f *Function) LineCount() int {
	return f.EndLine - f.StartLine + 1
}
