// Package locator maps changed byte ranges onto function boundaries and
// classifies each touched function against its old-revision counterpart.
package locator

import (
	"github.com/viant/docpatch/parser"
	"github.com/viant/docpatch/revision"
)

// Classification states how a function relates to the old revision.
type Classification string

const (
	Added     Classification = "ADDED"
	Modified  Classification = "MODIFIED"
	Removed   Classification = "REMOVED"
	Unchanged Classification = "UNCHANGED"
)

// FunctionChange pairs a function in the new content with its old-content
// counterpart. Removed implies New is nil; Added implies Old is nil.
type FunctionChange struct {
	New            *parser.Function
	Old            *parser.Function
	Classification Classification
}

// Identity returns the stable function identity key of whichever side exists.
func (c *FunctionChange) Identity() string {
	if c.New != nil {
		return c.New.Identity()
	}
	if c.Old != nil {
		return c.Old.Identity()
	}
	return ""
}

// Locate reports every function in newTree intersecting a changed range,
// classified against oldTree, plus one Removed entry per old function with
// no new-side match. Correspondence is by qualified name and scope path,
// never by offset, so a function that merely moved stays Unchanged. A range
// spanning a function boundary reports every touched function, never a
// merged one. oldTree may be nil for added files.
func Locate(oldTree, newTree *parser.Tree, ranges []revision.Span) []FunctionChange {
	newFunctions := newTree.Functions()

	oldByIdentity := map[string]*parser.Function{}
	var oldFunctions []*parser.Function
	if oldTree != nil {
		oldFunctions = oldTree.Functions()
		for _, fn := range oldFunctions {
			oldByIdentity[fn.Identity()] = fn
		}
	}
	newByIdentity := map[string]*parser.Function{}
	for _, fn := range newFunctions {
		newByIdentity[fn.Identity()] = fn
	}

	var changes []FunctionChange
	seen := map[string]bool{}
	for _, fn := range newFunctions {
		if !touchesAny(fn, ranges) || seen[fn.Identity()] {
			continue
		}
		seen[fn.Identity()] = true
		change := FunctionChange{New: fn}
		if old, ok := oldByIdentity[fn.Identity()]; ok {
			change.Old = old
			if contentFingerprint(fn, newTree.Source()) == contentFingerprint(old, oldTree.Source()) {
				change.Classification = Unchanged
			} else {
				change.Classification = Modified
			}
		} else {
			change.Classification = Added
		}
		changes = append(changes, change)
	}

	for _, fn := range oldFunctions {
		if _, ok := newByIdentity[fn.Identity()]; ok {
			continue
		}
		changes = append(changes, FunctionChange{Old: fn, Classification: Removed})
	}
	return changes
}

func touchesAny(fn *parser.Function, ranges []revision.Span) bool {
	for _, span := range ranges {
		if fn.Intersects(span.Start, span.End) {
			return true
		}
	}
	return false
}
