// Package patch composes and applies byte-range edits against one file's
// original content. Edits never touch bytes outside their declared ranges.
package patch

import (
	"errors"
	"fmt"
	"sort"
)

// ErrConflict marks an inconsistent edit set: overlapping or out-of-bounds
// ranges. It is fatal for the file being patched.
var ErrConflict = errors.New("patch ranges conflict")

// Edit replaces the half-open byte range [Start, End) of the original
// content with Replacement. Start == End is a pure insertion.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// Patch is an ordered set of non-overlapping edits over one file's original
// offsets. Edits are applied in a single pass that tracks cumulative drift,
// so every offset refers to the content before any edit.
type Patch struct {
	Edits []Edit
}

// Add appends edits to the patch.
func (p *Patch) Add(edits ...Edit) {
	p.Edits = append(p.Edits, edits...)
}

// Merge folds another patch's edits into the receiver.
func (p *Patch) Merge(other Patch) {
	p.Edits = append(p.Edits, other.Edits...)
}

// IsEmpty reports whether the patch carries no edits.
func (p *Patch) IsEmpty() bool {
	return len(p.Edits) == 0
}

// sortEdits orders edits ascending by start offset, keeping insertion order
// for pure insertions at the same offset.
func (p *Patch) sortEdits() {
	sort.SliceStable(p.Edits, func(i, j int) bool {
		if p.Edits[i].Start != p.Edits[j].Start {
			return p.Edits[i].Start < p.Edits[j].Start
		}
		return p.Edits[i].End < p.Edits[j].End
	})
}

// Validate sorts the edits and verifies they are in bounds for a content of
// the given size and free of overlaps.
func (p *Patch) Validate(size int) error {
	p.sortEdits()
	previousEnd := 0
	for _, edit := range p.Edits {
		if edit.Start < 0 || edit.End < edit.Start || edit.End > size {
			return fmt.Errorf("%w: edit [%d,%d) outside content of %d bytes", ErrConflict, edit.Start, edit.End, size)
		}
		if edit.Start < previousEnd {
			return fmt.Errorf("%w: edit [%d,%d) overlaps previous edit ending at %d", ErrConflict, edit.Start, edit.End, previousEnd)
		}
		previousEnd = edit.End
	}
	return nil
}

// Apply produces new content with every edit applied in one left-to-right
// pass. The original slice is never mutated, and bytes outside the declared
// ranges are copied verbatim.
func (p *Patch) Apply(src []byte) ([]byte, error) {
	if err := p.Validate(len(src)); err != nil {
		return nil, err
	}
	result := make([]byte, 0, len(src))
	cursor := 0
	for _, edit := range p.Edits {
		result = append(result, src[cursor:edit.Start]...)
		result = append(result, edit.Replacement...)
		cursor = edit.End
	}
	result = append(result, src[cursor:]...)
	return result, nil
}
