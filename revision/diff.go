package revision

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/docpatch/source"
)

// Filter restricts a diff to paths carrying one of the given extensions.
// A nil Filter matches every path.
type Filter struct {
	extensions map[string]bool
}

// NewFilter builds a filter from extensions such as ".cpp" or "hpp".
func NewFilter(extensions []string) *Filter {
	index := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		index[ext] = true
	}
	return &Filter{extensions: index}
}

// Match reports whether the path passes the filter.
func (f *Filter) Match(path string) bool {
	if f == nil || len(f.extensions) == 0 {
		return true
	}
	return f.extensions[strings.ToLower(filepath.Ext(path))]
}

// Diff produces one Change per modified path with changed byte ranges
// derived from zero-context diff hunks mapped onto the NEW content after
// decoding to UTF-8, so ranges index the same bytes a parse of that content
// sees regardless of the on-disk encoding. Binary files and paths outside
// the filter are excluded. Deleted paths are reported with no ranges so
// callers can retire their stale state.
func (r *Repo) Diff(ctx context.Context, oldRef, newRef string, filter *Filter) ([]Change, error) {
	if oldRef != WorkingTree {
		if _, err := r.ResolveRef(ctx, oldRef); err != nil {
			return nil, err
		}
	}
	if newRef != WorkingTree {
		if _, err := r.ResolveRef(ctx, newRef); err != nil {
			return nil, err
		}
	}

	nameStatus, err := r.DiffNameStatus(ctx, oldRef, newRef)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(nameStatus))
	for path := range nameStatus {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var changes []Change
	for _, path := range paths {
		change := nameStatus[path]
		if !filter.Match(path) {
			continue
		}
		if change.Kind == Deleted {
			changes = append(changes, change)
			continue
		}
		content, err := r.FileContentAt(ctx, path, newRef)
		if err != nil {
			return nil, err
		}
		if source.IsBinary(content) {
			continue
		}
		decoded, _, err := source.Decode(content)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if change.Kind == Added {
			change.Ranges = []Span{{Start: 0, End: len(decoded)}}
			changes = append(changes, change)
			continue
		}
		hunks, err := r.diffHunks(ctx, path, oldRef, newRef)
		if err != nil {
			return nil, err
		}
		change.Ranges = spansForHunks(decoded, hunks)
		changes = append(changes, change)
	}
	return changes, nil
}

// hunk is the new-side line extent of one diff hunk. Count zero marks a
// pure deletion after StartLine.
type hunk struct {
	StartLine int
	Count     int
}

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

func (r *Repo) diffHunks(ctx context.Context, path, oldRef, newRef string) ([]hunk, error) {
	args := []string{"diff", "-U0", oldRef}
	if newRef != WorkingTree {
		args = append(args, newRef)
	}
	args = append(args, "--", path)
	out, err := r.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", path, err)
	}
	return parseHunks(string(out)), nil
}

// parseHunks extracts the new-side line ranges from unified diff output.
func parseHunks(diff string) []hunk {
	var hunks []hunk
	for _, line := range strings.Split(diff, "\n") {
		matches := hunkHeaderRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		start, _ := strconv.Atoi(matches[1])
		count := 1
		if matches[2] != "" {
			count, _ = strconv.Atoi(matches[2])
		}
		hunks = append(hunks, hunk{StartLine: start, Count: count})
	}
	return hunks
}

// spansForHunks maps line-level hunks to byte ranges in the new content. A
// deletion-only hunk becomes a zero-width span at the deletion point, so a
// hunk that only removes blank lines still produces a changed range.
func spansForHunks(content []byte, hunks []hunk) []Span {
	offsets := lineOffsets(content)
	var spans []Span
	for _, h := range hunks {
		if h.Count == 0 {
			spans = append(spans, Span{Start: lineStart(offsets, content, h.StartLine+1), End: lineStart(offsets, content, h.StartLine+1)})
			continue
		}
		start := lineStart(offsets, content, h.StartLine)
		end := lineStart(offsets, content, h.StartLine+h.Count)
		if end < start {
			end = start
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// lineOffsets returns the byte offset of the start of each 1-based line.
func lineOffsets(content []byte) []int {
	offsets := []int{0}
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineStart returns the byte offset of the given 1-based line, clamping to
// the end of content for lines past the last one.
func lineStart(offsets []int, content []byte, line int) int {
	if line < 1 {
		return 0
	}
	if line > len(offsets) {
		return len(content)
	}
	return offsets[line-1]
}
