package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Match(t *testing.T) {
	testCases := []struct {
		description string
		extensions  []string
		path        string
		expect      bool
	}{
		{
			description: "nil filter matches everything",
			path:        "pkg/main.rs",
			expect:      true,
		},
		{
			description: "matching extension",
			extensions:  []string{".cpp", ".hpp"},
			path:        "src/engine.cpp",
			expect:      true,
		},
		{
			description: "extension without leading dot is normalized",
			extensions:  []string{"cc"},
			path:        "src/engine.cc",
			expect:      true,
		},
		{
			description: "case insensitive",
			extensions:  []string{".cpp"},
			path:        "src/Engine.CPP",
			expect:      true,
		},
		{
			description: "non-matching extension",
			extensions:  []string{".cpp"},
			path:        "README.md",
			expect:      false,
		},
		{
			description: "empty extension entries are ignored",
			extensions:  []string{"", "  "},
			path:        "anything.go",
			expect:      true,
		},
	}

	for _, testCase := range testCases {
		var filter *Filter
		if testCase.extensions != nil {
			filter = NewFilter(testCase.extensions)
		}
		assert.Equal(t, testCase.expect, filter.Match(testCase.path), testCase.description)
	}
}

func TestParseHunks(t *testing.T) {
	diff := `diff --git a/src/engine.cpp b/src/engine.cpp
index 1234567..89abcde 100644
--- a/src/engine.cpp
+++ b/src/engine.cpp
@@ -10,3 +10,4 @@ int Engine::Start() {
-    old line
+    new line
@@ -20 +21 @@ void Engine::Stop() {
@@ -30,2 +31,0 @@ trailing context
`
	hunks := parseHunks(diff)
	assert.Equal(t, []hunk{
		{StartLine: 10, Count: 4},
		{StartLine: 21, Count: 1},
		{StartLine: 31, Count: 0},
	}, hunks)
}

func TestParseHunks_NoHunks(t *testing.T) {
	assert.Empty(t, parseHunks("not a diff\n"))
}

func TestSpansForHunks(t *testing.T) {
	content := []byte("line one\nline two\nline three\nline four\n")
	// Offsets: line1 at 0, line2 at 9, line3 at 18, line4 at 29, EOF at 39.

	testCases := []struct {
		description string
		hunks       []hunk
		expect      []Span
	}{
		{
			description: "single line",
			hunks:       []hunk{{StartLine: 2, Count: 1}},
			expect:      []Span{{Start: 9, End: 18}},
		},
		{
			description: "multi line",
			hunks:       []hunk{{StartLine: 2, Count: 2}},
			expect:      []Span{{Start: 9, End: 29}},
		},
		{
			description: "deletion becomes zero-width span after the line",
			hunks:       []hunk{{StartLine: 2, Count: 0}},
			expect:      []Span{{Start: 18, End: 18}},
		},
		{
			description: "range past final line clamps to end of content",
			hunks:       []hunk{{StartLine: 4, Count: 5}},
			expect:      []Span{{Start: 29, End: 39}},
		},
		{
			description: "multiple hunks preserve order",
			hunks:       []hunk{{StartLine: 1, Count: 1}, {StartLine: 3, Count: 1}},
			expect:      []Span{{Start: 0, End: 9}, {Start: 18, End: 29}},
		},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, spansForHunks(content, testCase.hunks), testCase.description)
	}
}

func TestLineOffsets_NoTrailingNewline(t *testing.T) {
	offsets := lineOffsets([]byte("one\ntwo"))
	assert.Equal(t, []int{0, 4}, offsets)
	assert.Equal(t, 4, lineStart(offsets, []byte("one\ntwo"), 2))
	assert.Equal(t, 7, lineStart(offsets, []byte("one\ntwo"), 3))
}
