package locator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docpatch/locator"
	"github.com/viant/docpatch/parser"
	"github.com/viant/docpatch/revision"
)

func parseCpp(t *testing.T, src string) *parser.Tree {
	t.Helper()
	lang, err := parser.LanguageFor("sample.cpp")
	require.NoError(t, err)
	tree, err := lang.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

// spanOf returns the byte range of the snippet inside src.
func spanOf(t *testing.T, src, snippet string) revision.Span {
	t.Helper()
	start := strings.Index(src, snippet)
	require.GreaterOrEqual(t, start, 0)
	return revision.Span{Start: start, End: start + len(snippet)}
}

func TestLocate_ModifiedBody(t *testing.T) {
	oldSrc := "int add(int a, int b) {\n    return a + b;\n}\n"
	newSrc := "int add(int a, int b) {\n    return a + b + 0;\n}\n"

	oldTree := parseCpp(t, oldSrc)
	newTree := parseCpp(t, newSrc)

	changes := locator.Locate(oldTree, newTree, []revision.Span{spanOf(t, newSrc, "return a + b + 0;")})
	require.Len(t, changes, 1)
	assert.Equal(t, locator.Modified, changes[0].Classification)
	assert.NotNil(t, changes[0].Old)
	assert.NotNil(t, changes[0].New)
}

func TestLocate_AddedFunction(t *testing.T) {
	oldSrc := "int add(int a, int b) {\n    return a + b;\n}\n"
	newSrc := oldSrc + "\nint sub(int a, int b) {\n    return a - b;\n}\n"

	changes := locator.Locate(parseCpp(t, oldSrc), parseCpp(t, newSrc), []revision.Span{
		spanOf(t, newSrc, "int sub(int a, int b) {\n    return a - b;\n}"),
	})
	require.Len(t, changes, 1)
	assert.Equal(t, locator.Added, changes[0].Classification)
	assert.Nil(t, changes[0].Old)
	assert.Equal(t, "sub", changes[0].New.Name)
}

func TestLocate_RemovedFunction(t *testing.T) {
	oldSrc := "int add(int a, int b) {\n    return a + b;\n}\n\nint sub(int a, int b) {\n    return a - b;\n}\n"
	newSrc := "int add(int a, int b) {\n    return a + b;\n}\n"

	changes := locator.Locate(parseCpp(t, oldSrc), parseCpp(t, newSrc), nil)
	require.Len(t, changes, 1)
	assert.Equal(t, locator.Removed, changes[0].Classification)
	assert.Nil(t, changes[0].New)
	assert.Equal(t, "sub", changes[0].Old.Name)
}

func TestLocate_MovedFunctionIsUnchanged(t *testing.T) {
	oldSrc := "int add(int a, int b) {\n    return a + b;\n}\n"
	newSrc := "// file header\n\n" + oldSrc

	// The whole file is reported changed, but the function text is identical.
	changes := locator.Locate(parseCpp(t, oldSrc), parseCpp(t, newSrc), []revision.Span{{Start: 0, End: len(newSrc)}})
	require.Len(t, changes, 1)
	assert.Equal(t, locator.Unchanged, changes[0].Classification)
}

func TestLocate_RangeSpanningBoundaryReportsBothFunctions(t *testing.T) {
	oldSrc := "int one() {\n    return 1;\n}\n"
	newSrc := "int one() {\n    return 1;\n}\nint two() {\n    return 2;\n}\n"

	// A single edit touching the end of one and all of two.
	span := revision.Span{Start: strings.Index(newSrc, "return 1;"), End: len(newSrc)}
	changes := locator.Locate(parseCpp(t, oldSrc), parseCpp(t, newSrc), []revision.Span{span})

	require.Len(t, changes, 2)
	assert.Equal(t, locator.Unchanged, changes[0].Classification)
	assert.Equal(t, "one", changes[0].New.Name)
	assert.Equal(t, locator.Added, changes[1].Classification)
	assert.Equal(t, "two", changes[1].New.Name)
}

func TestLocate_AddedFile(t *testing.T) {
	newSrc := "int fresh() {\n    return 42;\n}\n"
	changes := locator.Locate(nil, parseCpp(t, newSrc), []revision.Span{{Start: 0, End: len(newSrc)}})
	require.Len(t, changes, 1)
	assert.Equal(t, locator.Added, changes[0].Classification)
}

func TestLocate_ClassificationComplete(t *testing.T) {
	oldSrc := "int a() { return 1; }\nint b() { return 2; }\n"
	newSrc := "int a() { return 1; }\nint b() { return 3; }\nint c() { return 4; }\n"

	changes := locator.Locate(parseCpp(t, oldSrc), parseCpp(t, newSrc), []revision.Span{{Start: 0, End: len(newSrc)}})
	valid := map[locator.Classification]bool{
		locator.Added:     true,
		locator.Modified:  true,
		locator.Removed:   true,
		locator.Unchanged: true,
	}
	for _, change := range changes {
		assert.True(t, valid[change.Classification])
		if change.Classification == locator.Removed {
			assert.Nil(t, change.New)
		}
		if change.Classification == locator.Added {
			assert.Nil(t, change.Old)
		}
	}
}
