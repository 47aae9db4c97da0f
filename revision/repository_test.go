package revision_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docpatch/revision"
	"github.com/viant/docpatch/source"
)

// initFixtureRepo creates a throwaway git repository with one committed
// C++ file and returns its root.
func initFixtureRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := t.TempDir()
	gitFixture(t, root, "init", "-q", "-b", "main")
	writeFixture(t, root, "engine.cpp", "int start() {\n    return 1;\n}\n")
	gitFixture(t, root, "add", ".")
	gitFixture(t, root, "commit", "-q", "-m", "initial")
	return root
}

func gitFixture(t *testing.T, root string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=fixture", "GIT_AUTHOR_EMAIL=fixture@example.com",
		"GIT_COMMITTER_NAME=fixture", "GIT_COMMITTER_EMAIL=fixture@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func writeFixture(t *testing.T, root, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte(content), 0o644))
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := revision.Open(t.TempDir())
	assert.ErrorIs(t, err, revision.ErrNotARepository)
}

func TestResolveRef(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)
	ctx := context.Background()

	hash, err := repo.ResolveRef(ctx, "HEAD")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	resolved, err := repo.ResolveRef(ctx, revision.WorkingTree)
	require.NoError(t, err)
	assert.Equal(t, revision.WorkingTree, resolved)

	_, err = repo.ResolveRef(ctx, "no-such-branch")
	assert.ErrorIs(t, err, revision.ErrRevisionNotFound)
}

func TestDiff_WorkingTreeChanges(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)
	ctx := context.Background()

	writeFixture(t, root, "engine.cpp", "int start() {\n    return 2;\n}\n")
	writeFixture(t, root, "fresh.cpp", "int stop() {\n    return 0;\n}\n")
	gitFixture(t, root, "add", "fresh.cpp")

	changes, err := repo.Diff(ctx, "HEAD", revision.WorkingTree, revision.NewFilter([]string{".cpp"}))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byPath := map[string]revision.Change{}
	for _, change := range changes {
		byPath[change.Path] = change
	}

	modified := byPath["engine.cpp"]
	assert.Equal(t, revision.Modified, modified.Kind)
	require.Len(t, modified.Ranges, 1)
	// The changed range covers the edited second line.
	content := "int start() {\n    return 2;\n}\n"
	assert.Equal(t, 14, modified.Ranges[0].Start)
	assert.Equal(t, 28, modified.Ranges[0].End)
	assert.Equal(t, "    return 2;\n", content[modified.Ranges[0].Start:modified.Ranges[0].End])

	added := byPath["fresh.cpp"]
	assert.Equal(t, revision.Added, added.Kind)
	assert.Equal(t, []revision.Span{{Start: 0, End: 29}}, added.Ranges)
}

func TestDiff_RangesIndexDecodedContent(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)
	ctx := context.Background()

	// A Windows-1252 header of 0xE9 bytes decodes to twice its raw width,
	// so raw and decoded byte offsets diverge below the edited line.
	header := "// " + strings.Repeat("\xe9", 60) + "\n"
	initial := header + "int one() {\n    return 1;\n}\nint two() {\n    return 2;\n}\n"
	writeFixture(t, root, "legacy.cpp", initial)
	gitFixture(t, root, "add", "legacy.cpp")
	gitFixture(t, root, "commit", "-q", "-m", "legacy header")

	edited := strings.Replace(initial, "return 2;", "return 2 + 0;", 1)
	writeFixture(t, root, "legacy.cpp", edited)

	changes, err := repo.Diff(ctx, "HEAD", revision.WorkingTree, revision.NewFilter([]string{".cpp"}))
	require.NoError(t, err)
	require.Len(t, changes, 1)

	decoded, encoding, err := source.Decode([]byte(edited))
	require.NoError(t, err)
	require.Equal(t, source.Windows1252, encoding)

	require.Len(t, changes[0].Ranges, 1)
	span := changes[0].Ranges[0]
	assert.Equal(t, "    return 2 + 0;\n", string(decoded[span.Start:span.End]))
}

func TestDiff_DeletedFileHasNoRanges(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "engine.cpp")))

	changes, err := repo.Diff(context.Background(), "HEAD", revision.WorkingTree, nil)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, revision.Deleted, changes[0].Kind)
	assert.Empty(t, changes[0].Ranges)
}

func TestDiff_UnknownRef(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)

	_, err = repo.Diff(context.Background(), "deadbeef", revision.WorkingTree, nil)
	assert.ErrorIs(t, err, revision.ErrRevisionNotFound)
}

func TestFileContentAt(t *testing.T) {
	root := initFixtureRepo(t)
	repo, err := revision.Open(root)
	require.NoError(t, err)
	ctx := context.Background()

	writeFixture(t, root, "engine.cpp", "int start() {\n    return 2;\n}\n")

	committed, err := repo.FileContentAt(ctx, "engine.cpp", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "int start() {\n    return 1;\n}\n", string(committed))

	worktree, err := repo.FileContentAt(ctx, "engine.cpp", revision.WorkingTree)
	require.NoError(t, err)
	assert.Equal(t, "int start() {\n    return 2;\n}\n", string(worktree))
}
