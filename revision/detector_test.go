package revision_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docpatch/revision"
)

func TestFindGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src", "engine")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, revision.FindGitRoot(nested))
	assert.Equal(t, root, revision.FindGitRoot(root))
}

func TestDetectProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	gitConfig := "[remote \"origin\"]\n\turl = git@github.com:acme/engine.git\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte(gitConfig), 0o644))
	goMod := "module github.com/acme/engine\n\ngo 1.23\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte(goMod), 0o644))

	project, err := revision.DetectProject(root)
	require.NoError(t, err)
	assert.Equal(t, root, project.Root)
	assert.Equal(t, "git@github.com:acme/engine.git", project.Origin)
	assert.Equal(t, "github.com/acme/engine", project.Name)
}

func TestDetectProject_PackageJSONFallback(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name": "engine-ui"}`), 0o644))

	project, err := revision.DetectProject(root)
	require.NoError(t, err)
	assert.Equal(t, "engine-ui", project.Name)
}

func TestDetectProject_NotARepository(t *testing.T) {
	_, err := revision.DetectProject(t.TempDir())
	assert.ErrorIs(t, err, revision.ErrNotARepository)
}
