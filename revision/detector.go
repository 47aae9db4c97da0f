package revision

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/viant/afs"
	"golang.org/x/mod/modfile"
)

// Project describes the repository a run operates on.
type Project struct {
	Root   string // absolute path to the repository root
	Name   string // project name extracted from config files, if any
	Origin string // git origin URL, if configured
}

// FindGitRoot walks up from startDir looking for version-control metadata
// and returns the containing directory, or "" when none is found.
func FindGitRoot(startDir string) string {
	dir := startDir
	homeDir := os.Getenv("HOME")
	for {
		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if homeDir == parent {
			return ""
		}
		dir = parent
	}
	return ""
}

// DetectProject resolves the repository root for path and collects project
// naming information for run summaries.
func DetectProject(path string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	startDir := absPath
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	root := FindGitRoot(startDir)
	if root == "" {
		return nil, ErrNotARepository
	}
	project := &Project{
		Root:   root,
		Origin: extractGitOrigin(root),
	}
	project.Name = extractProjectName(root)
	return project, nil
}

// extractGitOrigin extracts the origin URL from git config.
func extractGitOrigin(gitRoot string) string {
	configPath := filepath.Join(gitRoot, ".git", "config")
	file, err := os.Open(configPath)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	foundRemote := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "[remote \"origin\"]") {
			foundRemote = true
			continue
		}
		if foundRemote && strings.HasPrefix(line, "url = ") {
			return strings.TrimPrefix(line, "url = ")
		}
	}
	return ""
}

// extractProjectName looks for common project config files at the root and
// falls back to the directory name.
func extractProjectName(root string) string {
	if name := extractGoModuleName(filepath.Join(root, "go.mod")); name != "" {
		return name
	}
	if name := extractJSPackageName(filepath.Join(root, "package.json")); name != "" {
		return name
	}
	return filepath.Base(root)
}

func extractGoModuleName(goModPath string) string {
	fs := afs.New()
	content, _ := fs.DownloadWithURL(context.Background(), goModPath)
	if len(content) == 0 {
		return ""
	}
	if mod, _ := modfile.Parse(goModPath, content, nil); mod != nil && mod.Module != nil {
		return mod.Module.Mod.Path
	}
	return ""
}

var packageNameRegex = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)

func extractJSPackageName(packageJSONPath string) string {
	data, err := os.ReadFile(packageJSONPath)
	if err != nil {
		return ""
	}
	matches := packageNameRegex.FindSubmatch(data)
	if len(matches) < 2 {
		return ""
	}
	return string(matches[1])
}
