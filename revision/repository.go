// Package revision resolves git revisions and derives changed byte ranges
// between two revisions, or between a revision and the working tree. It
// depends only on git's CLI diff/show contract, not on repository internals.
package revision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WorkingTree denotes the uncommitted state of the repository when used as
// a new-side revision reference.
const WorkingTree = ""

var (
	// ErrNotARepository is returned when the root path lacks version-control metadata.
	ErrNotARepository = errors.New("not a git repository")
	// ErrRevisionNotFound is returned when a revision reference cannot be resolved.
	ErrRevisionNotFound = errors.New("revision not found")
)

// ChangeKind classifies a changed path.
type ChangeKind string

const (
	Added    ChangeKind = "A"
	Modified ChangeKind = "M"
	Deleted  ChangeKind = "D"
	Renamed  ChangeKind = "R"
)

// Span is a half-open byte range [Start, End) in the new content after
// decoding to UTF-8. A zero-width span marks a pure deletion point.
type Span struct {
	Start int
	End   int
}

// Change records one changed path between two revisions. Ranges are byte
// offsets into the NEW content after decoding to UTF-8; a Change is
// immutable once produced.
type Change struct {
	Path    string
	OldPath string // differs from Path only for renames
	OldRef  string
	NewRef  string
	Kind    ChangeKind
	Ranges  []Span
}

// Repo wraps git CLI access for one repository root.
type Repo struct {
	root string
}

// Open locates the repository containing path and returns a Repo rooted at
// its version-control root. It fails with ErrNotARepository when no
// metadata is found.
func Open(path string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	root := FindGitRoot(absPath)
	if root == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
	}
	return &Repo{root: root}, nil
}

// Root returns the repository root directory.
func (r *Repo) Root() string {
	return r.root
}

func (r *Repo) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("git %s: %s: %w", args[0], detail, err)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

// ResolveRef resolves a revision reference to a commit hash. WorkingTree
// resolves to itself.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	if ref == WorkingTree {
		return WorkingTree, nil
	}
	out, err := r.git(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRevisionNotFound, ref)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// LastCommitBefore resolves the last commit on branch at or before the given
// date (YYYY-MM-DD). An empty branch means the current branch.
func (r *Repo) LastCommitBefore(ctx context.Context, date, branch string) (string, error) {
	if branch == "" {
		current, err := r.CurrentBranch(ctx)
		if err != nil {
			return "", err
		}
		branch = current
	}
	out, err := r.git(ctx, "log", branch, "--until", date, "-1", "--format=%H")
	if err != nil {
		return "", fmt.Errorf("%w: branch %s before %s", ErrRevisionNotFound, branch, date)
	}
	hash := strings.TrimSpace(string(out))
	if hash == "" {
		return "", fmt.Errorf("%w: branch %s before %s", ErrRevisionNotFound, branch, date)
	}
	return hash, nil
}

// FileContentAt returns the file bytes at the given revision, or the working
// tree content for WorkingTree.
func (r *Repo) FileContentAt(ctx context.Context, path, ref string) ([]byte, error) {
	if ref == WorkingTree {
		content, err := os.ReadFile(filepath.Join(r.root, path))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return content, nil
	}
	content, err := r.git(ctx, "show", ref+":"+path)
	if err != nil {
		return nil, fmt.Errorf("show %s at %s: %w", path, ref, err)
	}
	return content, nil
}

// DiffNameStatus lists changed paths with their status between two
// revisions. With newRef == WorkingTree the result is the union of
// committed, staged, and unstaged changes relative to oldRef.
func (r *Repo) DiffNameStatus(ctx context.Context, oldRef, newRef string) (map[string]Change, error) {
	changed := map[string]Change{}
	merge := func(out []byte) {
		for _, line := range strings.Split(string(out), "\n") {
			parts := strings.Split(strings.TrimSpace(line), "\t")
			if len(parts) < 2 {
				continue
			}
			kind := ChangeKind(parts[0][:1])
			change := Change{Path: parts[len(parts)-1], OldPath: parts[1], OldRef: oldRef, NewRef: newRef, Kind: kind}
			if kind != Renamed {
				change.OldPath = change.Path
			}
			changed[change.Path] = change
		}
	}

	if newRef == WorkingTree {
		out, err := r.git(ctx, "diff", "--name-status", oldRef+"..HEAD")
		if err != nil {
			return nil, err
		}
		merge(out)
		out, err = r.git(ctx, "diff", "--cached", "--name-status")
		if err != nil {
			return nil, err
		}
		merge(out)
		out, err = r.git(ctx, "diff", "--name-status")
		if err != nil {
			return nil, err
		}
		merge(out)
		return changed, nil
	}

	out, err := r.git(ctx, "diff", "--name-status", oldRef, newRef)
	if err != nil {
		return nil, err
	}
	merge(out)
	return changed, nil
}
