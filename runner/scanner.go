package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/viant/docpatch/locator"
	"github.com/viant/docpatch/parser"
	"github.com/viant/docpatch/patch"
	"github.com/viant/docpatch/source"
	"github.com/viant/docpatch/status"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"build":        {},
	"dist":         {},
	"vendor":       {},
}

// Backfill documents every function lacking a documentation block across
// the whole repository, independent of revision history. Paths ignored by
// .gitignore are excluded.
func (r *Runner) Backfill(ctx context.Context) (*Summary, error) {
	paths, err := r.scanSourceFiles()
	if err != nil {
		return nil, err
	}
	fileStates, err := r.store.FileStates(ctx)
	if err != nil {
		return nil, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)
	for _, path := range paths {
		if fileStates[path].Terminal() {
			r.logger.Printf("skipping %s: already done", path)
			continue
		}
		path := path
		r.setFileState(ctx, path, status.FileDiscovered)
		group.Go(func() error {
			r.backfillFile(groupCtx, path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := r.snapshot()
	total := summary.FilesDone + summary.FilesSkipped + summary.FilesFailed
	if total > 0 && summary.FilesDone+summary.FilesSkipped == 0 {
		return summary, fmt.Errorf("no file completed: %s", summary)
	}
	return summary, nil
}

// scanSourceFiles walks the repository root collecting supported source
// files, honoring .gitignore rules when present.
func (r *Runner) scanSourceFiles() ([]string, error) {
	root := r.repo.Root()
	filter := r.filter()
	matcher, _ := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))

	var paths []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		name := entry.Name()
		if entry.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if !filter.Match(rel) || !parser.Supported(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return paths, nil
}

// backfillFile treats every function in the file as unchanged and documents
// the ones whose existing documentation is missing.
func (r *Runner) backfillFile(ctx context.Context, path string) {
	r.setFileState(ctx, path, status.FileAnalyzing)

	file, err := source.Read(filepath.Join(r.repo.Root(), path))
	if err != nil {
		r.failFile(ctx, path, fmt.Errorf("read: %w", err))
		return
	}
	lang, err := parser.LanguageFor(path)
	if err != nil {
		r.failFile(ctx, path, err)
		return
	}
	tree, err := lang.Parse(ctx, file.Content)
	if err != nil {
		r.failFile(ctx, path, err)
		return
	}
	defer tree.Close()
	if tree.HasError() {
		r.logger.Printf("%s has syntax errors; functions inside broken regions are skipped", path)
	}

	policy := locator.Policy{SignatureOnly: r.config.SignatureOnly}
	var qualifying []locator.FunctionChange
	for _, fn := range tree.Functions() {
		fc := locator.FunctionChange{New: fn, Old: fn, Classification: locator.Unchanged}
		if locator.SelectForDocumentation(fc, file.Content, file.Content, policy, patch.HasDocBlock) {
			qualifying = append(qualifying, fc)
		}
	}
	if len(qualifying) == 0 {
		r.setFileState(ctx, path, status.FileSkipped)
		r.count(func(s *Summary) { s.FilesSkipped++ })
		return
	}

	r.setFileState(ctx, path, status.FileDocumenting)
	results := r.documentAll(ctx, path, qualifying, file.Content)
	r.applyResults(ctx, path, file, results)
}
