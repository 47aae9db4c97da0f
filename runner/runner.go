// Package runner sequences files and functions through diffing, locating,
// documentation generation, and patch application, persisting per-item
// progress so interrupted runs resume.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/viant/docpatch/generator"
	"github.com/viant/docpatch/locator"
	"github.com/viant/docpatch/parser"
	"github.com/viant/docpatch/patch"
	"github.com/viant/docpatch/revision"
	"github.com/viant/docpatch/source"
	"github.com/viant/docpatch/status"
)

// Summary counts terminal states for one run.
type Summary struct {
	FilesDone        int
	FilesSkipped     int
	FilesFailed      int
	FunctionsDone    int
	FunctionsFailed  int
	FunctionsSkipped int
}

func (s *Summary) String() string {
	return fmt.Sprintf("files: %d done, %d skipped, %d failed; functions: %d done, %d failed, %d skipped",
		s.FilesDone, s.FilesSkipped, s.FilesFailed, s.FunctionsDone, s.FunctionsFailed, s.FunctionsSkipped)
}

// Runner drives the per-file state machine. Files are independent units of
// work; a failure in one never aborts its siblings.
type Runner struct {
	config *Config
	repo   *revision.Repo
	gen    generator.Generator
	store  *status.Store
	logger *log.Logger

	mu      sync.Mutex
	summary Summary
}

// New wires a runner with the configured retry policy around the generator.
func New(config *Config, repo *revision.Repo, gen generator.Generator, store *status.Store) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Runner{
		config: config,
		repo:   repo,
		gen:    generator.WithRetry(gen, config.Generator.MaxAttempts, config.Generator.Backoff()),
		store:  store,
		logger: log.New(os.Stderr, "docpatch: ", log.LstdFlags),
	}
}

// Run documents every function affected between oldRef and the working
// tree. The run succeeds when at least one file reaches a done or skipped
// state; per-file failures are recorded, not propagated.
func (r *Runner) Run(ctx context.Context, oldRef string) (*Summary, error) {
	filter := r.filter()
	changes, err := r.repo.Diff(ctx, oldRef, revision.WorkingTree, filter)
	if err != nil {
		return nil, err
	}
	fileStates, err := r.store.FileStates(ctx)
	if err != nil {
		return nil, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)
	for _, change := range changes {
		if fileStates[change.Path].Terminal() {
			r.logger.Printf("skipping %s: already done", change.Path)
			continue
		}
		change := change
		r.setFileState(ctx, change.Path, status.FileDiscovered)
		group.Go(func() error {
			r.processChange(groupCtx, change)
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

func (r *Runner) filter() *revision.Filter {
	extensions := r.config.Extensions
	if len(extensions) == 0 {
		extensions = parser.Extensions()
	}
	return revision.NewFilter(extensions)
}

func (r *Runner) snapshot() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := r.summary
	return &copied
}

func (r *Runner) count(update func(*Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.summary)
}

// processChange walks one file through the state machine. All failures are
// recorded against the file or function; nothing propagates to siblings.
func (r *Runner) processChange(ctx context.Context, change revision.Change) {
	if change.Kind == revision.Deleted {
		r.retireDeleted(ctx, change)
		return
	}

	r.setFileState(ctx, change.Path, status.FileAnalyzing)

	file, err := source.Read(filepath.Join(r.repo.Root(), change.Path))
	if err != nil {
		r.failFile(ctx, change.Path, fmt.Errorf("read: %w", err))
		return
	}
	lang, err := parser.LanguageFor(change.Path)
	if err != nil {
		r.failFile(ctx, change.Path, err)
		return
	}
	newTree, err := lang.Parse(ctx, file.Content)
	if err != nil {
		r.failFile(ctx, change.Path, err)
		return
	}
	defer newTree.Close()
	if newTree.HasError() {
		r.logger.Printf("%s has syntax errors; functions inside broken regions are skipped", change.Path)
	}

	oldTree, oldSrc := r.oldTree(ctx, change, lang)
	if oldTree != nil {
		defer oldTree.Close()
	}

	functionChanges := locator.Locate(oldTree, newTree, change.Ranges)
	policy := locator.Policy{SignatureOnly: r.config.SignatureOnly}

	var qualifying []locator.FunctionChange
	for _, fc := range functionChanges {
		if fc.Classification == locator.Removed {
			r.upsert(ctx, change.Path, fc.Identity(), status.Skipped, "removed in new revision")
			r.count(func(s *Summary) { s.FunctionsSkipped++ })
			continue
		}
		if locator.SelectForDocumentation(fc, oldSrc, file.Content, policy, patch.HasDocBlock) {
			qualifying = append(qualifying, fc)
		}
	}
	if len(qualifying) == 0 {
		r.setFileState(ctx, change.Path, status.FileSkipped)
		r.count(func(s *Summary) { s.FilesSkipped++ })
		return
	}

	r.setFileState(ctx, change.Path, status.FileDocumenting)
	results := r.documentAll(ctx, change.Path, qualifying, file.Content)
	r.applyResults(ctx, change.Path, file, results)
}

// applyResults merges per-function patches and writes the file once. All
// patches are computed before any byte is written so offsets stay valid.
func (r *Runner) applyResults(ctx context.Context, path string, file *source.File, results []documentResult) {
	var combined patch.Patch
	var documented []locator.FunctionChange
	for _, result := range results {
		if result.err != nil {
			r.upsert(ctx, path, result.change.Identity(), status.Failed, result.err.Error())
			r.count(func(s *Summary) { s.FunctionsFailed++ })
			continue
		}
		combined.Merge(result.patch)
		documented = append(documented, result.change)
	}
	if len(documented) == 0 {
		r.failFile(ctx, path, errors.New("generator failed for every function"))
		return
	}

	r.setFileState(ctx, path, status.FileApplying)
	applied, err := combined.Apply(file.Content)
	if err != nil {
		// Overlapping ranges are fatal and non-retriable for this file.
		r.failFile(ctx, path, err)
		return
	}
	if err := file.WithContent(applied).WriteAtomic(); err != nil {
		r.failFile(ctx, path, err)
		return
	}

	for _, fc := range documented {
		r.upsert(ctx, path, fc.Identity(), status.Done, "")
		r.count(func(s *Summary) { s.FunctionsDone++ })
	}
	r.setFileState(ctx, path, status.FileDone)
	r.count(func(s *Summary) { s.FilesDone++ })
	r.logger.Printf("documented %d function(s) in %s", len(documented), path)
}

// retireDeleted marks every function of a deleted file skipped so stale
// status entries do not linger as pending.
func (r *Runner) retireDeleted(ctx context.Context, change revision.Change) {
	raw, err := r.repo.FileContentAt(ctx, change.OldPath, change.OldRef)
	if err == nil {
		if lang, langErr := parser.LanguageFor(change.OldPath); langErr == nil {
			if content, _, decodeErr := source.Decode(raw); decodeErr == nil {
				if tree, parseErr := lang.Parse(ctx, content); parseErr == nil {
					for _, fn := range tree.Functions() {
						r.upsert(ctx, change.Path, fn.Identity(), status.Skipped, "file deleted")
						r.count(func(s *Summary) { s.FunctionsSkipped++ })
					}
					tree.Close()
				}
			}
		}
	}
	r.setFileState(ctx, change.Path, status.FileSkipped)
	r.count(func(s *Summary) { s.FilesSkipped++ })
}

// oldTree parses the file's old-revision content; added files have none.
func (r *Runner) oldTree(ctx context.Context, change revision.Change, lang *parser.Language) (*parser.Tree, []byte) {
	if change.Kind == revision.Added {
		return nil, nil
	}
	raw, err := r.repo.FileContentAt(ctx, change.OldPath, change.OldRef)
	if err != nil {
		r.logger.Printf("old content unavailable for %s: %v", change.Path, err)
		return nil, nil
	}
	content, _, err := source.Decode(raw)
	if err != nil {
		r.logger.Printf("old content undecodable for %s: %v", change.Path, err)
		return nil, nil
	}
	tree, err := lang.Parse(ctx, content)
	if err != nil {
		r.logger.Printf("old content unparseable for %s: %v", change.Path, err)
		return nil, nil
	}
	return tree, content
}

type documentResult struct {
	change locator.FunctionChange
	patch  patch.Patch
	err    error
}

// documentAll generates documentation for every qualifying function in one
// file. Generator calls may run concurrently; patches are only composed
// here, never applied, so in-file offsets stay valid.
func (r *Runner) documentAll(ctx context.Context, path string, qualifying []locator.FunctionChange, src []byte) []documentResult {
	results := make([]documentResult, len(qualifying))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)
	for i, fc := range qualifying {
		i, fc := i, fc
		r.upsert(ctx, path, fc.Identity(), status.Pending, "")
		group.Go(func() error {
			composed, err := r.documentFunction(groupCtx, fc.New, src)
			results[i] = documentResult{change: fc, patch: composed, err: err}
			return nil
		})
	}
	group.Wait()
	return results
}

// documentFunction composes the block-doc patch and, when enabled, inline
// comment insertions. An inline failure never fails the function as long as
// the block doc succeeded; rejected entries are logged individually.
func (r *Runner) documentFunction(ctx context.Context, fn *parser.Function, src []byte) (patch.Patch, error) {
	text := fn.Content(src)
	block, err := r.gen.GenerateBlockDoc(ctx, text)
	if err != nil {
		return patch.Patch{}, err
	}
	composed := patch.ComposeBlockDoc(fn, src, block)

	if r.config.InlineComments {
		comments, err := r.gen.GenerateInlineComments(ctx, text)
		if err != nil {
			r.logger.Printf("inline comments failed for %s: %v", fn.QualifiedName(), err)
			return composed, nil
		}
		inline, rejected := patch.ComposeInlineComments(fn, src, comments)
		for _, rejection := range rejected {
			r.logger.Printf("%v", rejection)
		}
		composed.Merge(inline)
	}
	return composed, nil
}

func (r *Runner) upsert(ctx context.Context, path, function string, state status.State, detail string) {
	err := r.store.Upsert(ctx, status.Entry{Path: path, Function: function, State: state, Detail: detail})
	if err != nil {
		r.logger.Printf("status upsert failed for %s %s: %v", path, function, err)
	}
}

func (r *Runner) setFileState(ctx context.Context, path string, state status.FileState) {
	if err := r.store.UpsertFile(ctx, path, state); err != nil {
		r.logger.Printf("file status upsert failed for %s: %v", path, err)
	}
}

func (r *Runner) failFile(ctx context.Context, path string, err error) {
	r.logger.Printf("file %s failed: %v", path, err)
	if upsertErr := r.store.UpsertFile(ctx, path, status.FileFailed); upsertErr != nil {
		r.logger.Printf("file status upsert failed for %s: %v", path, upsertErr)
	}
	r.count(func(s *Summary) { s.FilesFailed++ })
}
