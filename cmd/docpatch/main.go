package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viant/docpatch/generator"
	"github.com/viant/docpatch/revision"
	"github.com/viant/docpatch/runner"
	"github.com/viant/docpatch/status"
)

var (
	configPath    string
	root          string
	sinceDate     string
	branch        string
	oldRef        string
	signatureOnly bool
	inline        bool
	concurrency   int
	host          string
	model         string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docpatch",
		Short: "Documents functions affected by version-control changes",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "repository root or any path inside it")
	rootCmd.PersistentFlags().BoolVar(&signatureOnly, "signature-only", false, "document modified functions only on signature changes")
	rootCmd.PersistentFlags().BoolVar(&inline, "inline", false, "also generate inline comments")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "parallel file limit")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Ollama host")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Ollama model")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Document functions changed since a revision or date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	runCmd.Flags().StringVar(&sinceDate, "since", "", "use the last commit before this date (YYYY-MM-DD) as the old revision")
	runCmd.Flags().StringVar(&branch, "branch", "", "branch for --since (default current)")
	runCmd.Flags().StringVar(&oldRef, "ref", "HEAD", "old revision reference")

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Document every undocumented function in the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return backfill(cmd.Context())
		},
	}

	rootCmd.AddCommand(runCmd, backfillCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*runner.Runner, *status.Store, *revision.Repo, error) {
	config := runner.DefaultConfig()
	if configPath != "" {
		loaded, err := runner.LoadConfig(configPath)
		if err != nil {
			return nil, nil, nil, err
		}
		config = loaded
	}
	if root != "" {
		config.Root = root
	}
	if concurrency > 0 {
		config.Concurrency = concurrency
	}
	if host != "" {
		config.Generator.Host = host
	}
	if model != "" {
		config.Generator.Model = model
	}
	config.SignatureOnly = config.SignatureOnly || signatureOnly
	config.InlineComments = config.InlineComments || inline

	repo, err := revision.Open(config.Root)
	if err != nil {
		return nil, nil, nil, err
	}
	statusPath := config.StatusPath
	if !filepath.IsAbs(statusPath) {
		statusPath = filepath.Join(repo.Root(), statusPath)
	}
	store, err := status.Open(ctx, statusPath)
	if err != nil {
		return nil, nil, nil, err
	}
	gen := generator.NewOllama(generator.OllamaConfig{
		Host:    config.Generator.Host,
		Model:   config.Generator.Model,
		Timeout: config.Generator.Timeout(),
	})
	return runner.New(config, repo, gen, store), store, repo, nil
}

func run(ctx context.Context) error {
	r, store, repo, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ref := oldRef
	if sinceDate != "" {
		resolved, err := repo.LastCommitBefore(ctx, sinceDate, branch)
		if err != nil {
			return err
		}
		ref = resolved
	}
	summary, err := r.Run(ctx, ref)
	if summary != nil {
		fmt.Println(summary)
	}
	return err
}

func backfill(ctx context.Context) error {
	r, store, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := r.Backfill(ctx)
	if summary != nil {
		fmt.Println(summary)
	}
	return err
}
