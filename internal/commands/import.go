package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/logger"
	"github.com/alvazi/microgl/internal/pipeline"
	"github.com/alvazi/microgl/internal/store"
)

func newImportCommand(g *globals) *cobra.Command {
	var (
		workers int
		dryRun  bool
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Post every CSV in the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			return runImport(cmd, p, workers, dryRun, reset)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "files decoded in parallel (default from microgl.yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "post into a scratch copy of the ledger; nothing is written or moved")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all posted documents before importing")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "reset")

	return cmd
}

func runImport(cmd *cobra.Command, p *project, workers int, dryRun, reset bool) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	ledger, err := p.ledger()
	if err != nil {
		return err
	}

	db, err := store.OpenSQLite(ctx, p.path(p.cfg.Ledger.Database))
	if err != nil {
		return err
	}
	defer db.Close()

	if reset {
		if err := db.Reset(ctx); err != nil {
			return err
		}
		log.Warn().Str("database", db.Path()).Msg("ledger reset")
	}

	if workers < 1 {
		workers = p.cfg.Ledger.Workers
	}
	opts := pipeline.Options{
		Workers:      workers,
		ImportDir:    p.path(p.cfg.Ledger.ImportDir),
		ProcessedDir: p.path(p.cfg.Ledger.ProcessedDir),
		LogPath:      p.path(p.cfg.Ledger.ImportLog),
	}

	var st store.Store = db
	if dryRun {
		existing, err := db.Documents(ctx, store.Filter{})
		if err != nil {
			return err
		}
		st = store.NewMemory(existing...)
		opts.ProcessedDir = ""
		opts.LogPath = ""
	}

	files, err := importer.Scan(opts.ImportDir)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(st, ledger.Rules, p.catalog, ledger.Layouts, opts, log)
	sum, err := runner.Run(ctx, files)
	printSummary(cmd.OutOrStdout(), sum, dryRun)
	if err != nil {
		return err
	}
	if !sum.OK() {
		return fmt.Errorf("%d transaction(s) failed", sum.Failed)
	}
	return nil
}

func printSummary(w io.Writer, sum pipeline.Summary, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "Dry run: nothing was written.")
	}
	fmt.Fprintf(w, "Files: %d  Posted: %d  Duplicates: %d  Filtered: %d  Failed: %d\n",
		sum.Files, sum.Posted, sum.Duplicates, sum.Filtered, sum.Failed)
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "  FAILED %s\n", f.Error())
	}
	for _, name := range sum.Moved {
		fmt.Fprintf(w, "  moved %s\n", name)
	}
	fmt.Fprintf(w, "Ledger: %d transactions\n", sum.Ledger)
}
