package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/accounts"
	"github.com/alvazi/microgl/internal/config"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "ledger name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(out io.Writer, dir, name string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default(name)

	dirs := []string{
		"accounts",
		"logs",
		filepath.Dir(cfg.Ledger.Database),
		filepath.Dir(cfg.Report.Path),
		cfg.Ledger.ImportDir,
		cfg.Ledger.ProcessedDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	svc := accounts.NewService(accounts.DefaultChart())
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := ".env\nledger/\nreports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Ledger.ImportDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Initialized microgl ledger %q at %s\n", name, dir)
	return nil
}
