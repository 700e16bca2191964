package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/accounts"
	"github.com/alvazi/microgl/internal/config"
	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/logger"
)

// project is a loaded ledger directory. openProject leaves the configured logger
// in the command's context.
type project struct {
	root    string
	cfg     *config.Config
	catalog *accounts.Service
}

func openProject(cmd *cobra.Command, g *globals) (*project, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	log, err := logger.New(cmd.ErrOrStderr(), logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	catalog, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return &project{root: root, cfg: cfg, catalog: catalog}, nil
}

func (p *project) path(rel string) string {
	return config.Path(p.root, rel)
}

func (p *project) ledger() (*config.Ledger, error) {
	return p.cfg.Build(p.catalog, importer.DefaultRegistry())
}

// places returns the minor-unit precision shared by all sources.
func places(l *config.Ledger) (int32, error) {
	var (
		p   int32 = -1
		src string
	)
	for code, layout := range l.Layouts {
		switch {
		case p < 0:
			p, src = layout.Places(), code
		case layout.Places() != p:
			return 0, fmt.Errorf("sources %s and %s use different precisions", src, code)
		}
	}
	if p < 0 {
		return 0, nil
	}
	return p, nil
}
