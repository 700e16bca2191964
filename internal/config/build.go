package config

import (
	"fmt"

	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/rules"
)

// Ledger is the compiled, validated form of the sources section.
type Ledger struct {
	Rules   *rules.Set
	Layouts map[string]importer.Layout
}

// Build resolves every source layout and compiles its rules against the catalog.
// Any unknown account, bad split or unknown policy fails the whole load.
func (c *Config) Build(catalog rules.AccountChecker, presets *importer.Registry) (*Ledger, error) {
	if len(c.Sources) == 0 {
		return nil, fmt.Errorf("config: no sources defined")
	}
	layouts := make(map[string]importer.Layout, len(c.Sources))
	compiled := make([]rules.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		if _, dup := layouts[sc.Code]; dup {
			return nil, fmt.Errorf("config: source %s defined twice", sc.Code)
		}
		layout, err := presets.Resolve(sc.Layout)
		if err != nil {
			return nil, fmt.Errorf("config: source %s: %w", sc.Code, err)
		}
		src, err := rules.Compile(rules.SourceSpec{
			Code:      sc.Code,
			Account:   sc.Account,
			Currency:  sc.Currency,
			Precision: layout.Places(),
			Rules:     sc.Rules,
			Fallback:  sc.Fallback,
		}, catalog)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		layouts[sc.Code] = layout
		compiled = append(compiled, src)
	}
	return &Ledger{Rules: rules.NewSet(compiled...), Layouts: layouts}, nil
}
