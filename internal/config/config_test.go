package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvazi/microgl/internal/accounts"
	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/rules"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Ledger")
	cfg.Sources[0].Rules = []rules.RuleConfig{
		{Name: "coffee", Match: rules.MatchConfig{Contains: "coffee"}, Account: "5020"},
		{
			Name:  "rent",
			Match: rules.MatchConfig{Contains: "rent", Direction: "outflow"},
			Split: []rules.ShareConfig{
				{Account: "5040", Ratio: "2/3"},
				{Account: "5030", Ratio: "1/3"},
			},
			RemainderTo: "5040",
		},
	}
	cfg.Report.Year = 2025

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Ledger")

	assert.Equal(t, "My Ledger", cfg.Name)
	assert.Equal(t, filepath.Join("ledger", "microgl.db"), cfg.Ledger.Database)
	assert.Equal(t, "import", cfg.Ledger.ImportDir)
	assert.Equal(t, filepath.Join("import", "processed"), cfg.Ledger.ProcessedDir)
	assert.Equal(t, filepath.Join("logs", "import-log.csv"), cfg.Ledger.ImportLog)
	assert.Equal(t, 1, cfg.Ledger.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "CHK", cfg.Sources[0].Code)
	assert.Equal(t, "chase", cfg.Sources[0].Layout.Preset)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("name: bare\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "import", cfg.Ledger.ImportDir)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Ledger")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Ledger")
	assert.Contains(t, contents, "import_dir: import")
	assert.Contains(t, contents, "preset: chase")
	assert.Contains(t, contents, "policy: suspense")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MICROGL_DATABASE", "/tmp/other.db")
	t.Setenv("MICROGL_LOG_LEVEL", "debug")

	cfg := Default("x")
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/tmp/other.db", cfg.Ledger.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "import", cfg.Ledger.ImportDir, "unset variables keep file values")
}

func TestLoadProject_DotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default("x")))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("MICROGL_IMPORT_LOG=audit/log.csv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MICROGL_IMPORT_LOG") })

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "audit/log.csv", cfg.Ledger.ImportLog)
}

func TestLoadProject_NoDotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default("x")))

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Name)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", "import"), Path("/repo", "import"))
	assert.Equal(t, "/abs/ledger.db", Path("/repo", "/abs/ledger.db"))
	assert.Equal(t, "", Path("/repo", ""))
}

var catalog = accounts.NewService(accounts.DefaultChart())

func TestBuild(t *testing.T) {
	cfg := Default("x")
	cfg.Sources = append(cfg.Sources, SourceConfig{
		Code:     "CGD",
		Account:  "1020",
		Currency: "EUR",
		Layout:   importer.Layout{Preset: "cgd"},
		Rules: []rules.RuleConfig{
			{Name: "groceries", Match: rules.MatchConfig{Contains: "continente"}, Account: "5010"},
		},
		Fallback: rules.FallbackConfig{Policy: "fail"},
	})

	ledger, err := cfg.Build(catalog, importer.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHK", "CGD"}, ledger.Rules.Codes())

	cgd, ok := ledger.Layouts["CGD"]
	require.True(t, ok)
	assert.Equal(t, ";", cgd.Separator)

	src, ok := ledger.Rules.Source("CGD")
	require.True(t, ok)
	assert.Equal(t, "EUR", src.Currency)
	rule, ok := src.Match(model.Transaction{Source: "CGD", Description: "CONTINENTE LISBOA", Amount: -1234})
	require.True(t, ok)
	assert.Equal(t, "groceries", rule.Name)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no sources", func(c *Config) { c.Sources = nil }, "no sources defined"},
		{"duplicate source", func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) }, "source CHK defined twice"},
		{"unknown preset", func(c *Config) { c.Sources[0].Layout.Preset = "nope" }, `unknown layout preset "nope" (known: cgd, chase)`},
		{"unknown account", func(c *Config) {
			c.Sources[0].Rules = []rules.RuleConfig{{Name: "x", Match: rules.MatchConfig{Contains: "x"}, Account: "8888"}}
		}, "8888"},
		{"bad split", func(c *Config) {
			c.Sources[0].Rules = []rules.RuleConfig{{
				Name:  "x",
				Match: rules.MatchConfig{Contains: "x"},
				Split: []rules.ShareConfig{{Account: "5010", Percent: "50"}, {Account: "5020", Percent: "40"}},
			}}
		}, "want 100%"},
		{"unknown policy", func(c *Config) { c.Sources[0].Fallback.Policy = "ignore" }, `unknown policy "ignore"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x")
			tt.mutate(cfg)
			_, err := cfg.Build(catalog, importer.DefaultRegistry())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
