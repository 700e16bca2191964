package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/rules"
)

// FileName is the project file at the root of a ledger directory.
const FileName = "microgl.yaml"

// EnvPrefix prefixes every environment override, e.g. MICROGL_DATABASE.
const EnvPrefix = "MICROGL"

// Config represents the top-level microgl.yaml configuration.
type Config struct {
	Name    string         `yaml:"name"`
	Ledger  LedgerConfig   `yaml:"ledger"`
	Report  ReportConfig   `yaml:"report"`
	Log     LogConfig      `yaml:"log"`
	Sources []SourceConfig `yaml:"sources,omitempty"`
}

// LedgerConfig locates the ledger database and the import directories.
// Relative paths are resolved against the project root.
type LedgerConfig struct {
	Database     string `yaml:"database"`
	ImportDir    string `yaml:"import_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	ImportLog    string `yaml:"import_log"`
	Workers      int    `yaml:"workers,omitempty"`
}

// ReportConfig controls the GL report.
type ReportConfig struct {
	Path   string `yaml:"path"`
	Sheet  string `yaml:"sheet,omitempty"`
	Table  string `yaml:"table,omitempty"`
	Format string `yaml:"format,omitempty"` // xlsx or csv
	Year   int    `yaml:"year,omitempty"`   // 0 = all years
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // console or json
}

// SourceConfig maps one bank account export to a GL account and its rules.
type SourceConfig struct {
	Code     string               `yaml:"code"`
	Account  string               `yaml:"account"`
	Currency string               `yaml:"currency"`
	Layout   importer.Layout      `yaml:"layout"`
	Rules    []rules.RuleConfig   `yaml:"rules,omitempty"`
	Fallback rules.FallbackConfig `yaml:"fallback"`
}

// Env holds the environment overrides applied on top of the project file.
type Env struct {
	Database     string `envconfig:"DATABASE"`
	ImportDir    string `envconfig:"IMPORT_DIR"`
	ProcessedDir string `envconfig:"PROCESSED_DIR"`
	ImportLog    string `envconfig:"IMPORT_LOG"`
	ReportPath   string `envconfig:"REPORT_PATH"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	LogFormat    string `envconfig:"LOG_FORMAT"`
}

// Load reads a microgl.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// LoadProject loads root/.env (if present) into the environment, reads
// root/microgl.yaml and applies MICROGL_* overrides.
func LoadProject(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides paths and log settings from MICROGL_* variables.
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("processing environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Ledger.Database, env.Database)
	set(&c.Ledger.ImportDir, env.ImportDir)
	set(&c.Ledger.ProcessedDir, env.ProcessedDir)
	set(&c.Ledger.ImportLog, env.ImportLog)
	set(&c.Report.Path, env.ReportPath)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Log.Format, env.LogFormat)
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project: one checking
// source using the chase preset with everything unmatched routed to suspense.
func Default(name string) *Config {
	cfg := &Config{
		Name: name,
		Sources: []SourceConfig{
			{
				Code:     "CHK",
				Account:  "1010",
				Currency: "USD",
				Layout:   importer.Layout{Preset: "chase"},
				Fallback: rules.FallbackConfig{
					Policy:  string(rules.FallbackSuspense),
					Account: "9999",
				},
			},
		},
	}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	def(&c.Ledger.Database, filepath.Join("ledger", "microgl.db"))
	def(&c.Ledger.ImportDir, "import")
	def(&c.Ledger.ProcessedDir, filepath.Join("import", "processed"))
	def(&c.Ledger.ImportLog, filepath.Join("logs", "import-log.csv"))
	def(&c.Report.Path, filepath.Join("reports", "gl.xlsx"))
	def(&c.Log.Level, "info")
	def(&c.Log.Format, "console")
	if c.Ledger.Workers < 1 {
		c.Ledger.Workers = 1
	}
}

// Path resolves p against root unless it is already absolute.
func Path(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
