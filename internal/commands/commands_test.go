package commands_test

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/alvazi/microgl/internal/accounts"
	"github.com/alvazi/microgl/internal/auditlog"
	"github.com/alvazi/microgl/internal/commands"
	"github.com/alvazi/microgl/internal/config"
	"github.com/alvazi/microgl/internal/report"
	"github.com/alvazi/microgl/internal/rules"
	"github.com/alvazi/microgl/internal/store"
)

func runMicrogl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newLedger initializes a project with checking rules and one Chase export waiting in import/.
func newLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runMicrogl(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Sources[0].Rules = []rules.RuleConfig{
		{Name: "coffee", Match: rules.MatchConfig{Contains: "coffee"}, Account: "5020"},
		{Name: "power", Match: rules.MatchConfig{Contains: "power"}, Account: "5030"},
		{Name: "groceries", Match: rules.MatchConfig{Contains: "market"}, Account: "5010"},
		{Name: "payroll", Match: rules.MatchConfig{Contains: "payroll", Direction: "inflow"}, Account: "4010"},
		{Name: "rent", Match: rules.MatchConfig{Contains: "landlord"}, Account: "5040"},
	}
	require.NoError(t, config.Save(path, cfg))

	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "chase_checking.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "CHK-jan.csv"), data, 0o644))
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runMicrogl(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized microgl ledger")

	expectedDirs := []string{
		"accounts",
		"logs",
		"ledger",
		"reports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	_, err = os.Stat(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runMicrogl(t, "init", dir, "--name", "My Books")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: My Books")
	assert.Contains(t, contents, "preset: chase")
}

func TestInit_Accounts(t *testing.T) {
	dir := t.TempDir()
	_, err := runMicrogl(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	svc, err := accounts.Load(dir)
	require.NoError(t, err)
	assert.Len(t, svc.All(), len(accounts.DefaultChart()))
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runMicrogl(t, "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	_, err := runMicrogl(t, "init", dir, "--name", "a")
	require.NoError(t, err)
	_, err = runMicrogl(t, "init", dir, "--name", "b")
	assert.ErrorContains(t, err, "already exists")
}

func TestImport(t *testing.T) {
	dir := newLedger(t)

	out, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted: 6")
	assert.Contains(t, out, "moved CHK-jan.csv")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "CHK-jan.csv"))
	require.NoError(t, err)

	entries, err := auditlog.Read(filepath.Join(dir, auditlog.DefaultPath))
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestImport_SecondRunIsDuplicate(t *testing.T) {
	dir := newLedger(t)
	data, err := os.ReadFile(filepath.Join(dir, "import", "CHK-jan.csv"))
	require.NoError(t, err)

	_, err = runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "CHK-again.csv"), data, 0o644))
	out, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted: 0  Duplicates: 6")
}

func TestImport_DryRun(t *testing.T) {
	dir := newLedger(t)

	out, err := runMicrogl(t, "import", "--repo", dir, "--dry-run", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Posted: 6")

	_, err = os.Stat(filepath.Join(dir, "import", "CHK-jan.csv"))
	require.NoError(t, err, "dry run must not move files")
	_, err = os.Stat(filepath.Join(dir, auditlog.DefaultPath))
	assert.True(t, os.IsNotExist(err), "dry run must not write the import log")

	out, err = runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted: 6", "dry run must not persist documents")
}

func TestImport_FailPolicyExitsNonZero(t *testing.T) {
	dir := newLedger(t)
	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Sources[0].Fallback = rules.FallbackConfig{Policy: "fail"}
	require.NoError(t, config.Save(path, cfg))

	out, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.Error(t, err)
	assert.ErrorContains(t, err, "1 transaction(s) failed")
	assert.Contains(t, out, "Posted: 5")
	assert.Contains(t, out, "MYSTERY VENDOR")

	_, err = os.Stat(filepath.Join(dir, "import", "CHK-jan.csv"))
	require.NoError(t, err, "files with failures stay in import/")
}

func TestImport_Reset(t *testing.T) {
	dir := newLedger(t)
	data, err := os.ReadFile(filepath.Join(dir, "import", "CHK-jan.csv"))
	require.NoError(t, err)

	_, err = runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "CHK-jan.csv"), data, 0o644))
	out, err := runMicrogl(t, "import", "--repo", dir, "--reset", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted: 6")
}

func TestImport_InvalidConfig(t *testing.T) {
	dir := newLedger(t)
	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Sources[0].Rules[0].Account = "8888"
	require.NoError(t, config.Save(path, cfg))

	_, err = runMicrogl(t, "import", "--repo", dir)
	assert.ErrorContains(t, err, `unknown account "8888"`)
}

func TestReport(t *testing.T) {
	dir := newLedger(t)
	_, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)

	out, err := runMicrogl(t, "report", "--repo", dir, "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 6 documents")

	f, err := excelize.OpenFile(filepath.Join(dir, "reports", "gl.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.DefaultSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 13, "header plus two lines per document")

	out, err = runMicrogl(t, "report", "--repo", dir, "--year", "2024", "--format", "csv", "--out", "gl-2024.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 0 documents")
	_, err = os.Stat(filepath.Join(dir, "gl-2024.csv"))
	require.NoError(t, err)
}

func TestAccounts(t *testing.T) {
	dir := newLedger(t)

	out, err := runMicrogl(t, "accounts", "--repo", dir, "--type", "income")
	require.NoError(t, err)
	assert.Contains(t, out, "4010")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "5020")

	_, err = runMicrogl(t, "accounts", "--repo", dir, "--type", "revenue")
	assert.ErrorContains(t, err, `unknown account type "revenue"`)
}

func TestAccounts_MarksContra(t *testing.T) {
	dir := newLedger(t)
	chart, err := os.OpenFile(filepath.Join(dir, accounts.ChartPath), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = chart.WriteString("1090,Allowance for Bad Debts,asset,C,,,\n")
	require.NoError(t, err)
	require.NoError(t, chart.Close())

	out, err := runMicrogl(t, "accounts", "--repo", dir, "--type", "asset")
	require.NoError(t, err)
	assert.Contains(t, out, "C (contra)")
	assert.Less(t, strings.Index(out, "1020"), strings.Index(out, "1090"), "listed in ID order")
}

func TestRulesCheck(t *testing.T) {
	dir := newLedger(t)

	out, err := runMicrogl(t, "rules", "check", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "CHK")
	assert.Contains(t, out, "suspense")
	assert.Contains(t, out, "OK")
}

func TestMissingProject(t *testing.T) {
	_, err := runMicrogl(t, "rules", "check", "--repo", t.TempDir())
	assert.ErrorContains(t, err, "reading config")
}

// dropDocument deletes a posted document behind the ledger's back, leaving a gap in
// its period's sequence.
func dropDocument(t *testing.T, dir, docID string) {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, filepath.Join(dir, "ledger", "microgl.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
		return err
	}))
}

func TestValidate(t *testing.T) {
	dir := newLedger(t)
	_, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)

	out, err := runMicrogl(t, "validate", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "6 documents OK")

	dropDocument(t, dir, "2025-01-003")

	out, err = runMicrogl(t, "validate", "--repo", dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invariant violation(s) in 5 documents")
	assert.Contains(t, out, "missing sequence 3")
}

func TestReport_RefusesBrokenLedger(t *testing.T) {
	dir := newLedger(t)
	_, err := runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.NoError(t, err)
	dropDocument(t, dir, "2025-01-002")

	_, err = runMicrogl(t, "report", "--repo", dir, "--log-level", "error")
	assert.ErrorContains(t, err, "run microgl validate")
	_, err = os.Stat(filepath.Join(dir, "reports", "gl.xlsx"))
	assert.True(t, os.IsNotExist(err), "no report is written for a broken ledger")
}

func TestLog(t *testing.T) {
	dir := newLedger(t)
	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Sources[0].Fallback = rules.FallbackConfig{Policy: "fail"}
	require.NoError(t, config.Save(path, cfg))

	_, err = runMicrogl(t, "import", "--repo", dir, "--log-level", "error")
	require.Error(t, err)

	out, err := runMicrogl(t, "log", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "posted")
	assert.Contains(t, out, "2025-01-001")

	out, err = runMicrogl(t, "log", "--repo", dir, "--last", "--outcome", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "MYSTERY VENDOR")
	assert.NotContains(t, out, "2025-01-001")
}

func TestImport_LogsThroughConfiguredLogger(t *testing.T) {
	dir := newLedger(t)

	out, err := runMicrogl(t, "import", "--repo", dir, "--log-format", "json", "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, out, `"message":"import finished"`)
	assert.Contains(t, out, `"ledger":6`)
	assert.Contains(t, out, "Ledger: 6 transactions")
}
