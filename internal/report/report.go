// Package report projects posted documents into a spreadsheet.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/alvazi/microgl/internal/id"
	"github.com/alvazi/microgl/internal/journal"
	"github.com/alvazi/microgl/internal/model"
)

// Formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Defaults for the workbook layout.
const (
	DefaultSheet = "GL"
	DefaultTable = "GLItems"
	tableStyle   = "TableStyleMedium9"
)

// Columns are the report headers, one row per document line.
var Columns = []string{
	"Document", "Item", "Date", "Year", "Period", "Account", "Account Name", "Account Type",
	"Debit", "Credit", "Currency", "Description", "Reference", "Business Partner", "Source", "Rule", "Unclassified",
}

// Options controls the report output.
type Options struct {
	Format string // xlsx (default) or csv
	Sheet  string
	Table  string
	Places int32 // decimal places of minor units
}

// AccountNamer resolves account names and types.
type AccountNamer interface {
	Get(id string) (model.Account, bool)
}

// Write renders docs to path in the requested format.
func Write(path string, docs []model.Document, names AccountNamer, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	switch strings.ToLower(opts.Format) {
	case "", FormatXLSX:
		return WriteXLSX(path, docs, names, opts)
	case FormatCSV:
		return WriteCSV(path, docs, opts.Places)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// Rows flattens docs into report rows matching Columns.
func Rows(docs []model.Document, names AccountNamer, places int32) [][]any {
	var rows [][]any
	for _, doc := range docs {
		for _, l := range doc.Lines {
			var name, typ string
			if a, ok := names.Get(l.AccountID); ok {
				name, typ = a.Name, string(a.Type)
			}
			var debit, credit any
			amount := decimal.New(l.Amount, -places).InexactFloat64()
			if l.Side == model.Debit {
				debit = amount
			} else {
				credit = amount
			}
			rows = append(rows, []any{
				doc.ID,
				id.FormatItemID(l.No),
				doc.Date.Format("2006-01-02"),
				doc.PostingYear(),
				doc.PostingPeriod(),
				l.AccountID,
				name,
				typ,
				debit,
				credit,
				doc.Currency,
				doc.Description,
				doc.Reference,
				doc.BusinessPartner,
				doc.Source,
				doc.Rule,
				doc.Unclassified,
			})
		}
	}
	return rows
}

// WriteXLSX writes a workbook with a single styled table. The file is rebuilt on
// every call so the table always reflects the store.
func WriteXLSX(path string, docs []model.Document, names AccountNamer, opts Options) error {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	widths := make([]int, len(Columns))
	for i, c := range Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	rows := Rows(docs, names, opts.Places)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
		for j, v := range row {
			if n := utf8.RuneCountInString(cellText(v, opts.Places)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		stripes := true
		if err := f.AddTable(sheet, &excelize.Table{
			Range:          fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1),
			Name:           table,
			StyleName:      tableStyle,
			ShowRowStripes: &stripes,
		}); err != nil {
			return fmt.Errorf("adding table: %w", err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(w+2)); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func cellText(v any, places int32) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', int(places), 64)
	default:
		return fmt.Sprint(v)
	}
}

// WriteCSV writes the line projection as CSV.
func WriteCSV(path string, docs []model.Document, places int32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := journal.WriteLines(f, docs, places); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
