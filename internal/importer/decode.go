package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/normalize"
)

// Decoded is the result of decoding one bank file.
type Decoded struct {
	Rows     []model.RawTransaction
	Filtered int // rows dropped by skip_descriptions
}

// Decode reads a bank CSV with layout l and returns its data rows keyed by logical
// field name. Rows shorter than the layout leave the missing fields unset so that
// normalization reports them. Blank rows and rows with neither a date nor an amount
// (statement footers) are skipped.
func Decode(r io.Reader, l Layout, source, file string) (Decoded, error) {
	comma, err := l.comma()
	if err != nil {
		return Decoded{}, err
	}
	utf8r, err := NewUTF8Reader(r)
	if err != nil {
		return Decoded{}, fmt.Errorf("detecting encoding: %w", err)
	}

	cr := csv.NewReader(utf8r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	cols := l.Columns
	headerPending := l.Header()

	var out Decoded
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Decoded{}, fmt.Errorf("reading %s: %w", file, err)
		}
		line, _ := cr.FieldPos(0)

		if headerPending {
			if len(l.Headers) == 0 {
				headerPending = false
				continue
			}
			if found, ok := locateHeaders(rec, l.Headers); ok {
				cols = found
				headerPending = false
			}
			continue
		}

		fields := make(map[string]string, len(cols))
		for name, idx := range cols {
			if idx < len(rec) {
				fields[name] = strings.TrimSpace(rec[idx])
			}
		}
		if blankRow(fields) {
			continue
		}
		if skipped(fields[normalize.FieldDescription], l.SkipDescriptions) {
			out.Filtered++
			continue
		}

		out.Rows = append(out.Rows, model.RawTransaction{
			Source: source,
			File:   file,
			Row:    line,
			Fields: fields,
		})
	}

	if headerPending && len(l.Headers) > 0 {
		return Decoded{}, fmt.Errorf("%s: no header row with columns %s", file, headerList(l.Headers))
	}
	return out, nil
}

// locateHeaders maps logical fields to column indexes when rec contains every wanted header.
func locateHeaders(rec []string, wanted map[string]string) (map[string]int, bool) {
	idx := make(map[string]int, len(rec))
	for i, cell := range rec {
		name := strings.TrimSpace(cell)
		if name != "" {
			if _, dup := idx[name]; !dup {
				idx[name] = i
			}
		}
	}
	cols := make(map[string]int, len(wanted))
	for field, header := range wanted {
		i, ok := idx[header]
		if !ok {
			return nil, false
		}
		cols[field] = i
	}
	return cols, true
}

func headerList(h map[string]string) string {
	names := make([]string, 0, len(h))
	for _, name := range h {
		names = append(names, fmt.Sprintf("%q", name))
	}
	return strings.Join(names, ", ")
}

func blankRow(fields map[string]string) bool {
	if fields[normalize.FieldDate] != "" {
		return false
	}
	for _, f := range []string{normalize.FieldAmount, normalize.FieldDebit, normalize.FieldCredit} {
		if fields[f] != "" {
			return false
		}
	}
	return true
}

func skipped(desc string, filters []string) bool {
	for _, f := range filters {
		if f != "" && strings.Contains(desc, f) {
			return true
		}
	}
	return false
}
