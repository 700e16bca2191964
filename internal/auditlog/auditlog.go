// Package auditlog records the outcome of every transaction an import run sees.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Outcome is what happened to one bank row.
type Outcome string

const (
	OutcomePosted    Outcome = "posted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFiltered  Outcome = "filtered"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	Outcome    Outcome
	Source     string
	File       string
	Row        int
	NaturalKey string
	DocumentID string
	Details    string
}

// Header is the CSV header for the import log.
const Header = "timestamp,run_id,outcome,source,file,row,natural_key,document_id,details"

// DefaultPath is the import log location relative to a project root.
var DefaultPath = filepath.Join("logs", "import-log.csv")

const (
	numFields     = 9
	colTimestamp  = 0
	colRunID      = 1
	colOutcome    = 2
	colSource     = 3
	colFile       = 4
	colRow        = 5
	colNaturalKey = 6
	colDocumentID = 7
	colDetails    = 8
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colOutcome] = string(e.Outcome)
	row[colSource] = e.Source
	row[colFile] = e.File
	if e.Row > 0 {
		row[colRow] = strconv.Itoa(e.Row)
	}
	row[colNaturalKey] = e.NaturalKey
	row[colDocumentID] = e.DocumentID
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	var row int
	if record[colRow] != "" {
		row, err = strconv.Atoi(record[colRow])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
		}
	}

	return Entry{
		Timestamp:  ts,
		RunID:      record[colRunID],
		Outcome:    Outcome(record[colOutcome]),
		Source:     record[colSource],
		File:       record[colFile],
		Row:        row,
		NaturalKey: record[colNaturalKey],
		DocumentID: record[colDocumentID],
		Details:    record[colDetails],
	}, nil
}

// Append writes entries to the log at path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing import log: %w", err)
	}
	return f.Close()
}

// Read returns all entries from the log at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
