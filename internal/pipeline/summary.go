package pipeline

import (
	"fmt"
	"sync"

	"github.com/alvazi/microgl/internal/auditlog"
)

// Failure is a transaction (or a whole file, when Row is 0) that could not be posted.
type Failure struct {
	File       string
	Row        int
	Source     string
	NaturalKey string
	Err        error
}

func (f Failure) Error() string {
	if f.Row == 0 {
		return fmt.Sprintf("%s: %v", f.File, f.Err)
	}
	return fmt.Sprintf("%s row %d: %v", f.File, f.Row, f.Err)
}

// Summary is the result of one import run.
type Summary struct {
	RunID      string
	Files      int
	Posted     int
	Duplicates int
	Filtered   int
	Failed     int
	Failures   []Failure
	Moved      []string // files moved to the processed dir
	Ledger     int      // transactions in the ledger once the run ended
}

// OK reports whether every transaction was posted, skipped as duplicate, or filtered.
func (s Summary) OK() bool { return s.Failed == 0 }

// tally collects outcomes from concurrent workers.
type tally struct {
	mu      sync.Mutex
	summary Summary
	entries []auditlog.Entry
	failed  map[string]bool // files with at least one failure
}

func newTally(runID string) *tally {
	return &tally{summary: Summary{RunID: runID}, failed: make(map[string]bool)}
}

func (t *tally) record(e auditlog.Entry, count int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	switch e.Outcome {
	case auditlog.OutcomePosted:
		t.summary.Posted += count
	case auditlog.OutcomeDuplicate:
		t.summary.Duplicates += count
	case auditlog.OutcomeFiltered:
		t.summary.Filtered += count
	case auditlog.OutcomeFailed:
		t.summary.Failed += count
		t.failed[e.File] = true
		t.summary.Failures = append(t.summary.Failures, Failure{
			File:       e.File,
			Row:        e.Row,
			Source:     e.Source,
			NaturalKey: e.NaturalKey,
			Err:        err,
		})
	}
}

func (t *tally) hasFailures(file string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed[file]
}
