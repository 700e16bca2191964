package journal

import (
	"fmt"

	"github.com/alvazi/microgl/internal/id"
	"github.com/alvazi/microgl/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant  int
	DocumentID string
	Reason     string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.DocumentID, e.Reason)
}

// AccountChecker tests whether an account ID exists in the chart of accounts.
type AccountChecker interface {
	Exists(id string) bool
}

// ValidateDocuments checks stored documents against the ledger invariants.
func ValidateDocuments(docs []model.Document, accounts AccountChecker) []ValidationError {
	var errs []ValidationError
	add := func(inv int, docID, format string, args ...any) {
		errs = append(errs, ValidationError{Invariant: inv, DocumentID: docID, Reason: fmt.Sprintf(format, args...)})
	}

	seenKeys := make(map[string]string)
	seenIDs := make(map[string]bool)
	seqs := make(map[[2]int]map[int]bool)

	for _, doc := range docs {
		// Invariant 1: balanced, with both sides present.
		debit, credit := doc.Totals()
		if debit != credit {
			add(1, doc.ID, "debits (%d) != credits (%d)", debit, credit)
		}
		if debit == 0 || credit == 0 {
			add(1, doc.ID, "need at least one debit and one credit line")
		}

		for i, l := range doc.Lines {
			// Invariant 2: positive amount on a valid side.
			if l.Amount <= 0 || !l.Side.Valid() {
				add(2, doc.ID, "line %d: amount %d side %q", l.No, l.Amount, l.Side)
			}
			// Invariant 3: valid account references.
			if !accounts.Exists(l.AccountID) {
				add(3, doc.ID, "line %d: unknown account %s", l.No, l.AccountID)
			}
			// Invariant 4: lines numbered 1..n.
			if l.No != i+1 {
				add(4, doc.ID, "line %d at position %d", l.No, i+1)
			}
		}

		// Invariant 5: ids unique and in the posting period.
		if seenIDs[doc.ID] {
			add(5, doc.ID, "duplicate document id")
		}
		seenIDs[doc.ID] = true
		year, month, seq, err := id.ParseDocumentID(doc.ID)
		if err != nil {
			add(5, doc.ID, "invalid document id: %v", err)
		} else {
			if year != doc.PostingYear() || month != doc.PostingPeriod() {
				add(5, doc.ID, "date %s not in %04d-%02d", doc.Date.Format("2006-01-02"), year, month)
			}
			period := [2]int{year, month}
			if seqs[period] == nil {
				seqs[period] = make(map[int]bool)
			}
			seqs[period][seq] = true
		}

		// Invariant 6: one document per natural key.
		if prev, ok := seenKeys[doc.SourceNaturalKey]; ok {
			add(6, doc.ID, "natural key already posted as %s", prev)
		} else {
			seenKeys[doc.SourceNaturalKey] = doc.ID
		}
	}

	// Invariant 5: sequences contiguous 1..N within each period.
	for period, seen := range seqs {
		for i := 1; i <= len(seen); i++ {
			if !seen[i] {
				add(5, fmt.Sprintf("%04d-%02d", period[0], period[1]), "missing sequence %d in 1..%d", i, len(seen))
			}
		}
	}
	return errs
}
