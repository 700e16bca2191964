// Package journal assembles, validates and projects GL documents.
package journal

import (
	"fmt"

	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/posting"
)

// InvalidDocumentError reports a document that violates the double-entry invariant.
// It matches posting.ErrInvalidMapping.
type InvalidDocumentError struct {
	DocumentID string
	Reason     string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document %s: %s", e.DocumentID, e.Reason)
}

// Is makes errors.Is(err, posting.ErrInvalidMapping) hold.
func (e *InvalidDocumentError) Is(target error) bool {
	return target == posting.ErrInvalidMapping
}

// Assemble combines a header and its lines into a Document after re-checking that the
// lines balance and cover both sides. The returned document owns a copy of lines.
func Assemble(header model.Header, lines []model.Line) (model.Document, error) {
	invalid := func(format string, args ...any) error {
		return &InvalidDocumentError{DocumentID: header.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if header.ID == "" {
		return model.Document{}, invalid("missing document id")
	}
	if header.SourceNaturalKey == "" {
		return model.Document{}, invalid("missing natural key")
	}

	var debit, credit int64
	var debits, credits int
	for _, l := range lines {
		if l.Amount <= 0 {
			return model.Document{}, invalid("line %d: non-positive amount %d", l.No, l.Amount)
		}
		switch l.Side {
		case model.Debit:
			debit += l.Amount
			debits++
		case model.Credit:
			credit += l.Amount
			credits++
		default:
			return model.Document{}, invalid("line %d: invalid side %q", l.No, l.Side)
		}
	}
	if debits == 0 || credits == 0 {
		return model.Document{}, invalid("need at least one debit and one credit line")
	}
	if debit != credit {
		return model.Document{}, invalid("debits (%d) != credits (%d)", debit, credit)
	}

	owned := make([]model.Line, len(lines))
	copy(owned, lines)
	return model.Document{Header: header, Lines: owned}, nil
}
