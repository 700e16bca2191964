package model

import (
	"fmt"
	"time"
)

// Side is the debit or credit side of a posting.
type Side string

const (
	Debit  Side = "D"
	Credit Side = "C"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

// Valid reports whether s is Debit or Credit.
func (s Side) Valid() bool {
	return s == Debit || s == Credit
}

// ParseSide accepts "D"/"C" as well as the spelled-out forms.
func ParseSide(s string) (Side, error) {
	switch s {
	case "D", "d", "debit", "Debit", "DEBIT":
		return Debit, nil
	case "C", "c", "credit", "Credit", "CREDIT":
		return Credit, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Line is one posting inside a Document.
type Line struct {
	No        int    // 1-based position within the document
	AccountID string //nolint:revive // plain field name is clearest
	Side      Side
	Amount    int64 // minor units, always positive
}

// Header carries the document-level fields of a posting.
type Header struct {
	ID               string
	Date             time.Time
	Description      string
	Reference        string // bank reference such as a check number
	SourceNaturalKey string
	Source           string // source (bank) account code
	BusinessPartner  string
	Rule             string // name of the matched rule, "" for fallback postings
	Currency         string
	Unclassified     bool // routed to the suspense account by the fallback policy
}

// Document is a balanced group of lines representing one bank transaction.
type Document struct {
	Header
	Lines []Line
}

// Totals returns the debit and credit sums of the document.
func (d Document) Totals() (debit, credit int64) {
	for _, l := range d.Lines {
		switch l.Side {
		case Debit:
			debit += l.Amount
		case Credit:
			credit += l.Amount
		}
	}
	return debit, credit
}

// PostingYear returns the fiscal year the document is posted in.
func (d Document) PostingYear() int { return d.Date.Year() }

// PostingPeriod returns the month (1..12) the document is posted in.
func (d Document) PostingPeriod() int { return int(d.Date.Month()) }
