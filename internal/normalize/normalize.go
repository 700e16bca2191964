// Package normalize turns decoded bank rows into canonical transactions.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alvazi/microgl/internal/model"
)

// Logical field names a layout maps bank columns to.
const (
	FieldDate         = "date"
	FieldAmount       = "amount"
	FieldDebit        = "debit"
	FieldCredit       = "credit"
	FieldDescription  = "description"
	FieldCounterparty = "counterparty"
	FieldReference    = "reference"
)

// NoDescription replaces blank bank descriptions.
const NoDescription = "<No Description>"

// Sign conventions of a bank export, read against the source account's balance.
// Under increase-positive a positive cell grows the balance on its normal side. Card
// exports that show purchases as negative numbers need decrease-positive, because a
// purchase grows a liability. inflow-positive and outflow-positive are the older
// names of the same two conventions.
const (
	SignIncreasePositive = "increase-positive"
	SignDecreasePositive = "decrease-positive"
	SignInflowPositive   = "inflow-positive"
	SignOutflowPositive  = "outflow-positive"
)

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a bank row that cannot be normalized.
type MalformedRecordError struct {
	File   string
	Row    int
	Source string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s row %d: malformed %s: %s", e.File, e.Row, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedRecord) hold.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Layout describes how to interpret the raw field values of one bank export.
type Layout struct {
	DateFormat         string   `yaml:"date_format,omitempty"` // YYYY/YY/MM/DD tokens or a Go layout
	DecimalSeparator   string   `yaml:"decimal_separator,omitempty"`
	ThousandsSeparator string   `yaml:"thousands_separator,omitempty"`
	Precision          *int32   `yaml:"precision,omitempty"`      // minor-unit decimal places, default 2
	Sign               string   `yaml:"sign,omitempty"`           // increase-positive (default) or decrease-positive
	KeyFields          []string `yaml:"key_fields,omitempty"`     // extra fields folded into the natural key
	KeyOccurrence      *bool    `yaml:"key_occurrence,omitempty"` // suffix repeated keys within a file, default true
}

// DefaultDateFormat is used when a layout does not name one.
const DefaultDateFormat = "YYYY-MM-DD"

// DefaultPrecision is the number of minor-unit decimal places when unset.
const DefaultPrecision int32 = 2

// Places returns the layout's precision.
func (l Layout) Places() int32 {
	if l.Precision == nil {
		return DefaultPrecision
	}
	return *l.Precision
}

// Occurrences reports whether repeated keys within a file get an occurrence suffix.
func (l Layout) Occurrences() bool {
	return l.KeyOccurrence == nil || *l.KeyOccurrence
}

var dateTokens = strings.NewReplacer("YYYY", "2006", "YY", "06", "MM", "01", "DD", "02")

// GoDateLayout converts a token date format such as DD-MM-YYYY into a Go time layout.
// Formats that are already Go layouts pass through unchanged.
func GoDateLayout(format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	return dateTokens.Replace(format)
}

// Normalize converts a raw bank row into a Transaction. The natural key is computed
// without an occurrence suffix; use a Keyer to suffix repeated keys within a file.
func Normalize(raw model.RawTransaction, layout Layout) (model.Transaction, error) {
	malformed := func(field, reason string) error {
		return &MalformedRecordError{File: raw.File, Row: raw.Row, Source: raw.Source, Field: field, Reason: reason}
	}

	if raw.Source == "" {
		return model.Transaction{}, malformed("source", "missing")
	}

	dateStr := strings.TrimSpace(raw.Fields[FieldDate])
	if dateStr == "" {
		return model.Transaction{}, malformed(FieldDate, "missing")
	}
	date, err := time.Parse(GoDateLayout(layout.DateFormat), dateStr)
	if err != nil {
		return model.Transaction{}, malformed(FieldDate, fmt.Sprintf("%q does not match %s", dateStr, layout.dateFormat()))
	}

	amount, field, err := parseAmount(raw.Fields, layout)
	if err != nil {
		return model.Transaction{}, malformed(field, err.Error())
	}
	if amount == 0 {
		return model.Transaction{}, malformed(field, "zero amount")
	}
	if layout.flipsSign() {
		amount = -amount
	}

	desc := strings.TrimSpace(raw.Fields[FieldDescription])
	if desc == "" {
		desc = NoDescription
	}

	txn := model.Transaction{
		Source:       raw.Source,
		Date:         date,
		Amount:       amount,
		Description:  desc,
		Counterparty: strings.TrimSpace(raw.Fields[FieldCounterparty]),
		Reference:    strings.TrimSpace(raw.Fields[FieldReference]),
		File:         raw.File,
		Row:          raw.Row,
	}
	txn.NaturalKey = NaturalKey(txn, extraKeyValues(raw.Fields, layout.KeyFields)...)
	return txn, nil
}

func (l Layout) flipsSign() bool {
	return l.Sign == SignDecreasePositive || l.Sign == SignOutflowPositive
}

func (l Layout) dateFormat() string {
	if l.DateFormat == "" {
		return DefaultDateFormat
	}
	return l.DateFormat
}

// parseAmount reads either the amount field or the debit/credit pair. It returns the
// field name to blame on failure.
func parseAmount(fields map[string]string, layout Layout) (int64, string, error) {
	if s, ok := fields[FieldAmount]; ok {
		v, err := ParseAmount(s, layout)
		return v, FieldAmount, err
	}

	debitStr, hasDebit := fields[FieldDebit]
	creditStr, hasCredit := fields[FieldCredit]
	if !hasDebit && !hasCredit {
		return 0, FieldAmount, errors.New("missing")
	}
	var debit, credit int64
	var err error
	if strings.TrimSpace(debitStr) != "" {
		if debit, err = ParseAmount(debitStr, layout); err != nil {
			return 0, FieldDebit, err
		}
	}
	if strings.TrimSpace(creditStr) != "" {
		if credit, err = ParseAmount(creditStr, layout); err != nil {
			return 0, FieldCredit, err
		}
	}
	return abs(credit) - abs(debit), FieldAmount, nil
}

// ParseAmount parses a fixed-point amount using the layout's separators and returns
// it in minor units, rounding half away from zero to the layout's precision.
func ParseAmount(s string, layout Layout) (int64, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, errors.New("missing")
	}
	if layout.ThousandsSeparator != "" {
		clean = strings.ReplaceAll(clean, layout.ThousandsSeparator, "")
	}
	if sep := layout.DecimalSeparator; sep != "" && sep != "." {
		clean = strings.ReplaceAll(clean, sep, ".")
	}
	clean = strings.TrimPrefix(clean, "+")

	if strings.ContainsAny(clean, "eE") {
		return 0, fmt.Errorf("%q is not a fixed-point number", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%q is not a fixed-point number", s)
	}
	places := layout.Places()
	v, err := MinorUnits(d.Round(places), places)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return v, nil
}

// MinorUnits scales d to an integer count of minor units. The result and its
// negation must both fit in an int64.
func MinorUnits(d decimal.Decimal, places int32) (int64, error) {
	scaled := d.Shift(places)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("more than %d decimal places", places)
	}
	n := scaled.BigInt()
	if !n.IsInt64() || n.Int64() == math.MinInt64 {
		return 0, errors.New("out of range")
	}
	return n.Int64(), nil
}

func extraKeyValues(fields map[string]string, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = strings.TrimSpace(fields[name])
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
