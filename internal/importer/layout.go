package importer

import (
	"fmt"

	"github.com/alvazi/microgl/internal/normalize"
)

// Layout describes the CSV structure of one bank export and how to interpret its values.
// Columns are located either by 0-based index or, for exports with a preamble, by
// header name.
type Layout struct {
	Preset           string            `yaml:"preset,omitempty"`
	Separator        string            `yaml:"separator,omitempty"`
	HasHeader        *bool             `yaml:"has_header,omitempty"`
	Columns          map[string]int    `yaml:"columns,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	SkipDescriptions []string          `yaml:"skip_descriptions,omitempty"`

	normalize.Layout `yaml:",inline"`
}

const defaultSeparator = ","

// Header reports whether the first row (or the located header row) is a header.
func (l Layout) Header() bool {
	return l.HasHeader == nil || *l.HasHeader
}

func (l Layout) comma() (rune, error) {
	sep := l.Separator
	if sep == "" {
		sep = defaultSeparator
	}
	if sep == `\t` {
		sep = "\t"
	}
	runes := []rune(sep)
	if len(runes) != 1 {
		return 0, fmt.Errorf("separator %q must be a single character", l.Separator)
	}
	return runes[0], nil
}

// Validate checks that the layout can locate the fields a transaction needs.
func (l Layout) Validate() error {
	if _, err := l.comma(); err != nil {
		return err
	}
	if len(l.Columns) > 0 && len(l.Headers) > 0 {
		return fmt.Errorf("columns and headers are mutually exclusive")
	}
	if len(l.Headers) > 0 && !l.Header() {
		return fmt.Errorf("headers require has_header")
	}
	has := func(field string) bool {
		if _, ok := l.Columns[field]; ok {
			return true
		}
		_, ok := l.Headers[field]
		return ok
	}
	for field, idx := range l.Columns {
		if idx < 0 {
			return fmt.Errorf("column %s: negative index %d", field, idx)
		}
	}
	if !has(normalize.FieldDate) {
		return fmt.Errorf("missing %s column", normalize.FieldDate)
	}
	if !has(normalize.FieldAmount) && !has(normalize.FieldDebit) && !has(normalize.FieldCredit) {
		return fmt.Errorf("missing %s column (or %s/%s columns)", normalize.FieldAmount, normalize.FieldDebit, normalize.FieldCredit)
	}
	switch l.Sign {
	case "", normalize.SignIncreasePositive, normalize.SignDecreasePositive,
		normalize.SignInflowPositive, normalize.SignOutflowPositive:
	default:
		return fmt.Errorf("unknown sign convention %q", l.Sign)
	}
	if p := l.Places(); p < 0 || p > 8 {
		return fmt.Errorf("precision %d out of range", p)
	}
	return nil
}

// merge overlays the fields set in l onto base.
func (l Layout) merge(base Layout) Layout {
	out := base
	out.Preset = l.Preset
	if l.Separator != "" {
		out.Separator = l.Separator
	}
	if l.HasHeader != nil {
		out.HasHeader = l.HasHeader
	}
	if len(l.Columns) > 0 {
		out.Columns = l.Columns
		out.Headers = nil
	}
	if len(l.Headers) > 0 {
		out.Headers = l.Headers
		out.Columns = nil
	}
	if len(l.SkipDescriptions) > 0 {
		out.SkipDescriptions = l.SkipDescriptions
	}
	if l.DateFormat != "" {
		out.DateFormat = l.DateFormat
	}
	if l.DecimalSeparator != "" {
		out.DecimalSeparator = l.DecimalSeparator
	}
	if l.ThousandsSeparator != "" {
		out.ThousandsSeparator = l.ThousandsSeparator
	}
	if l.Precision != nil {
		out.Precision = l.Precision
	}
	if l.Sign != "" {
		out.Sign = l.Sign
	}
	if len(l.KeyFields) > 0 {
		out.KeyFields = l.KeyFields
	}
	if l.KeyOccurrence != nil {
		out.KeyOccurrence = l.KeyOccurrence
	}
	return out
}
