package posting

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmapped is matched by every *UnmappedTransactionError.
	ErrUnmapped = errors.New("unmapped transaction")
	// ErrInvalidMapping is matched by every *InvalidMappingError.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// UnmappedTransactionError reports a transaction no rule matched when the source's
// fallback policy is to fail.
type UnmappedTransactionError struct {
	File        string
	Row         int
	Source      string
	Description string
	Amount      int64
}

func (e *UnmappedTransactionError) Error() string {
	return fmt.Sprintf("%s row %d: no rule for source %s matches %q (amount %d)",
		e.File, e.Row, e.Source, e.Description, e.Amount)
}

// Is makes errors.Is(err, ErrUnmapped) hold.
func (e *UnmappedTransactionError) Is(target error) bool {
	return target == ErrUnmapped
}

// InvalidMappingError reports a rule or posting that cannot produce a balanced set of lines.
type InvalidMappingError struct {
	Source string
	Rule   string
	Reason string
}

func (e *InvalidMappingError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("invalid mapping for source %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("invalid mapping for source %s rule %s: %s", e.Source, e.Rule, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidMapping) hold.
func (e *InvalidMappingError) Is(target error) bool {
	return target == ErrInvalidMapping
}
