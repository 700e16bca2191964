package id

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// FormatDocumentID returns a document ID like "2025-01-001".
func FormatDocumentID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// FormatItemID returns the zero-padded item number of a line, "001" for line 1.
func FormatItemID(lineNo int) string {
	return fmt.Sprintf("%03d", lineNo)
}

// ParseDocumentID parses "2025-01-001" into year, month, seq.
func ParseDocumentID(docID string) (year, month, seq int, err error) {
	parts := strings.SplitN(docID, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid document ID format: %q", docID)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in document ID %q: %w", docID, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in document ID %q: %w", docID, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in document ID %q", docID)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in document ID %q: %w", docID, err)
	}

	return year, month, seq, nil
}

// Compare orders document IDs by year, month and numeric sequence, so "2025-01-1000"
// sorts after "2025-01-999". IDs that do not parse sort last, in string order.
func Compare(a, b string) int {
	ya, ma, sa, errA := ParseDocumentID(a)
	yb, mb, sb, errB := ParseDocumentID(b)
	switch {
	case errA != nil && errB != nil:
		return cmp.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := cmp.Compare(ya, yb); c != 0 {
		return c
	}
	if c := cmp.Compare(ma, mb); c != 0 {
		return c
	}
	return cmp.Compare(sa, sb)
}
