// Package store persists posted GL documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alvazi/microgl/internal/model"
)

// ErrDuplicateKey is returned by SaveDocument when a document with the same source
// natural key already exists.
var ErrDuplicateKey = errors.New("natural key already posted")

// Filter narrows Documents. Zero fields match everything.
type Filter struct {
	Year   int
	Period int
	Source string
}

func (f Filter) match(doc model.Document) bool {
	if f.Year != 0 && doc.PostingYear() != f.Year {
		return false
	}
	if f.Period != 0 && doc.PostingPeriod() != f.Period {
		return false
	}
	if f.Source != "" && doc.Source != f.Source {
		return false
	}
	return true
}

// Store is the durable document store the import pipeline writes to.
type Store interface {
	// NaturalKeys returns the natural keys of every stored document.
	NaturalKeys(ctx context.Context) ([]string, error)
	// NextDocumentID returns the next free document id in the posting period of date.
	NextDocumentID(ctx context.Context, date time.Time) (string, error)
	// SaveDocument stores a document and its lines atomically.
	SaveDocument(ctx context.Context, doc model.Document) error
	// Documents returns stored documents ordered by id.
	Documents(ctx context.Context, filter Filter) ([]model.Document, error)
	// Reset removes every stored document.
	Reset(ctx context.Context) error
	Close() error
}
