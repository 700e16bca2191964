package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alvazi/microgl/internal/id"
	"github.com/alvazi/microgl/internal/model"
)

// Memory is an in-process Store used for dry runs and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]model.Document
	keys map[string]string // natural key -> document id
	last map[period]int    // highest sequence per posting period
}

type period struct{ year, month int }

// NewMemory returns an empty Memory store, optionally seeded with documents.
func NewMemory(seed ...model.Document) *Memory {
	m := &Memory{
		docs: make(map[string]model.Document),
		keys: make(map[string]string),
		last: make(map[period]int),
	}
	for _, doc := range seed {
		m.put(doc)
	}
	return m
}

func (m *Memory) put(doc model.Document) {
	m.docs[doc.ID] = doc
	m.keys[doc.SourceNaturalKey] = doc.ID
	if y, mo, seq, err := id.ParseDocumentID(doc.ID); err == nil {
		p := period{y, mo}
		m.last[p] = max(m.last[p], seq)
	}
}

// NaturalKeys returns the natural keys of every stored document.
func (m *Memory) NaturalKeys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	return keys, nil
}

// NextDocumentID returns the next free id in the posting period of date.
func (m *Memory) NextDocumentID(_ context.Context, date time.Time) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	year, month := date.Year(), int(date.Month())
	return id.FormatDocumentID(year, month, m.last[period{year, month}]+1), nil
}

// SaveDocument stores a copy of doc.
func (m *Memory) SaveDocument(_ context.Context, doc model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[doc.SourceNaturalKey]; ok {
		return fmt.Errorf("saving document %s: %w", doc.ID, ErrDuplicateKey)
	}
	if _, ok := m.docs[doc.ID]; ok {
		return fmt.Errorf("saving document %s: id already used", doc.ID)
	}
	doc.Lines = append([]model.Line(nil), doc.Lines...)
	m.put(doc)
	return nil
}

// Documents returns stored documents ordered by period and sequence.
func (m *Memory) Documents(_ context.Context, filter Filter) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Document
	for _, doc := range m.docs {
		if filter.match(doc) {
			out = append(out, doc)
		}
	}
	slices.SortFunc(out, func(a, b model.Document) int { return id.Compare(a.ID, b.ID) })
	return out, nil
}

// Reset removes every document.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]model.Document)
	m.keys = make(map[string]string)
	m.last = make(map[period]int)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
