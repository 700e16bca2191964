package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvazi/microgl/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func document(docID, key string, when time.Time, amount int64) model.Document {
	return model.Document{
		Header: model.Header{
			ID:               docID,
			Date:             when,
			Description:      "COFFEE SHOP",
			Reference:        "1042",
			SourceNaturalKey: key,
			Source:           "CHK",
			BusinessPartner:  "Coffee Shop",
			Rule:             "coffee",
			Currency:         "USD",
		},
		Lines: []model.Line{
			{No: 1, AccountID: "5020", Side: model.Debit, Amount: amount},
			{No: 2, AccountID: "1010", Side: model.Credit, Amount: amount},
		},
	}
}

// stores runs a test against every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"sqlite": sq, "memory": NewMemory()}
}

func TestStore_SaveAndRead(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			doc := document("2025-01-001", "k_1", date(2025, 1, 3), 5000)
			doc.Unclassified = true
			require.NoError(t, s.SaveDocument(ctx, doc))

			docs, err := s.Documents(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, doc, docs[0])

			keys, err := s.NaturalKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"k_1"}, keys)
		})
	}
}

func TestStore_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "k_1", date(2025, 1, 3), 5000)))

			err := s.SaveDocument(ctx, document("2025-01-002", "k_1", date(2025, 1, 3), 5000))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDuplicateKey))

			docs, err := s.Documents(ctx, Filter{})
			require.NoError(t, err)
			assert.Len(t, docs, 1, "failed save leaves nothing behind")
		})
	}
}

func TestStore_NextDocumentID(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			next, err := s.NextDocumentID(ctx, date(2025, 1, 3))
			require.NoError(t, err)
			assert.Equal(t, "2025-01-001", next)

			require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "a", date(2025, 1, 3), 1)))
			require.NoError(t, s.SaveDocument(ctx, document("2025-01-002", "b", date(2025, 1, 9), 1)))
			require.NoError(t, s.SaveDocument(ctx, document("2025-02-001", "c", date(2025, 2, 1), 1)))

			next, err = s.NextDocumentID(ctx, date(2025, 1, 31))
			require.NoError(t, err)
			assert.Equal(t, "2025-01-003", next)

			next, err = s.NextDocumentID(ctx, date(2025, 2, 14))
			require.NoError(t, err)
			assert.Equal(t, "2025-02-002", next)
		})
	}
}

func TestStore_SequencePastNineNineNine(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, d := range []model.Document{
				document("2025-01-1000", "a", date(2025, 1, 31), 1),
				document("2025-02-001", "b", date(2025, 2, 1), 1),
				document("2025-01-999", "c", date(2025, 1, 30), 1),
				document("2025-01-002", "d", date(2025, 1, 2), 1),
			} {
				require.NoError(t, s.SaveDocument(ctx, d))
			}

			docs, err := s.Documents(ctx, Filter{})
			require.NoError(t, err)
			var ids []string
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, []string{"2025-01-002", "2025-01-999", "2025-01-1000", "2025-02-001"}, ids)

			next, err := s.NextDocumentID(ctx, date(2025, 1, 31))
			require.NoError(t, err)
			assert.Equal(t, "2025-01-1001", next)
		})
	}
}

func TestSQLite_RejectsUnparseableID(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	err = s.SaveDocument(ctx, document("not-an-id", "a", date(2025, 1, 3), 1))
	assert.ErrorContains(t, err, "invalid")
}

func TestStore_Filter(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveDocument(ctx, document("2024-12-001", "a", date(2024, 12, 30), 1)))
			require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "b", date(2025, 1, 3), 2)))
			sav := document("2025-02-001", "c", date(2025, 2, 3), 3)
			sav.Source = "SAV"
			require.NoError(t, s.SaveDocument(ctx, sav))

			docs, err := s.Documents(ctx, Filter{Year: 2025})
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "2025-01-001", docs[0].ID)
			assert.Equal(t, "2025-02-001", docs[1].ID)

			docs, err = s.Documents(ctx, Filter{Year: 2025, Period: 1})
			require.NoError(t, err)
			require.Len(t, docs, 1)

			docs, err = s.Documents(ctx, Filter{Source: "SAV"})
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, int64(3), docs[0].Lines[0].Amount)
		})
	}
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "a", date(2025, 1, 3), 1)))
			require.NoError(t, s.Reset(ctx))

			docs, err := s.Documents(ctx, Filter{})
			require.NoError(t, err)
			assert.Empty(t, docs)

			require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "a", date(2025, 1, 3), 1)))
		})
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDocument(ctx, document("2025-01-001", "a", date(2025, 1, 3), 1)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	docs, err := s.Documents(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, path, s.Path())
}

func TestSQLite_RejectsInvalidSide(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	doc := document("2025-01-001", "a", date(2025, 1, 3), 1)
	doc.Lines[1].Side = "X"
	err = s.SaveDocument(ctx, doc)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateKey))

	keys, err := s.NaturalKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "document insert rolled back with its lines")
}
