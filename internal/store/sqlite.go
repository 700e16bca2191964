package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/alvazi/microgl/internal/id"
	"github.com/alvazi/microgl/internal/model"
)

const dateFormat = "2006-01-02"

// SQLite stores documents in a SQLite database.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path with WAL mode and
// foreign keys enabled, and initializes the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Transaction runs fn in a transaction, rolling back if fn fails.
func (s *SQLite) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// NaturalKeys returns the natural keys of every stored document.
func (s *SQLite) NaturalKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT natural_key FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("querying natural keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning natural key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// NextDocumentID returns the next free id in the posting period of date.
func (s *SQLite) NextDocumentID(ctx context.Context, date time.Time) (string, error) {
	year, month := date.Year(), int(date.Month())
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM documents WHERE posting_year = ? AND posting_period = ?`,
		year, month).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("querying last sequence: %w", err)
	}
	return id.FormatDocumentID(year, month, last+1), nil
}

// SaveDocument inserts a document and its lines in one transaction.
func (s *SQLite) SaveDocument(ctx context.Context, doc model.Document) error {
	_, _, seq, err := id.ParseDocumentID(doc.ID)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	err = s.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, seq, natural_key, date, posting_year, posting_period,
				description, reference, source, business_partner, rule, currency, unclassified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, seq, doc.SourceNaturalKey, doc.Date.Format(dateFormat), doc.PostingYear(), doc.PostingPeriod(),
			doc.Description, doc.Reference, doc.Source, doc.BusinessPartner, doc.Rule, doc.Currency, doc.Unclassified,
		)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO lines (document_id, line_no, account_id, side, amount) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, l := range doc.Lines {
			if _, err := stmt.ExecContext(ctx, doc.ID, l.No, l.AccountID, string(l.Side), l.Amount); err != nil {
				return fmt.Errorf("line %d: %w", l.No, err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "documents.natural_key") {
			return fmt.Errorf("saving document %s: %w", doc.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

func isUniqueViolation(err error, column string) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique && strings.Contains(se.Error(), column)
}

// Documents returns stored documents with their lines, ordered by period and sequence.
func (s *SQLite) Documents(ctx context.Context, filter Filter) ([]model.Document, error) {
	query := `
		SELECT d.id, d.natural_key, d.date, d.description, d.reference, d.source, d.business_partner,
			d.rule, d.currency, d.unclassified, l.line_no, l.account_id, l.side, l.amount
		FROM documents d
		JOIN lines l ON l.document_id = d.id
		WHERE (? = 0 OR d.posting_year = ?)
			AND (? = 0 OR d.posting_period = ?)
			AND (? = '' OR d.source = ?)
		ORDER BY d.posting_year, d.posting_period, d.seq, l.line_no`

	rows, err := s.db.QueryContext(ctx, query,
		filter.Year, filter.Year, filter.Period, filter.Period, filter.Source, filter.Source)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var (
			h    model.Header
			date string
			l    model.Line
			side string
		)
		if err := rows.Scan(&h.ID, &h.SourceNaturalKey, &date, &h.Description, &h.Reference, &h.Source,
			&h.BusinessPartner, &h.Rule, &h.Currency, &h.Unclassified,
			&l.No, &l.AccountID, &side, &l.Amount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		l.Side = model.Side(side)

		if n := len(docs); n == 0 || docs[n-1].ID != h.ID {
			h.Date, err = time.Parse(dateFormat, date)
			if err != nil {
				return nil, fmt.Errorf("document %s: parsing date %q: %w", h.ID, date, err)
			}
			docs = append(docs, model.Document{Header: h})
		}
		last := &docs[len(docs)-1]
		last.Lines = append(last.Lines, l)
	}
	return docs, rows.Err()
}

// Reset drops and recreates the ledger tables.
func (s *SQLite) Reset(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
			return fmt.Errorf("dropping tables: %w", err)
		}
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
		return nil
	})
}
