// Package pipeline runs an import: decode, normalize, dedup, post, assemble, store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alvazi/microgl/internal/auditlog"
	"github.com/alvazi/microgl/internal/dedup"
	"github.com/alvazi/microgl/internal/importer"
	"github.com/alvazi/microgl/internal/journal"
	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/normalize"
	"github.com/alvazi/microgl/internal/posting"
	"github.com/alvazi/microgl/internal/rules"
	"github.com/alvazi/microgl/internal/store"
)

// Options tunes a Runner.
type Options struct {
	Workers      int    // files decoded in parallel, default 1
	ProcessedDir string // fully posted files are moved here; empty disables moving
	ImportDir    string // directory the files were scanned from
	LogPath      string // import log; empty disables logging to file
}

// Runner imports bank files into a store.
type Runner struct {
	store   store.Store
	engine  *posting.Engine
	layouts map[string]importer.Layout
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// NewRunner creates a Runner. layouts maps source codes to resolved layouts; the rule
// set and catalog are shared read-only by all workers.
func NewRunner(st store.Store, set *rules.Set, catalog posting.Catalog, layouts map[string]importer.Layout, opts Options, log zerolog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		store:   st,
		engine:  posting.NewEngine(set, catalog),
		layouts: layouts,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// candidate is a transaction that passed the gate and the posting engine.
type candidate struct {
	txn    model.Transaction
	result posting.Result
}

// Run imports files. Per-transaction failures are recorded in the summary and the
// run continues; store failures abort the run.
func (r *Runner) Run(ctx context.Context, files []importer.FileInfo) (Summary, error) {
	runID := uuid.NewString()
	log := r.log.With().Str("run_id", runID).Logger()
	t := newTally(runID)
	t.summary.Files = len(files)
	if err := ctx.Err(); err != nil {
		return t.summary, err
	}

	keys, err := r.store.NaturalKeys(ctx)
	if err != nil {
		return t.summary, fmt.Errorf("loading natural keys: %w", err)
	}
	gate := dedup.NewGate(keys)
	log.Info().Int("files", len(files)).Int("known_keys", len(keys)).Msg("import started")

	g, gctx := errgroup.WithContext(ctx)
	cands := make(chan candidate)

	g.Go(func() error {
		return r.write(gctx, runID, cands, gate, t, log)
	})
	g.Go(func() error {
		defer close(cands)
		wg, wctx := errgroup.WithContext(gctx)
		wg.SetLimit(r.opts.Workers)
		for _, f := range files {
			f := f
			wg.Go(func() error {
				return r.processFile(wctx, runID, f, gate, cands, t, log)
			})
		}
		return wg.Wait()
	})

	if err := g.Wait(); err != nil {
		return r.finish(t, gate, log), err
	}

	for _, f := range files {
		if r.opts.ProcessedDir == "" || t.hasFailures(f.Name) {
			continue
		}
		if err := importer.MarkProcessed(r.opts.ImportDir, r.opts.ProcessedDir, f.Name); err != nil {
			return r.finish(t, gate, log), err
		}
		t.summary.Moved = append(t.summary.Moved, f.Name)
	}

	sum := r.finish(t, gate, log)
	if r.opts.LogPath != "" {
		if err := auditlog.Append(r.opts.LogPath, t.entries); err != nil {
			return sum, fmt.Errorf("writing import log: %w", err)
		}
	}
	return sum, nil
}

func (r *Runner) finish(t *tally, gate *dedup.Gate, log zerolog.Logger) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	sort.SliceStable(t.summary.Failures, func(i, j int) bool {
		a, b := t.summary.Failures[i], t.summary.Failures[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Row < b.Row
	})
	t.summary.Ledger = gate.Committed()
	s := t.summary
	log.Info().
		Int("posted", s.Posted).
		Int("duplicates", s.Duplicates).
		Int("filtered", s.Filtered).
		Int("failed", s.Failed).
		Int("ledger", s.Ledger).
		Msg("import finished")
	return s
}

// processFile decodes one file and feeds its postable transactions to the writer in row order.
func (r *Runner) processFile(ctx context.Context, runID string, f importer.FileInfo, gate *dedup.Gate, out chan<- candidate, t *tally, log zerolog.Logger) error {
	flog := log.With().Str("file", f.Name).Str("source", f.Source).Logger()
	entry := func(outcome auditlog.Outcome) auditlog.Entry {
		return auditlog.Entry{Timestamp: r.now(), RunID: runID, Outcome: outcome, Source: f.Source, File: f.Name}
	}

	layout, ok := r.layouts[f.Source]
	if !ok {
		err := fmt.Errorf("no source configured for code %q", f.Source)
		flog.Warn().Err(err).Msg("file skipped")
		e := entry(auditlog.OutcomeFailed)
		e.Details = err.Error()
		t.record(e, 1, err)
		return nil
	}

	dec, err := importer.DecodeFile(f, layout)
	if err != nil {
		flog.Warn().Err(err).Msg("file skipped")
		e := entry(auditlog.OutcomeFailed)
		e.Details = err.Error()
		t.record(e, 1, err)
		return nil
	}
	if dec.Filtered > 0 {
		e := entry(auditlog.OutcomeFiltered)
		e.Details = fmt.Sprintf("%d rows matched skip_descriptions", dec.Filtered)
		t.record(e, dec.Filtered, nil)
	}

	keyer := normalize.NewKeyer()
	for _, raw := range dec.Rows {
		e := entry(auditlog.OutcomeFailed)
		e.Row = raw.Row

		txn, err := normalize.Normalize(raw, layout.Layout)
		if err != nil {
			e.Details = err.Error()
			t.record(e, 1, err)
			flog.Warn().Err(err).Int("row", raw.Row).Msg("malformed record")
			continue
		}
		if layout.Occurrences() {
			txn.NaturalKey = keyer.Key(txn.NaturalKey)
		}
		e.NaturalKey = txn.NaturalKey

		if gate.Reserve(txn.NaturalKey) == dedup.Duplicate {
			e.Outcome = auditlog.OutcomeDuplicate
			t.record(e, 1, nil)
			flog.Debug().Int("row", raw.Row).Str("key", txn.NaturalKey).Msg("duplicate")
			continue
		}

		res, err := r.engine.Post(txn)
		if err != nil {
			gate.Release(txn.NaturalKey)
			e.Details = err.Error()
			t.record(e, 1, err)
			flog.Warn().Err(err).Int("row", raw.Row).Msg("posting failed")
			continue
		}

		select {
		case out <- candidate{txn: txn, result: res}:
		case <-ctx.Done():
			gate.Release(txn.NaturalKey)
			return ctx.Err()
		}
	}
	return nil
}

// write is the single writer: it assigns document ids, assembles and persists documents.
func (r *Runner) write(ctx context.Context, runID string, in <-chan candidate, gate *dedup.Gate, t *tally, log zerolog.Logger) error {
	for c := range in {
		txn := c.txn
		e := auditlog.Entry{
			Timestamp:  r.now(),
			RunID:      runID,
			Source:     txn.Source,
			File:       txn.File,
			Row:        txn.Row,
			NaturalKey: txn.NaturalKey,
		}

		docID, err := r.store.NextDocumentID(ctx, txn.Date)
		if err != nil {
			gate.Release(txn.NaturalKey)
			return fmt.Errorf("allocating document id: %w", err)
		}

		doc, err := journal.Assemble(model.Header{
			ID:               docID,
			Date:             txn.Date,
			Description:      txn.Description,
			Reference:        txn.Reference,
			SourceNaturalKey: txn.NaturalKey,
			Source:           txn.Source,
			BusinessPartner:  c.result.BusinessPartner,
			Rule:             c.result.Rule,
			Currency:         c.result.Currency,
			Unclassified:     c.result.Unclassified,
		}, c.result.Lines)
		if err != nil {
			gate.Release(txn.NaturalKey)
			e.Outcome = auditlog.OutcomeFailed
			e.Details = err.Error()
			t.record(e, 1, err)
			log.Warn().Err(err).Str("file", txn.File).Int("row", txn.Row).Msg("assembly failed")
			continue
		}

		if err := r.store.SaveDocument(ctx, doc); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				gate.Commit(txn.NaturalKey)
				e.Outcome = auditlog.OutcomeDuplicate
				t.record(e, 1, nil)
				continue
			}
			gate.Release(txn.NaturalKey)
			return err
		}
		gate.Commit(txn.NaturalKey)

		e.Outcome = auditlog.OutcomePosted
		e.DocumentID = doc.ID
		if doc.Unclassified {
			e.Details = "unclassified"
		} else {
			e.Details = "rule " + doc.Rule
		}
		t.record(e, 1, nil)
		log.Debug().
			Str("file", txn.File).
			Int("row", txn.Row).
			Str("document", doc.ID).
			Str("rule", doc.Rule).
			Msg("posted")
	}
	return nil
}
