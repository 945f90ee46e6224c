package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// document is the tracked state of one open document. Every field below mu
// is guarded by it.
type document struct {
	id   tracking.DocumentID
	path string
	task *deferredTask

	mu          sync.Mutex
	language    string
	source      Source
	functions   []*tracking.Function
	ledger      *tracking.Ledger
	baselined   bool
	generation  uint64
	cancelCycle context.CancelFunc
	closed      bool
}

// snapshot is what a classify cycle works on outside the lock.
type snapshot struct {
	cycleID    string
	generation uint64
	language   string
	path       string
	text       string
	previous   []*tracking.Function
	started    time.Time
	cancel     context.CancelFunc
}

// invalidate makes every in-flight cycle stale. Caller holds mu.
func (d *document) invalidate() {
	d.generation++
	if d.cancelCycle != nil {
		d.cancelCycle()
		d.cancelCycle = nil
	}
}

// begin starts a new cycle, cancelling the previous one. Only one cycle per
// document is ever current.
func (d *document) begin(parent context.Context) (*snapshot, context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDocument, d.id)
	}
	d.invalidate()

	ctx, cancel := context.WithCancel(parent)
	d.cancelCycle = cancel

	return &snapshot{
		cycleID:    uuid.NewString(),
		generation: d.generation,
		language:   d.language,
		path:       d.path,
		text:       d.source.Text(),
		previous:   tracking.CloneAll(d.functions),
		started:    time.Now(),
		cancel:     cancel,
	}, ctx, nil
}

// find returns the tracked function with the given identity. Caller holds mu.
func (d *document) find(id tracking.FunctionID) *tracking.Function {
	for _, fn := range d.functions {
		if fn.ID() == id {
			return fn
		}
	}
	return nil
}

// replace swaps in fn for the tracked function with the same identity, or
// adds it. Caller holds mu.
func (d *document) replace(fn *tracking.Function) {
	id := fn.ID()
	for i, existing := range d.functions {
		if existing.ID() == id {
			d.functions[i] = fn
			return
		}
	}
	d.functions = append(d.functions, fn)
	tracking.SortByOffset(d.functions)
}

func (d *document) shutdown() {
	d.task.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.invalidate()
}

// runScheduledCycle is the debounce timer callback.
func (s *Service) runScheduledCycle(doc *document) {
	_, err := s.runCycle(s.ctx, doc)
	if err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrUnknownDocument) {
		s.logger.WithError(err).WithField("document", doc.id).Warn("classify cycle failed")
	}
}

// runCycle reparses the document's current text and classifies it.
func (s *Service) runCycle(ctx context.Context, doc *document) (tracking.ChangeSet, error) {
	snap, cycleCtx, err := doc.begin(ctx)
	if err != nil {
		return tracking.ChangeSet{}, err
	}
	defer snap.cancel()

	fresh, parseErr := s.parser.Parse(cycleCtx, snap.language, snap.text)
	return s.finishCycle(cycleCtx, doc, snap, fresh, parseErr)
}

// finishCycle classifies fresh against the snapshot and commits the result
// if nothing newer arrived in the meantime.
func (s *Service) finishCycle(ctx context.Context, doc *document, snap *snapshot, fresh []*tracking.Function, parseErr error) (tracking.ChangeSet, error) {
	log := s.logger.WithFields(logrus.Fields{"document": doc.id, "cycle": snap.cycleID})

	if ctx.Err() != nil {
		return s.discard(log, snap)
	}
	if parseErr != nil {
		// A failed parse must not read as "every function was deleted".
		s.metrics.recordCycle(time.Since(snap.started), outcomeFailed, parseErr)
		log.WithError(parseErr).Warn("reparse failed, keeping previous state")
		return tracking.ChangeSet{}, fmt.Errorf("failed to parse %s: %w", snap.path, parseErr)
	}

	settings := s.settings.Settings()
	cs, err := tracking.ClassifyContext(ctx, snap.previous, fresh, settings.ChangeThreshold)
	if err != nil {
		return s.discard(log, snap)
	}

	doc.mu.Lock()
	if doc.closed || doc.generation != snap.generation || ctx.Err() != nil {
		doc.mu.Unlock()
		return s.discard(log, snap)
	}

	baseline := !doc.baselined
	if baseline {
		// The first snapshot of a document is the reference point, not a
		// batch of new functions.
		for _, fn := range cs.New {
			fn.RecordedChangeScore = 0
		}
		cs.Unchanged = append(cs.Unchanged, cs.New...)
		cs.New = nil
		tracking.SortByOffset(cs.Unchanged)
		doc.baselined = true
	}

	doc.functions = cs.Fresh()
	for _, fn := range cs.Deleted {
		doc.ledger.Remove(fn.ID())
	}
	doc.ledger.Reload(doc.functions)
	for _, fn := range cs.Updated {
		doc.ledger.Upsert(fn)
	}
	// New functions carry no score of their own; the entry is seeded at
	// the threshold like any other pending function.
	for _, fn := range cs.New {
		fn.RecordedChangeScore = max(settings.ChangeThreshold, 0)
		doc.ledger.Upsert(fn)
	}
	entries := doc.ledger.All()
	doc.cancelCycle = nil
	doc.mu.Unlock()

	duration := time.Since(snap.started)
	s.metrics.recordCycle(duration, outcomeApplied, nil)
	log.WithFields(logrus.Fields{
		"new":       len(cs.New),
		"updated":   len(cs.Updated),
		"deleted":   len(cs.Deleted),
		"unchanged": len(cs.Unchanged),
		"pending":   len(entries),
		"baseline":  baseline,
		"duration":  duration,
	}).Debug("classify cycle applied")

	s.emit(Event{Kind: Parsed, DocumentID: doc.id, Path: snap.path, Language: snap.language, CycleID: snap.cycleID})
	s.emit(Event{
		Kind:       LedgerChanged,
		DocumentID: doc.id,
		Path:       snap.path,
		Language:   snap.language,
		CycleID:    snap.cycleID,
		Entries:    entries,
		Routing:    tracking.Route(entries, settings.Tags, settings.DefaultTagMode),
	})

	if s.recorder != nil {
		rec := CycleRecord{
			CycleID:    snap.cycleID,
			DocumentID: doc.id,
			Path:       snap.path,
			Language:   snap.language,
			New:        len(cs.New),
			Updated:    len(cs.Updated),
			Deleted:    len(cs.Deleted),
			Unchanged:  len(cs.Unchanged),
			Pending:    len(entries),
			Baseline:   baseline,
			Duration:   duration,
			At:         time.Now().UTC(),
		}
		if err := s.recorder.RecordCycle(s.ctx, rec); err != nil {
			log.WithError(err).Warn("failed to record classify cycle")
		}
	}

	return cs, nil
}

func (s *Service) discard(log *logrus.Entry, snap *snapshot) (tracking.ChangeSet, error) {
	s.metrics.recordCycle(time.Since(snap.started), outcomeDiscarded, nil)
	log.Trace("classify cycle superseded, discarding")
	return tracking.ChangeSet{}, ErrSuperseded
}
