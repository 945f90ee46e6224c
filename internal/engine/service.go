package engine

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// DefaultDebounce is the quiet period after the last edit before a
// document is reparsed.
const DefaultDebounce = 500 * time.Millisecond

// Service owns the tracked state of every open document: function ranges,
// the pending-documentation ledger, and the debounced reparse cycle.
//
// Each document has its own lock. Offset adjustments, ledger reads and
// writes, and the commit step of a classify cycle for a document are
// mutually exclusive; parsing and distance computation run outside it.
type Service struct {
	parser   Parser
	settings SettingsProvider
	logger   *logrus.Logger
	debounce time.Duration
	recorder Recorder
	metrics  *CycleMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	docs   map[tracking.DocumentID]*document
	closed bool

	subsMu sync.RWMutex
	subs   map[string]Listener
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDebounce sets the quiet period before a reparse.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) { s.debounce = d }
}

// WithRecorder persists cycle and acknowledgement history.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics shares a metrics collector.
func WithMetrics(m *CycleMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service. parser and settings are required.
func New(parser Parser, settings SettingsProvider, opts ...Option) (*Service, error) {
	if parser == nil {
		return nil, fmt.Errorf("parser cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	s := &Service{
		parser:   parser,
		settings: settings,
		debounce: DefaultDebounce,
		metrics:  NewCycleMetrics(),
		docs:     make(map[tracking.DocumentID]*document),
		subs:     make(map[string]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Open starts tracking the document backed by path. Opening an already open
// document returns its existing identity and swaps in the new source.
// Tracking starts empty; call Refresh to take the first snapshot.
func (s *Service) Open(path, language string, src Source) (tracking.DocumentID, error) {
	if src == nil {
		return "", fmt.Errorf("source cannot be nil")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := tracking.NewDocumentID(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if doc, ok := s.docs[id]; ok {
		doc.mu.Lock()
		doc.source = src
		doc.language = language
		doc.mu.Unlock()
		return id, nil
	}

	doc := &document{
		id:       id,
		path:     path,
		language: language,
		source:   src,
		ledger:   tracking.NewLedger(),
	}
	doc.task = newDeferredTask(s.debounce, func() { s.runScheduledCycle(doc) })
	s.docs[id] = doc

	s.logger.WithFields(logrus.Fields{"document": id, "path": path, "language": language}).Debug("document opened")
	return id, nil
}

// Close stops tracking a document. Pending and in-flight cycles are
// abandoned. Returns false if the document was not open.
func (s *Service) Close(id tracking.DocumentID) bool {
	s.mu.Lock()
	doc, ok := s.docs[id]
	if ok {
		delete(s.docs, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	doc.shutdown()
	s.logger.WithField("document", id).Debug("document closed")
	return true
}

// Shutdown closes every document and rejects further work.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.closed = true
	docs := s.docs
	s.docs = make(map[tracking.DocumentID]*document)
	s.mu.Unlock()

	s.cancel()
	for _, doc := range docs {
		doc.shutdown()
	}
}

// Documents returns the identities and paths of every open document.
func (s *Service) Documents() map[tracking.DocumentID]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[tracking.DocumentID]string, len(s.docs))
	for id, doc := range s.docs {
		out[id] = doc.path
	}
	return out
}

// Lookup returns the identity of an open document by path.
func (s *Service) Lookup(path string) (tracking.DocumentID, bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := tracking.NewDocumentID(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return id, ok
}

// Metrics returns a snapshot of cycle statistics.
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

func (s *Service) document(id tracking.DocumentID) (*document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return doc, nil
}

// ApplyEdit adjusts tracked ranges for one text mutation, invalidates any
// in-flight classify cycle, and restarts the debounce timer. It does not
// parse and returns quickly.
func (s *Service) ApplyEdit(edit tracking.EditEvent) error {
	return s.ApplyChange(edit.DocumentID, func() []tracking.EditEvent {
		return []tracking.EditEvent{edit}
	})
}

// ApplyChange runs change under the document lock and applies the edits it
// returns. change is where the caller replaces the text its Source serves,
// so no classify cycle can read the new text against the old ranges or the
// other way round. Edits for another document are rejected.
func (s *Service) ApplyChange(id tracking.DocumentID, change func() []tracking.EditEvent) error {
	doc, err := s.document(id)
	if err != nil {
		return err
	}

	doc.mu.Lock()
	if doc.closed {
		doc.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	edits := change()
	for _, edit := range edits {
		if edit.DocumentID != id {
			doc.mu.Unlock()
			return fmt.Errorf("%w: edit for %s applied to %s", ErrUnknownDocument, edit.DocumentID, id)
		}
	}
	touched := 0
	for _, edit := range edits {
		touched += tracking.ApplyEdit(doc.functions, edit)
	}
	if len(edits) > 0 {
		doc.ledger.Rekey()
		doc.invalidate()
	}
	path := doc.path
	doc.mu.Unlock()

	if len(edits) == 0 {
		return nil
	}
	for _, edit := range edits {
		s.metrics.recordEdit()
		s.logger.WithFields(logrus.Fields{
			"document": id,
			"offset":   edit.Offset,
			"delta":    edit.Delta(),
		}).Trace("applied edit")
	}
	s.logger.WithFields(logrus.Fields{"document": id, "edits": len(edits), "touched": touched}).Trace("applied change")

	s.emit(Event{Kind: RangeUpdated, DocumentID: id, Path: path})
	doc.task.Reset()
	return nil
}

// Refresh runs a classify cycle right away, without waiting for the
// debounce window. Use it when a document is first opened or reloaded.
func (s *Service) Refresh(ctx context.Context, id tracking.DocumentID) (tracking.ChangeSet, error) {
	doc, err := s.document(id)
	if err != nil {
		return tracking.ChangeSet{}, err
	}
	doc.task.Cancel()
	return s.runCycle(ctx, doc)
}

// ApplyReparse classifies a function list parsed outside the engine. The
// result is discarded with ErrSuperseded if an edit arrives while it is
// being classified.
func (s *Service) ApplyReparse(ctx context.Context, result ReparseResult) (tracking.ChangeSet, error) {
	doc, err := s.document(result.DocumentID)
	if err != nil {
		return tracking.ChangeSet{}, err
	}

	snap, cycleCtx, err := doc.begin(ctx)
	if err != nil {
		return tracking.ChangeSet{}, err
	}
	defer snap.cancel()

	return s.finishCycle(cycleCtx, doc, snap, result.Functions, result.Err)
}

// HandleAcknowledge is Acknowledge driven by an inbound event.
func (s *Service) HandleAcknowledge(ctx context.Context, ev AcknowledgeEvent) (bool, error) {
	return s.acknowledge(ctx, ev.DocumentID, ev.FunctionID)
}

// Acknowledge removes a function from the ledger and resets its change
// score, after its docstring was written or the change was dismissed.
// Reports whether an entry was removed.
func (s *Service) Acknowledge(id tracking.DocumentID, fn tracking.FunctionID) (bool, error) {
	return s.acknowledge(s.ctx, id, fn)
}

func (s *Service) acknowledge(ctx context.Context, id tracking.DocumentID, fnID tracking.FunctionID) (bool, error) {
	doc, err := s.document(id)
	if err != nil {
		return false, err
	}
	settings := s.settings.Settings()

	doc.mu.Lock()
	score := 0
	if entry, ok := doc.ledger.Get(fnID); ok {
		score = entry.RecordedChangeScore
	}
	removed := doc.ledger.Remove(fnID)
	var acked *tracking.Function
	if tracked := doc.find(fnID); tracked != nil {
		tracked.RecordedChangeScore = 0
		acked = tracked.Clone()
	}
	entries := doc.ledger.All()
	path := doc.path
	doc.mu.Unlock()

	if !removed {
		return false, nil
	}

	s.metrics.recordAcknowledgement()
	s.emit(Event{
		Kind:       LedgerChanged,
		DocumentID: id,
		Path:       path,
		Entries:    entries,
		Routing:    tracking.Route(entries, settings.Tags, settings.DefaultTagMode),
	})
	s.emit(Event{Kind: Acknowledged, DocumentID: id, Path: path, Function: acked})

	if s.recorder != nil {
		rec := AckRecord{DocumentID: id, Path: path, FunctionID: fnID, Score: score, At: time.Now().UTC()}
		if acked != nil {
			rec.Name = acked.Name
		}
		if err := s.recorder.RecordAcknowledgement(ctx, rec); err != nil {
			s.logger.WithError(err).WithField("document", id).Warn("failed to record acknowledgement")
		}
	}
	return true, nil
}

// Upsert marks a function as pending documentation. The function replaces
// any tracked function with the same identity, and its score is raised to
// the change threshold if it is below it.
func (s *Service) Upsert(id tracking.DocumentID, fn tracking.Function) error {
	doc, err := s.document(id)
	if err != nil {
		return err
	}
	settings := s.settings.Settings()

	entry := fn.Clone()
	if entry.RecordedChangeScore < settings.ChangeThreshold {
		entry.RecordedChangeScore = settings.ChangeThreshold
	}

	doc.mu.Lock()
	doc.replace(entry)
	doc.ledger.Upsert(entry)
	entries := doc.ledger.All()
	path := doc.path
	doc.mu.Unlock()

	s.emit(Event{
		Kind:       LedgerChanged,
		DocumentID: id,
		Path:       path,
		Entries:    entries,
		Routing:    tracking.Route(entries, settings.Tags, settings.DefaultTagMode),
	})
	return nil
}

// Remove drops a ledger entry and resets the tracked score so later edits
// can flag the function again. Unlike Acknowledge it records no history.
// Reports whether anything was removed; LedgerChanged is emitted only then.
func (s *Service) Remove(id tracking.DocumentID, fn tracking.FunctionID) (bool, error) {
	doc, err := s.document(id)
	if err != nil {
		return false, err
	}
	settings := s.settings.Settings()

	doc.mu.Lock()
	removed := doc.ledger.Remove(fn)
	if tracked := doc.find(fn); removed && tracked != nil {
		tracked.RecordedChangeScore = 0
	}
	entries := doc.ledger.All()
	path := doc.path
	doc.mu.Unlock()

	if removed {
		s.emit(Event{
			Kind:       LedgerChanged,
			DocumentID: id,
			Path:       path,
			Entries:    entries,
			Routing:    tracking.Route(entries, settings.Tags, settings.DefaultTagMode),
		})
	}
	return removed, nil
}

// GetAll returns a snapshot of the document's pending functions.
func (s *Service) GetAll(id tracking.DocumentID) ([]tracking.Function, error) {
	doc, err := s.document(id)
	if err != nil {
		return nil, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.ledger.All(), nil
}

// Routing tags the document's pending functions with the current settings.
func (s *Service) Routing(id tracking.DocumentID) (tracking.Routing, error) {
	entries, err := s.GetAll(id)
	if err != nil {
		return tracking.Routing{}, err
	}
	settings := s.settings.Settings()
	return tracking.Route(entries, settings.Tags, settings.DefaultTagMode), nil
}

// Functions returns a snapshot of every tracked function of the document.
func (s *Service) Functions(id tracking.DocumentID) ([]tracking.Function, error) {
	doc, err := s.document(id)
	if err != nil {
		return nil, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	out := make([]tracking.Function, len(doc.functions))
	for i, fn := range doc.functions {
		out[i] = *fn.Clone()
	}
	return out, nil
}

// FunctionAt returns the innermost tracked function containing offset.
func (s *Service) FunctionAt(id tracking.DocumentID, offset int) (tracking.Function, bool, error) {
	doc, err := s.document(id)
	if err != nil {
		return tracking.Function{}, false, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	fn := tracking.FunctionAt(doc.functions, offset)
	if fn == nil {
		return tracking.Function{}, false, nil
	}
	return *fn.Clone(), true, nil
}

// Coverage reports how much of the document is documented.
func (s *Service) Coverage(id tracking.DocumentID) (tracking.CoverageStats, error) {
	doc, err := s.document(id)
	if err != nil {
		return tracking.CoverageStats{}, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	stats := tracking.Coverage(doc.functions)
	stats.Pending = doc.ledger.Len()
	return stats, nil
}

// Pending returns every open document's pending functions, keyed by path
// and ordered by path.
func (s *Service) Pending() []DocumentPending {
	s.mu.RLock()
	docs := make([]*document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	out := make([]DocumentPending, 0, len(docs))
	for _, doc := range docs {
		doc.mu.Lock()
		entries := doc.ledger.All()
		doc.mu.Unlock()
		if len(entries) == 0 {
			continue
		}
		out = append(out, DocumentPending{DocumentID: doc.id, Path: doc.path, Functions: entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DocumentPending is one document's pending set.
type DocumentPending struct {
	DocumentID tracking.DocumentID `json:"document_id"`
	Path       string              `json:"path"`
	Functions  []tracking.Function `json:"functions"`
}
