package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	// RangeUpdated fires after every offset adjustment so decorations can
	// be redrawn without waiting for a reparse.
	RangeUpdated EventKind = iota + 1
	// LedgerChanged fires after every applied classify cycle and after
	// acknowledgements that removed something.
	LedgerChanged
	// Parsed fires after a classify cycle was applied.
	Parsed
	// Acknowledged fires when a pending function was acknowledged.
	Acknowledged
)

func (k EventKind) String() string {
	switch k {
	case RangeUpdated:
		return "range_updated"
	case LedgerChanged:
		return "ledger_changed"
	case Parsed:
		return "parsed"
	case Acknowledged:
		return "acknowledged"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to listeners outside any document lock.
type Event struct {
	Kind       EventKind
	DocumentID tracking.DocumentID
	Path       string
	Language   string
	CycleID    string

	// Entries and Routing are set for LedgerChanged.
	Entries []tracking.Function
	Routing tracking.Routing

	// Function is set for Acknowledged.
	Function *tracking.Function
}

// Listener receives engine events. It must not block for long; it runs on
// the goroutine that produced the event.
type Listener func(Event)

// Subscribe registers l and returns a function that unregisters it.
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	id := uuid.NewString()

	s.subsMu.Lock()
	s.subs[id] = l
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Service) emit(ev Event) {
	s.subsMu.RLock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subsMu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
