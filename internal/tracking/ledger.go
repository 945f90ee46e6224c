package tracking

// Ledger holds the functions of one document that are pending a
// documentation action, keyed by function identity.
//
// Entries point at the tracked functions themselves so that offset shifts
// are visible without copying; call Rekey after shifting. Ledger is not
// safe for concurrent use; the owner serializes access.
type Ledger struct {
	entries map[FunctionID]*Function
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[FunctionID]*Function)}
}

// Upsert inserts or replaces the entry for fn's identity.
func (l *Ledger) Upsert(fn *Function) {
	l.entries[fn.ID()] = fn
}

// Remove deletes the entry for id and reports whether one existed.
func (l *Ledger) Remove(id FunctionID) bool {
	if _, ok := l.entries[id]; !ok {
		return false
	}
	delete(l.entries, id)
	return true
}

// Get returns the live entry for id.
func (l *Ledger) Get(id FunctionID) (*Function, bool) {
	fn, ok := l.entries[id]
	return fn, ok
}

// Len returns the number of pending functions.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// All returns copies of every entry, ordered by offset. Callers may keep
// and iterate the result while the ledger keeps changing.
func (l *Ledger) All() []Function {
	live := make([]*Function, 0, len(l.entries))
	for _, fn := range l.entries {
		live = append(live, fn)
	}
	SortByOffset(live)

	out := make([]Function, len(live))
	for i, fn := range live {
		out[i] = *fn.Clone()
	}
	return out
}

// Rekey rebuilds the index after entry offsets were shifted in place.
func (l *Ledger) Rekey() {
	rekeyed := make(map[FunctionID]*Function, len(l.entries))
	for _, fn := range l.entries {
		rekeyed[fn.ID()] = fn
	}
	l.entries = rekeyed
}

// Reload points existing entries at the matching functions of a freshly
// tracked list. Entries with no counterpart are dropped and returned.
func (l *Ledger) Reload(tracked []*Function) []FunctionID {
	byID := make(map[FunctionID]*Function, len(tracked))
	for _, fn := range tracked {
		byID[fn.ID()] = fn
	}

	var dropped []FunctionID
	for id := range l.entries {
		if fn, ok := byID[id]; ok {
			l.entries[id] = fn
		} else {
			delete(l.entries, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	l.entries = make(map[FunctionID]*Function)
}
