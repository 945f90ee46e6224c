package tracking

// EditEvent describes one text mutation: OldLength bytes at Offset were
// replaced by NewLength bytes.
type EditEvent struct {
	DocumentID DocumentID `json:"document_id"`
	Offset     int        `json:"offset"`
	OldLength  int        `json:"old_length"`
	NewLength  int        `json:"new_length"`
}

// Delta is the change in document length caused by the edit.
func (e EditEvent) Delta() int {
	return e.NewLength - e.OldLength
}

// OldEnd is the offset just past the replaced text in the old document.
func (e EditEvent) OldEnd() int {
	return e.Offset + e.OldLength
}

// ApplyEdit shifts function ranges in place to follow an edit, without a
// reparse. Only bounds at or past the old end of the edit move; functions
// that end before it are untouched. A function straddling the edit keeps
// its start and grows or shrinks with the edit, which is only an
// approximation until the next reparse corrects it.
//
// Returns the number of functions that were considered for shifting.
func ApplyEdit(functions []*Function, edit EditEvent) int {
	delta := edit.Delta()
	oldEnd := edit.OldEnd()
	if delta == 0 {
		return 0
	}

	touched := 0
	for _, fn := range functions {
		if fn.EndOffset < oldEnd {
			continue
		}
		touched++

		if fn.DocstringRange != nil {
			if fn.DocstringRange.Start >= oldEnd {
				fn.DocstringRange.Start += delta
			}
			if fn.DocstringRange.End >= oldEnd {
				fn.DocstringRange.End += delta
			}
		}
		if fn.DocstringOffset >= oldEnd {
			fn.DocstringOffset += delta
		}
		if fn.StartOffset >= oldEnd {
			fn.StartOffset += delta
		}
		if fn.EndOffset >= oldEnd {
			fn.EndOffset += delta
		}
	}
	return touched
}
