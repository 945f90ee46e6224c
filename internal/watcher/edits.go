package watcher

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// DiffEdits turns the change from oldText to newText into a sequence of
// line-granular edit events. Each event's offset is expressed against the
// text as it stands after the previous events were applied, so they must be
// applied in order.
func DiffEdits(id tracking.DocumentID, oldText, newText string) []tracking.EditEvent {
	if oldText == newText {
		return nil
	}

	a, b := splitLines(oldText), splitLines(newText)
	aOffsets, bOffsets := lineOffsets(a), lineOffsets(b)

	var edits []tracking.EditEvent
	delta := 0
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		oldLen := aOffsets[op.I2] - aOffsets[op.I1]
		newLen := bOffsets[op.J2] - bOffsets[op.J1]
		edits = append(edits, tracking.EditEvent{
			DocumentID: id,
			Offset:     aOffsets[op.I1] + delta,
			OldLength:  oldLen,
			NewLength:  newLen,
		})
		delta += newLen - oldLen
	}
	return edits
}

// splitLines splits s after each newline. Unlike difflib.SplitLines it does
// not add a trailing newline, so byte lengths are preserved.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineOffsets returns the byte offset of every line start plus the total
// length as the final element.
func lineOffsets(lines []string) []int {
	offsets := make([]int, len(lines)+1)
	for i, line := range lines {
		offsets[i+1] = offsets[i] + len(line)
	}
	return offsets
}
