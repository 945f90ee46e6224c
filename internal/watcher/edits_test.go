package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// Test Plan for DiffEdits:
// - Identical texts produce no edits
// - A replaced line becomes one edit with old and new lengths
// - Insertions and deletions have zero old or new length
// - Several hunks are expressed against the running text and replay to the new text
// - Text without a trailing newline keeps exact byte lengths
// - Edits shift tracked functions after the change

// replay applies edits in order, pulling inserted bytes from newText. It
// works because each edit's offset is also its offset in newText.
func replay(oldText, newText string, edits []tracking.EditEvent) string {
	text := oldText
	for _, e := range edits {
		text = text[:e.Offset] + newText[e.Offset:e.Offset+e.NewLength] + text[e.Offset+e.OldLength:]
	}
	return text
}

// Test: Identical texts produce no edits
func TestDiffEdits_Identical(t *testing.T) {
	t.Parallel()
	assert.Empty(t, DiffEdits("d", "a\nb\n", "a\nb\n"))
}

// Test: A replaced line becomes one edit with old and new lengths
func TestDiffEdits_Replace(t *testing.T) {
	t.Parallel()

	edits := DiffEdits("d", "one\ntwo\nthree\n", "one\nTWO!\nthree\n")
	require.Len(t, edits, 1)
	assert.Equal(t, tracking.EditEvent{DocumentID: "d", Offset: 4, OldLength: 4, NewLength: 5}, edits[0])
}

// Test: Insertions and deletions have zero old or new length
func TestDiffEdits_InsertDelete(t *testing.T) {
	t.Parallel()

	ins := DiffEdits("d", "a\nc\n", "a\nb\nc\n")
	require.Len(t, ins, 1)
	assert.Equal(t, 2, ins[0].Offset)
	assert.Equal(t, 0, ins[0].OldLength)
	assert.Equal(t, 2, ins[0].NewLength)

	del := DiffEdits("d", "a\nb\nc\n", "a\nc\n")
	require.Len(t, del, 1)
	assert.Equal(t, 2, del[0].Offset)
	assert.Equal(t, 2, del[0].OldLength)
	assert.Equal(t, 0, del[0].NewLength)

	all := DiffEdits("d", "", "x\n")
	require.Len(t, all, 1)
	assert.Equal(t, tracking.EditEvent{DocumentID: "d", Offset: 0, OldLength: 0, NewLength: 2}, all[0])
}

// Test: Several hunks are expressed against the running text and replay to the new text
func TestDiffEdits_MultipleHunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		old, new string
	}{
		{"two replaces", "a\nb\nc\nd\ne\n", "a\nBB\nc\nd\nEEE\n"},
		{"grow then shrink", "h\nx\ny\nz\nt\n", "h\nx\nnew\nmore\ny\nt\n"},
		{"functions", "def f():\n    pass\n\ndef g():\n    pass\n", "def f():\n    return 1\n\n\ndef g():\n    return 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits := DiffEdits("d", tt.old, tt.new)
			require.NotEmpty(t, edits)
			assert.Equal(t, tt.new, replay(tt.old, tt.new, edits))
		})
	}
}

// Test: Text without a trailing newline keeps exact byte lengths
func TestDiffEdits_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	old, updated := "a\nlast", "a\nlonger last"
	edits := DiffEdits("d", old, updated)
	require.Len(t, edits, 1)
	assert.Equal(t, 2, edits[0].Offset)
	assert.Equal(t, 4, edits[0].OldLength)
	assert.Equal(t, 11, edits[0].NewLength)
	assert.Equal(t, updated, replay(old, updated, edits))
}

// Test: Edits shift tracked functions after the change
func TestDiffEdits_ShiftsFunctions(t *testing.T) {
	t.Parallel()

	old := "def f():\n    pass\n\ndef g():\n    pass\n"
	updated := "# header\ndef f():\n    pass\n\ndef g():\n    pass\n"
	g := &tracking.Function{Name: "g", StartOffset: 19, EndOffset: 36}

	for _, e := range DiffEdits("d", old, updated) {
		tracking.ApplyEdit([]*tracking.Function{g}, e)
	}
	assert.Equal(t, 28, g.StartOffset)
	assert.Equal(t, 45, g.EndOffset)
}
