package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagFor(t *testing.T) {
	t.Parallel()

	s := DefaultSentinels()
	tests := []struct {
		name     string
		text     string
		fallback TagMode
		want     TagMode
	}{
		{"no marker uses fallback", "def f(): pass", TagHighlight, TagHighlight},
		{"no marker auto fallback", "def f(): pass", TagAuto, TagAuto},
		{"auto marker", "def f(): # @autodoc-auto", TagHighlight, TagAuto},
		{"highlight marker", "# @autodoc-highlight", TagAuto, TagHighlight},
		{"ignore marker", "# @autodoc-ignore", TagAuto, TagIgnore},
		{"ignore beats auto", "@autodoc-auto @autodoc-ignore", TagHighlight, TagIgnore},
		{"highlight beats auto", "@autodoc-auto @autodoc-highlight", TagIgnore, TagHighlight},
		{"partial marker does not match", "@autodoc", TagIgnore, TagIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TagFor(tt.text, s, tt.fallback))
		})
	}
}

func TestTagFor_EmptySentinelNeverMatches(t *testing.T) {
	t.Parallel()

	s := Sentinels{Auto: "", Highlight: "", Ignore: "!skip"}
	assert.Equal(t, TagAuto, TagFor("anything", s, TagAuto))
	assert.Equal(t, TagIgnore, TagFor("x !skip", s, TagAuto))
}

func TestRoute_ScansBodyAndDocstring(t *testing.T) {
	t.Parallel()

	pending := []Function{
		{StartOffset: 0, Body: "def a(): pass"},
		{StartOffset: 20, Body: "def b(): pass", Docstring: `"""@autodoc-auto"""`},
		{StartOffset: 40, Body: "def c(): # @autodoc-ignore"},
	}

	r := Route(pending, DefaultSentinels(), TagHighlight)

	require.Len(t, r.Highlight, 1)
	require.Len(t, r.Auto, 1)
	require.Len(t, r.Ignore, 1)
	assert.Equal(t, 0, r.Highlight[0].StartOffset)
	assert.Equal(t, 20, r.Auto[0].StartOffset)
	assert.Equal(t, 40, r.Ignore[0].StartOffset)
}

func TestRouting_VisibleHighlights(t *testing.T) {
	t.Parallel()

	r := Routing{Highlight: []Function{
		{StartOffset: 0, EndOffset: 10},
		{StartOffset: 5, EndOffset: 200},
	}}

	visible := r.VisibleHighlights(100)
	require.Len(t, visible, 1)
	assert.Equal(t, 10, visible[0].EndOffset)
}

func TestParseTagMode(t *testing.T) {
	t.Parallel()

	m, err := ParseTagMode(" AUTO ")
	require.NoError(t, err)
	assert.Equal(t, TagAuto, m)

	_, err = ParseTagMode("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "ignore", TagIgnore.String())
}
