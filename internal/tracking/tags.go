package tracking

import (
	"fmt"
	"strings"
)

// TagMode says what should happen to a function pending documentation.
type TagMode int

const (
	// TagHighlight decorates the function but does not write a docstring.
	TagHighlight TagMode = iota
	// TagAuto routes the function to automatic docstring writing.
	TagAuto
	// TagIgnore suppresses both.
	TagIgnore
)

var tagModeNames = map[TagMode]string{
	TagAuto:      "auto",
	TagHighlight: "highlight",
	TagIgnore:    "ignore",
}

func (m TagMode) String() string {
	if name, ok := tagModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TagMode(%d)", int(m))
}

// ParseTagMode parses "auto", "highlight" or "ignore" (case-insensitive).
func ParseTagMode(s string) (TagMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return TagAuto, nil
	case "highlight":
		return TagHighlight, nil
	case "ignore":
		return TagIgnore, nil
	}
	return TagHighlight, fmt.Errorf("unknown tag mode %q: must be 'auto', 'highlight' or 'ignore'", s)
}

// Sentinels are the literal markers authors put in a function or its
// docstring to override the default mode.
type Sentinels struct {
	Auto      string `json:"auto"`
	Highlight string `json:"highlight"`
	Ignore    string `json:"ignore"`
}

// DefaultSentinels returns the built-in markers.
func DefaultSentinels() Sentinels {
	return Sentinels{
		Auto:      "@autodoc-auto",
		Highlight: "@autodoc-highlight",
		Ignore:    "@autodoc-ignore",
	}
}

// TagFor classifies text by literal substring search. Precedence is
// ignore, then highlight, then auto: the first marker found wins. Text
// with no marker gets fallback.
func TagFor(text string, sentinels Sentinels, fallback TagMode) TagMode {
	ordered := []struct {
		marker string
		mode   TagMode
	}{
		{sentinels.Ignore, TagIgnore},
		{sentinels.Highlight, TagHighlight},
		{sentinels.Auto, TagAuto},
	}
	for _, s := range ordered {
		if s.marker != "" && strings.Contains(text, s.marker) {
			return s.mode
		}
	}
	return fallback
}

// Routing splits pending functions by tag mode.
type Routing struct {
	Auto      []Function `json:"auto"`
	Highlight []Function `json:"highlight"`
	Ignore    []Function `json:"ignore"`
}

// Route tags every pending function by its body plus docstring. It is a
// pure function of its inputs and is recomputed on every ledger change.
func Route(pending []Function, sentinels Sentinels, fallback TagMode) Routing {
	var r Routing
	for _, fn := range pending {
		switch TagFor(fn.Body+fn.Docstring, sentinels, fallback) {
		case TagAuto:
			r.Auto = append(r.Auto, fn)
		case TagIgnore:
			r.Ignore = append(r.Ignore, fn)
		default:
			r.Highlight = append(r.Highlight, fn)
		}
	}
	return r
}

// VisibleHighlights filters highlight-routed functions down to those whose
// ranges still fit inside a text of length textLen.
func (r Routing) VisibleHighlights(textLen int) []Function {
	var out []Function
	for i := range r.Highlight {
		if InBounds(&r.Highlight[i], textLen) {
			out = append(out, r.Highlight[i])
		}
	}
	return out
}
