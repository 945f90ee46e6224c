package tracking

import "sort"

// Range is a half-open [Start, End) byte range into a document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Function is a tracked structural unit of source code.
//
// Offsets always refer to the owning document's current text. They are
// shifted in place by ApplyEdit and replaced wholesale by a reparse.
type Function struct {
	Name     string   `json:"name"`
	Params   []string `json:"params,omitempty"`
	Language string   `json:"language,omitempty"`

	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Body        string `json:"body"`

	Docstring       string `json:"docstring,omitempty"`
	DocstringOffset int    `json:"docstring_offset"`
	DocstringRange  *Range `json:"docstring_range,omitempty"`

	// RecordedChangeScore is the edit distance accumulated since the
	// function was last acknowledged as documented.
	RecordedChangeScore int `json:"recorded_change_score"`
}

// ID returns the function's identity, derived from its start offset.
func (f *Function) ID() FunctionID {
	return FunctionIDFor(f.StartOffset)
}

// HasDocstring reports whether the function already carries a docstring.
func (f *Function) HasDocstring() bool {
	return f.DocstringRange != nil
}

// Clone returns a deep copy of f.
func (f *Function) Clone() *Function {
	c := *f
	if f.Params != nil {
		c.Params = append([]string(nil), f.Params...)
	}
	if f.DocstringRange != nil {
		r := *f.DocstringRange
		c.DocstringRange = &r
	}
	return &c
}

// CloneAll deep-copies a function list.
func CloneAll(functions []*Function) []*Function {
	out := make([]*Function, len(functions))
	for i, fn := range functions {
		out[i] = fn.Clone()
	}
	return out
}

// SortByOffset orders functions by start offset, then by end offset
// descending so that enclosing functions come before nested ones.
func SortByOffset(functions []*Function) {
	sort.SliceStable(functions, func(i, j int) bool {
		if functions[i].StartOffset != functions[j].StartOffset {
			return functions[i].StartOffset < functions[j].StartOffset
		}
		return functions[i].EndOffset > functions[j].EndOffset
	})
}

// FunctionAt returns the innermost function whose range contains offset,
// or nil if no function does.
func FunctionAt(functions []*Function, offset int) *Function {
	var best *Function
	for _, fn := range functions {
		if offset < fn.StartOffset || offset > fn.EndOffset {
			continue
		}
		if best == nil || fn.EndOffset-fn.StartOffset < best.EndOffset-best.StartOffset {
			best = fn
		}
	}
	return best
}

// InBounds reports whether fn's range lies inside a text of length textLen.
// Ranges can drift out of bounds between an edit and the next reparse.
func InBounds(fn *Function, textLen int) bool {
	return fn.StartOffset >= 0 && fn.StartOffset < textLen && fn.EndOffset <= textLen && fn.StartOffset <= fn.EndOffset
}
