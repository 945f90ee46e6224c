package mcp

import (
	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

// Tracker is the engine surface the tools read and mutate.
type Tracker interface {
	Pending() []engine.DocumentPending
	Documents() map[tracking.DocumentID]string
	Lookup(path string) (tracking.DocumentID, bool)
	Acknowledge(id tracking.DocumentID, fn tracking.FunctionID) (bool, error)
	Coverage(id tracking.DocumentID) (tracking.CoverageStats, error)
}

// PendingFunction is one function waiting for documentation.
type PendingFunction struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Params          []string `json:"params,omitempty"`
	Tag             string   `json:"tag"`
	Score           int      `json:"score"`
	StartOffset     int      `json:"start_offset"`
	EndOffset       int      `json:"end_offset"`
	DocstringOffset int      `json:"docstring_offset"`
	HasDocstring    bool     `json:"has_docstring"`
	Docstring       string   `json:"docstring,omitempty"`
	Body            string   `json:"body,omitempty"`
}

// PendingDocument groups pending functions by file.
type PendingDocument struct {
	Path      string            `json:"path"`
	Language  string            `json:"language,omitempty"`
	Format    string            `json:"format,omitempty"`
	Functions []PendingFunction `json:"functions"`
}

// PendingResponse is returned by autodoc_pending.
type PendingResponse struct {
	Documents []PendingDocument `json:"documents"`
	Total     int               `json:"total"`
}

// AcknowledgeResponse is returned by autodoc_acknowledge.
type AcknowledgeResponse struct {
	Path         string   `json:"path"`
	Acknowledged []string `json:"acknowledged"`
	NotFound     []string `json:"not_found,omitempty"`
}

// CoverageEntry is one document's coverage.
type CoverageEntry struct {
	Path string `json:"path"`
	tracking.CoverageStats
}

// CoverageResponse is returned by autodoc_coverage.
type CoverageResponse struct {
	Documents []CoverageEntry        `json:"documents"`
	Total     tracking.CoverageStats `json:"total"`
}
