package engine

import (
	"context"
	"errors"
	"time"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

var (
	// ErrUnknownDocument is returned for a document that was never opened or was closed.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrClosed is returned once the service has been shut down.
	ErrClosed = errors.New("engine is shut down")

	// ErrSuperseded marks a cycle whose results were discarded because a
	// newer edit or cycle arrived first.
	ErrSuperseded = errors.New("classify cycle superseded")
)

// Parser extracts functions from source text. Implementations must honour
// ctx cancellation and return an error, not an empty list, on failure.
type Parser interface {
	Parse(ctx context.Context, language, source string) ([]*tracking.Function, error)
}

// Source gives the engine the current text of a document.
type Source interface {
	Text() string
}

// StringSource is a fixed-text Source.
type StringSource string

// Text implements Source.
func (s StringSource) Text() string { return string(s) }

// Settings tune classification. They are read once per classify cycle.
type Settings struct {
	ChangeThreshold int
	DefaultTagMode  tracking.TagMode
	Tags            tracking.Sentinels
}

// SettingsProvider supplies the current Settings.
type SettingsProvider interface {
	Settings() Settings
}

// StaticSettings is a SettingsProvider that never changes.
type StaticSettings Settings

// Settings implements SettingsProvider.
func (s StaticSettings) Settings() Settings { return Settings(s) }

// ReparseResult is a function list produced outside the engine. Err set
// means the parse failed and Functions must be ignored.
type ReparseResult struct {
	DocumentID tracking.DocumentID
	Functions  []*tracking.Function
	Err        error
}

// AcknowledgeEvent is raised when a docstring was written for a function
// or the user dismissed the pending change.
type AcknowledgeEvent struct {
	DocumentID tracking.DocumentID
	FunctionID tracking.FunctionID
}

// CycleRecord describes one applied classify cycle.
type CycleRecord struct {
	CycleID    string
	DocumentID tracking.DocumentID
	Path       string
	Language   string
	New        int
	Updated    int
	Deleted    int
	Unchanged  int
	Pending    int
	Baseline   bool
	Duration   time.Duration
	At         time.Time
}

// AckRecord describes one acknowledgement.
type AckRecord struct {
	DocumentID tracking.DocumentID
	Path       string
	FunctionID tracking.FunctionID
	Name       string
	Score      int
	At         time.Time
}

// Recorder persists engine history. Failures are logged, never fatal.
type Recorder interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
	RecordAcknowledgement(ctx context.Context, rec AckRecord) error
}
