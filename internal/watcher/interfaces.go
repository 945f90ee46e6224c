package watcher

import (
	"context"

	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// GitWatcher monitors .git/HEAD for branch switches.
type GitWatcher interface {
	// Start begins monitoring, calling callback when the branch changes.
	Start(ctx context.Context, callback func(oldBranch, newBranch string)) error

	// Stop stops the watcher and cleans up resources.
	Stop() error
}

// Engine is the part of engine.Service the coordinator drives.
type Engine interface {
	Open(path, language string, src engine.Source) (tracking.DocumentID, error)
	Close(id tracking.DocumentID) bool
	ApplyChange(id tracking.DocumentID, change func() []tracking.EditEvent) error
	Refresh(ctx context.Context, id tracking.DocumentID) (tracking.ChangeSet, error)
}
