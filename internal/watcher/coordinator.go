package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/parsers"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

// tracked is a file the coordinator has opened in the engine.
type tracked struct {
	id     tracking.DocumentID
	buffer *Buffer
}

// WatchCoordinator feeds file system changes into the tracking engine.
// Saved files become edit events, removed files are closed, and a branch
// switch re-baselines every open document so a checkout does not flood the
// ledger.
type WatchCoordinator struct {
	git    GitWatcher
	files  FileWatcher
	engine Engine
	filter *Filter
	logger logrus.FieldLogger

	mu   sync.Mutex
	docs map[string]*tracked
}

// NewWatchCoordinator creates a coordinator. git may be nil when the root is
// not a git checkout.
func NewWatchCoordinator(git GitWatcher, files FileWatcher, engine Engine, filter *Filter, logger logrus.FieldLogger) *WatchCoordinator {
	if logger == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		logger = quiet
	}
	return &WatchCoordinator{
		git:    git,
		files:  files,
		engine: engine,
		filter: filter,
		logger: logger,
		docs:   make(map[string]*tracked),
	}
}

// Start begins routing watcher events to the engine. Blocks until ctx is
// cancelled or a watcher fails to start.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if c.git != nil {
		if err := c.git.Start(ctx, c.handleBranchSwitch); err != nil {
			c.cleanup()
			return err
		}
	}
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if c.git != nil {
		if err := c.git.Stop(); err != nil {
			c.logger.WithError(err).Warn("git watcher stop failed")
		}
	}
	if err := c.files.Stop(); err != nil {
		c.logger.WithError(err).Warn("file watcher stop failed")
	}
}

// Track opens path in the engine and takes its baseline snapshot. Tracking
// an already tracked path re-reads it as a change.
func (c *WatchCoordinator) Track(ctx context.Context, path string) (tracking.DocumentID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return c.update(ctx, abs, string(content))
}

// Tracked returns the paths currently open in the engine, sorted.
func (c *WatchCoordinator) Tracked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.docs))
	for p := range c.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// update moves the engine's view of abs to content. A new path is opened and
// baselined; a known one receives the diff as edit events and the engine's
// debounced cycle picks up the rest.
func (c *WatchCoordinator) update(ctx context.Context, abs, content string) (tracking.DocumentID, error) {
	c.mu.Lock()
	doc, ok := c.docs[abs]
	c.mu.Unlock()

	if ok {
		// The swap and its edits land together under the engine's document
		// lock, so a cycle never sees the new text with the old ranges.
		err := c.engine.ApplyChange(doc.id, func() []tracking.EditEvent {
			old := doc.buffer.Swap(content)
			return DiffEdits(doc.id, old, content)
		})
		return doc.id, err
	}

	language, ok := parsers.LanguageForPath(abs)
	if !ok {
		return "", parsers.ErrUnsupportedLanguage
	}

	buffer := NewBuffer(content)
	id, err := c.engine.Open(abs, language, buffer)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.docs[abs] = &tracked{id: id, buffer: buffer}
	c.mu.Unlock()

	if _, err := c.engine.Refresh(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}

func (c *WatchCoordinator) untrack(abs string) {
	c.mu.Lock()
	doc, ok := c.docs[abs]
	delete(c.docs, abs)
	c.mu.Unlock()

	if ok {
		c.engine.Close(doc.id)
		c.logger.WithField("path", abs).Debug("stopped tracking removed file")
	}
}

func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}
	c.logger.WithField("files", len(files)).Debug("processing file changes")

	ctx := context.Background()
	for _, path := range files {
		content, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			c.untrack(path)
			continue
		}
		if err != nil {
			c.logger.WithError(err).WithField("path", path).Warn("failed to read changed file")
			continue
		}
		if _, err := c.update(ctx, path, string(content)); err != nil {
			c.logger.WithError(err).WithField("path", path).Warn("failed to update document")
		}
	}
}

// handleBranchSwitch closes and reopens every tracked document so the new
// branch's contents become the baseline. File events are held until done.
func (c *WatchCoordinator) handleBranchSwitch(oldBranch, newBranch string) {
	c.logger.WithFields(logrus.Fields{"from": oldBranch, "to": newBranch}).Info("branch switch detected")

	c.files.Pause()
	defer c.files.Resume()

	paths := c.Tracked()
	for _, path := range paths {
		c.untrack(path)
	}

	ctx := context.Background()
	rebased := 0
	for _, path := range paths {
		if _, err := c.Track(ctx, path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				c.logger.WithError(err).WithField("path", path).Warn("failed to re-baseline document")
			}
			continue
		}
		rebased++
	}
	c.logger.WithFields(logrus.Fields{"branch": newBranch, "documents": rebased}).Info("re-baselined after branch switch")
}
