package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultFileDebounce is the quiet period before a batch of changed files is delivered.
const DefaultFileDebounce = 200 * time.Millisecond

// fileWatcher implements FileWatcher on top of fsnotify.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	filter   *Filter
	debounce time.Duration
	logger   logrus.FieldLogger
	callback func(files []string)
	ctx      context.Context
	cancel   context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	pendingMu sync.Mutex
	pending   map[string]struct{}

	timerMu sync.Mutex
	timer   *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{}
}

// FileWatcherOption configures a file watcher.
type FileWatcherOption func(*fileWatcher)

// WithFileDebounce sets the quiet period before callbacks fire.
func WithFileDebounce(d time.Duration) FileWatcherOption {
	return func(fw *fileWatcher) { fw.debounce = d }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger logrus.FieldLogger) FileWatcherOption {
	return func(fw *fileWatcher) { fw.logger = logger }
}

// NewFileWatcher creates a watcher over every non-ignored directory under
// the filter's root.
func NewFileWatcher(filter *Filter, opts ...FileWatcherOption) (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	fw := &fileWatcher{
		watcher:  w,
		filter:   filter,
		debounce: DefaultFileDebounce,
		logger:   quiet,
		pending:  make(map[string]struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}

	if err := fw.addTree(filter.Root()); err != nil {
		_ = w.Close()
		return nil, err
	}
	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flush()
	}
}

func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addTree(event.Name); err != nil {
						fw.logger.WithError(err).WithField("dir", event.Name).Warn("failed to watch new directory")
					}
					continue
				}
			}

			if !fw.relevant(event) {
				continue
			}

			fw.pendingMu.Lock()
			fw.pending[event.Name] = struct{}{}
			fw.pendingMu.Unlock()

			fw.resetTimer(fire)

		case <-fire:
			fw.pausedMu.RLock()
			paused := fw.paused
			fw.pausedMu.RUnlock()
			if !paused {
				fw.flush()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.WithError(err).Warn("file watcher error")
		}
	}
}

// flush delivers accumulated paths in sorted order.
func (fw *fileWatcher) flush() {
	fw.pendingMu.Lock()
	if len(fw.pending) == 0 {
		fw.pendingMu.Unlock()
		return
	}
	files := make([]string, 0, len(fw.pending))
	for file := range fw.pending {
		files = append(files, file)
	}
	fw.pending = make(map[string]struct{})
	fw.pendingMu.Unlock()

	sort.Strings(files)
	fw.logger.WithField("files", len(files)).Debug("delivering file changes")
	if fw.callback != nil {
		fw.callback(files)
	}
}

func (fw *fileWatcher) resetTimer(fire chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}

// relevant reports whether an event touches a tracked file. Renames count
// because editors that save atomically rename over the original.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return fw.filter.Match(event.Name)
}

// addTree adds every non-ignored directory under root to the watcher.
func (fw *fileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fw.logger.WithError(err).WithField("path", path).Warn("error accessing path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (d.Name() == ".git" || fw.filter.SkipDir(path)) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.WithError(err).WithField("dir", path).Warn("failed to watch directory")
		}
		return nil
	})
}
