package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DetachedHead is reported as the branch name when HEAD points at a commit.
const DetachedHead = "detached"

type gitWatcher struct {
	gitDir   string
	headPath string
	watcher  *fsnotify.Watcher
	logger   logrus.FieldLogger

	mu         sync.RWMutex
	lastBranch string

	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewGitWatcher creates a GitWatcher for the given .git directory. It fails
// if HEAD cannot be read.
func NewGitWatcher(gitDir string, logger logrus.FieldLogger) (GitWatcher, error) {
	headPath := filepath.Join(gitDir, "HEAD")
	if _, err := os.Stat(headPath); err != nil {
		return nil, fmt.Errorf("cannot access .git/HEAD: %w", err)
	}

	initial, err := readBranch(headPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial branch: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if logger == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		logger = quiet
	}

	return &gitWatcher{
		gitDir:     gitDir,
		headPath:   headPath,
		watcher:    w,
		logger:     logger,
		lastBranch: initial,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins monitoring .git/HEAD. The directory is watched rather than the
// file because git replaces HEAD instead of writing it in place.
func (gw *gitWatcher) Start(ctx context.Context, callback func(oldBranch, newBranch string)) error {
	if err := gw.watcher.Add(gw.gitDir); err != nil {
		return fmt.Errorf("failed to watch .git directory: %w", err)
	}

	gw.mu.Lock()
	gw.started = true
	gw.mu.Unlock()

	go gw.watch(ctx, callback)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (gw *gitWatcher) Stop() error {
	var err error
	gw.stopOnce.Do(func() {
		close(gw.stopCh)
		gw.mu.RLock()
		started := gw.started
		gw.mu.RUnlock()
		if started {
			<-gw.doneCh
		}
		err = gw.watcher.Close()
	})
	return err
}

func (gw *gitWatcher) watch(ctx context.Context, callback func(oldBranch, newBranch string)) {
	defer close(gw.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case <-gw.stopCh:
			return

		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != gw.headPath {
				continue
			}
			// A removal is followed by a create once git finishes the swap.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			newBranch, err := readBranch(gw.headPath)
			if err != nil {
				gw.logger.WithError(err).Warn("failed to read .git/HEAD")
				continue
			}
			if newBranch == "" {
				// Truncated mid-write.
				continue
			}

			gw.mu.Lock()
			oldBranch := gw.lastBranch
			changed := newBranch != oldBranch
			gw.lastBranch = newBranch
			gw.mu.Unlock()

			if changed {
				gw.fire(callback, oldBranch, newBranch)
			}

		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			gw.logger.WithError(err).Warn("git watcher error")
		}
	}
}

func (gw *gitWatcher) fire(callback func(oldBranch, newBranch string), oldBranch, newBranch string) {
	defer func() {
		if r := recover(); r != nil {
			gw.logger.WithField("panic", r).Error("git watcher callback panicked")
		}
	}()
	callback(oldBranch, newBranch)
}

func readBranch(headPath string) (string, error) {
	content, err := os.ReadFile(headPath)
	if err != nil {
		return "", err
	}
	return parseBranch(content), nil
}

// parseBranch returns the branch named by HEAD content, or DetachedHead.
func parseBranch(content []byte) string {
	line := strings.TrimSpace(string(content))

	if name, ok := strings.CutPrefix(line, "ref: refs/heads/"); ok {
		return strings.TrimSpace(name)
	}
	if (len(line) == 40 || len(line) == 64) && isHexString(line) {
		return DetachedHead
	}
	return line
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
