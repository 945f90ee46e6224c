package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/autodoc/internal/config"
	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/parsers"
	"github.com/mvp-joe/autodoc/internal/storage"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

// project is a loaded project root with its configuration.
type project struct {
	root   string
	cfg    *config.Config
	logger *logrus.Logger
}

// loadProject resolves the project root and loads its configuration.
// Logs go to logOut.
func loadProject(dir string, logOut io.Writer) (*project, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = wd
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.NewLogger(logOut)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &project{root: root, cfg: cfg, logger: logger}, nil
}

// filter builds the include/ignore filter for the project.
func (p *project) filter() (*watcher.Filter, error) {
	return watcher.NewFilter(p.root, p.cfg.Paths.Code, p.cfg.Paths.Ignore)
}

// discover returns every tracked source file under the root, sorted.
func (p *project) discover() ([]string, error) {
	f, err := p.filter()
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(p.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			p.logger.WithError(err).WithField("path", path).Warn("error accessing path")
			return nil
		}
		if d.IsDir() {
			if path != p.root && (d.Name() == ".git" || d.Name() == ".autodoc" || f.SkipDir(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.Match(path) {
			return nil
		}
		if _, ok := parsers.LanguageForPath(path); !ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// session is a running tracking engine for a project.
type session struct {
	parser   *parsers.Parser
	engine   *engine.Service
	settings *config.SettingsHolder
	history  *storage.HistoryStore
}

type sessionOptions struct {
	history bool
	// debounce overrides the configured reparse delay when non-zero.
	debounce time.Duration
}

// openSession builds the parser and engine from configuration. History is
// attached when requested and enabled in the config.
func (p *project) openSession(opts sessionOptions) (*session, error) {
	parser, err := parsers.New(
		parsers.WithCache(p.cfg.Parser.CacheSize, p.cfg.CacheTTL()),
		parsers.WithSyntaxErrors(p.cfg.Parser.TolerateSyntaxErrors),
		parsers.WithLogger(p.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	s := &session{parser: parser, settings: config.NewSettingsHolder(p.cfg)}

	debounce := p.cfg.Debounce()
	if opts.debounce > 0 {
		debounce = opts.debounce
	}
	engineOpts := []engine.Option{engine.WithLogger(p.logger), engine.WithDebounce(debounce)}
	if opts.history && p.cfg.Storage.HistoryEnabled {
		history, err := storage.OpenHistory(p.cfg.HistoryPath(p.root))
		if err != nil {
			parser.Close()
			return nil, err
		}
		s.history = history
		engineOpts = append(engineOpts, engine.WithRecorder(history))
	}

	s.engine, err = engine.New(parser, s.settings, engineOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close shuts the engine down and releases the parser and history store.
func (s *session) Close() {
	if s.engine != nil {
		s.engine.Shutdown()
	}
	if s.history != nil {
		_ = s.history.Close()
	}
	s.parser.Close()
}

// trackAll opens and baselines every file through the coordinator, a few
// at a time. Files that fail are logged and skipped; onDone sees each
// file's outcome.
func trackAll(ctx context.Context, coord *watcher.WatchCoordinator, files []string, logger logrus.FieldLogger, onDone func(error)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := coord.Track(ctx, path)
			if err != nil {
				level := logrus.WarnLevel
				if errors.Is(err, parsers.ErrSyntax) {
					level = logrus.DebugLevel
				}
				logger.WithError(err).WithField("path", path).Log(level, "failed to baseline file")
			}
			if onDone != nil {
				onDone(err)
			}
			return nil
		})
	}
	return g.Wait()
}
