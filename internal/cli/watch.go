package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/autodoc/internal/config"
	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track source files and log functions that need re-documentation",
	Long: `Watch baselines every source file, then follows saves, deletions and git
branch switches. Whenever a function's accumulated change crosses the
threshold it is logged as pending.

Send SIGHUP to reload the tracking settings from the configuration.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proj, err := loadProject(rootDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sess, err := proj.openSession(sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	unsubscribe := sess.engine.Subscribe(ledgerLogger(proj))
	defer unsubscribe()

	coord, err := startTracking(ctx, proj, sess)
	if err != nil {
		return err
	}
	go reloadOnHangup(ctx, proj, sess)

	proj.logger.WithField("documents", len(coord.Tracked())).Info("watching for changes")
	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	proj.logger.Info("stopped watching")
	return nil
}

// startTracking builds the file and git watchers, baselines every source
// file, and returns the coordinator ready to Start.
func startTracking(ctx context.Context, proj *project, sess *session) (*watcher.WatchCoordinator, error) {
	filter, err := proj.filter()
	if err != nil {
		return nil, err
	}

	files, err := watcher.NewFileWatcher(filter, watcher.WithWatcherLogger(proj.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var git watcher.GitWatcher
	gitDir := filepath.Join(proj.root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		git, err = watcher.NewGitWatcher(gitDir, proj.logger)
		if err != nil {
			_ = files.Stop()
			return nil, fmt.Errorf("failed to create git watcher: %w", err)
		}
	}

	coord := watcher.NewWatchCoordinator(git, files, sess.engine, filter, proj.logger)

	stopWatchers := func() {
		_ = files.Stop()
		if git != nil {
			_ = git.Stop()
		}
	}

	paths, err := proj.discover()
	if err != nil {
		stopWatchers()
		return nil, err
	}
	if err := trackAll(ctx, coord, paths, proj.logger, nil); err != nil {
		stopWatchers()
		return nil, err
	}
	return coord, nil
}

// ledgerLogger logs every ledger change with its routing.
func ledgerLogger(proj *project) engine.Listener {
	return func(ev engine.Event) {
		switch ev.Kind {
		case engine.LedgerChanged:
			log := proj.logger.WithFields(logrus.Fields{
				"path":      relPath(proj.root, ev.Path),
				"cycle":     ev.CycleID,
				"pending":   len(ev.Entries),
				"auto":      len(ev.Routing.Auto),
				"highlight": len(ev.Routing.Highlight),
			})
			if len(ev.Entries) == 0 {
				log.Debug("ledger cleared")
				return
			}
			for _, fn := range ev.Routing.Highlight {
				log.WithFields(logrus.Fields{
					"function": fn.Name,
					"score":    fn.RecordedChangeScore,
				}).Info("function needs documentation")
			}
			for _, fn := range ev.Routing.Auto {
				log.WithFields(logrus.Fields{
					"function": fn.Name,
					"score":    fn.RecordedChangeScore,
				}).Info("function queued for automatic documentation")
			}
		case engine.Acknowledged:
			if ev.Function != nil {
				proj.logger.WithFields(logrus.Fields{
					"path":     relPath(proj.root, ev.Path),
					"function": ev.Function.Name,
				}).Info("function acknowledged")
			}
		}
	}
}

// reloadOnHangup re-reads the configuration on SIGHUP and swaps in the new
// tracking settings. Path and parser settings need a restart.
func reloadOnHangup(ctx context.Context, proj *project, sess *session) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.LoadConfigFromDir(proj.root)
			if err != nil {
				proj.logger.WithError(err).Warn("failed to reload configuration, keeping current settings")
				continue
			}
			sess.settings.Update(cfg)
			proj.logger.WithField("threshold", cfg.Tracking.ChangeThreshold).Info("reloaded tracking settings")
		}
	}
}
