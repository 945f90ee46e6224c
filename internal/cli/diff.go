package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/autodoc/internal/parsers"
	"github.com/mvp-joe/autodoc/internal/tracking"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

var (
	diffJSON      bool
	diffThreshold int
	diffLanguage  string
)

// diffChange is one classified function in the diff report.
type diffChange struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	StartOffset int    `json:"start_offset"`
	Score       int    `json:"score"`
}

// diffPending is one ledger entry with its tag.
type diffPending struct {
	Name        string `json:"name"`
	StartOffset int    `json:"start_offset"`
	Score       int    `json:"score"`
	Tag         string `json:"tag"`
}

// diffReport is the result of replaying OLD to NEW.
type diffReport struct {
	Edits     int           `json:"edits"`
	Changes   []diffChange  `json:"changes"`
	Unchanged int           `json:"unchanged"`
	Pending   []diffPending `json:"pending"`
}

var diffCmd = &cobra.Command{
	Use:   "diff OLD NEW",
	Short: "Classify the function changes between two revisions of a file",
	Long: `Diff takes OLD as the baseline, replays the difference to NEW as edit events,
and prints which functions are new, updated past the change threshold, or
deleted, followed by the functions that now need documentation.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "print the report as JSON")
	diffCmd.Flags().IntVar(&diffThreshold, "threshold", 0, "override the configured change threshold")
	diffCmd.Flags().StringVar(&diffLanguage, "language", "", "language of the files (default is derived from NEW's extension)")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldPath, newPath := args[0], args[1]

	language := diffLanguage
	if language == "" {
		lang, ok := parsers.LanguageForPath(newPath)
		if !ok {
			return fmt.Errorf("%w: %s (use --language)", parsers.ErrUnsupportedLanguage, newPath)
		}
		language = lang
	}

	oldText, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", oldPath, err)
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", newPath, err)
	}

	proj, err := loadProject(rootDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if diffThreshold > 0 {
		proj.cfg.Tracking.ChangeThreshold = diffThreshold
	}

	// Cycles are driven by Refresh only.
	sess, err := proj.openSession(sessionOptions{debounce: time.Hour})
	if err != nil {
		return err
	}
	defer sess.Close()

	report, err := replayDiff(cmd.Context(), sess, newPath, language, string(oldText), string(newText))
	if err != nil {
		return err
	}

	if diffJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return writeDiffReport(cmd.OutOrStdout(), report)
}

// replayDiff baselines oldText, feeds the line diff to newText through the
// engine as edits, and classifies the result.
func replayDiff(ctx context.Context, sess *session, path, language, oldText, newText string) (*diffReport, error) {
	buffer := watcher.NewBuffer(oldText)
	id, err := sess.engine.Open(path, language, buffer)
	if err != nil {
		return nil, err
	}
	if _, err := sess.engine.Refresh(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}

	var edits []tracking.EditEvent
	err = sess.engine.ApplyChange(id, func() []tracking.EditEvent {
		edits = watcher.DiffEdits(id, buffer.Swap(newText), newText)
		return edits
	})
	if err != nil {
		return nil, err
	}
	cs, err := sess.engine.Refresh(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to classify changes: %w", err)
	}

	report := &diffReport{
		Edits:     len(edits),
		Changes:   []diffChange{},
		Unchanged: len(cs.Unchanged),
		Pending:   []diffPending{},
	}
	addChanges := func(kind string, fns []*tracking.Function) {
		for _, fn := range fns {
			report.Changes = append(report.Changes, diffChange{
				Kind:        kind,
				Name:        fn.Name,
				StartOffset: fn.StartOffset,
				Score:       fn.RecordedChangeScore,
			})
		}
	}
	addChanges("new", cs.New)
	addChanges("updated", cs.Updated)
	addChanges("deleted", cs.Deleted)

	pending, err := sess.engine.GetAll(id)
	if err != nil {
		return nil, err
	}
	settings := sess.settings.Settings()
	for _, fn := range pending {
		tag := tracking.TagFor(fn.Body+fn.Docstring, settings.Tags, settings.DefaultTagMode)
		report.Pending = append(report.Pending, diffPending{
			Name:        fn.Name,
			StartOffset: fn.StartOffset,
			Score:       fn.RecordedChangeScore,
			Tag:         tag.String(),
		})
	}
	return report, nil
}

func writeDiffReport(out io.Writer, report *diffReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(report.Changes) == 0 {
		fmt.Fprintf(w, "No function changes (%d edits, %d unchanged)\n", report.Edits, report.Unchanged)
	} else {
		fmt.Fprintln(w, "CHANGE\tFUNCTION\tOFFSET\tSCORE")
		for _, c := range report.Changes {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", c.Kind, c.Name, c.StartOffset, c.Score)
		}
		fmt.Fprintf(w, "%d edits, %d unchanged\n", report.Edits, report.Unchanged)
	}

	if len(report.Pending) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PENDING\tTAG\tOFFSET\tSCORE")
		for _, p := range report.Pending {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", p.Name, p.Tag, p.StartOffset, p.Score)
		}
	}
	return w.Flush()
}
