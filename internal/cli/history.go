package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/autodoc/internal/storage"
)

var (
	historyPath    string
	historySince   time.Duration
	historyLimit   int
	historyAcks    bool
	historySummary bool
	historyPrune   time.Duration
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded classify cycles and acknowledgements",
	Long: `History reads the cycle and acknowledgement log kept by "autodoc watch" and
"autodoc mcp" when storage.history_enabled is set.`,
	Example: `  autodoc history --since 24h
  autodoc history --acks --path internal/server.go
  autodoc history --summary
  autodoc history --prune 720h`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPath, "path", "", "only show entries for this file")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only show entries newer than this (e.g. 24h)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "maximum number of entries (0 for all)")
	historyCmd.Flags().BoolVar(&historyAcks, "acks", false, "show acknowledgements instead of cycles")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "show per-file totals")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete entries older than this and exit")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	proj, err := loadProject(rootDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dbPath := proj.cfg.HistoryPath(proj.root)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No history recorded yet.")
		if !proj.cfg.Storage.HistoryEnabled {
			fmt.Fprintln(out, "Enable it with storage.history_enabled: true in .autodoc/config.yml")
		}
		return nil
	}

	store, err := storage.OpenHistory(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()

	if historyPrune > 0 {
		removed, err := store.Prune(ctx, now.Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %s entries older than %s\n", humanize.Comma(removed), historyPrune)
		return nil
	}

	if historySummary {
		summary, err := store.Summary(ctx)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(out, summary)
		}
		return writeHistorySummary(out, proj.root, summary, now)
	}

	query := storage.HistoryQuery{Limit: historyLimit}
	if historyPath != "" {
		query.Path = resolvePath(proj.root, historyPath)
	}
	if historySince > 0 {
		query.Since = now.Add(-historySince)
	}

	if historyAcks {
		acks, err := store.Acknowledgements(ctx, query)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(out, acks)
		}
		return writeAcks(out, proj.root, acks, now)
	}

	cycles, err := store.Cycles(ctx, query)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(out, cycles)
	}
	return writeCycles(out, proj.root, cycles, now)
}

// resolvePath makes a user-supplied path absolute against the project root.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func writeCycles(out io.Writer, root string, cycles []storage.CycleEntry, now time.Time) error {
	if len(cycles) == 0 {
		fmt.Fprintln(out, "No cycles recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tFILE\tNEW\tUPDATED\tDELETED\tPENDING\tTOOK")
	for _, c := range cycles {
		file := relPath(root, c.Path)
		if c.Baseline {
			file += " (baseline)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			humanize.RelTime(c.At, now, "ago", "from now"), file,
			c.New, c.Updated, c.Deleted, c.Pending, c.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}

func writeAcks(out io.Writer, root string, acks []storage.AckEntry, now time.Time) error {
	if len(acks) == 0 {
		fmt.Fprintln(out, "No acknowledgements recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tFILE\tFUNCTION\tSCORE")
	for _, a := range acks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			humanize.RelTime(a.At, now, "ago", "from now"), relPath(root, a.Path), a.Name, a.Score)
	}
	return w.Flush()
}

func writeHistorySummary(out io.Writer, root string, summary []storage.PathSummary, now time.Time) error {
	if len(summary) == 0 {
		fmt.Fprintln(out, "No history recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tCYCLES\tACKS\tLAST CYCLE")
	for _, s := range summary {
		last := "never"
		if !s.LastCycle.IsZero() {
			last = humanize.RelTime(s.LastCycle, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			relPath(root, s.Path), humanize.Comma(int64(s.Cycles)), humanize.Comma(int64(s.Acknowledgments)), last)
	}
	return w.Flush()
}
