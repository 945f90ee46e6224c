package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/autodoc/internal/tracking"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

var (
	scanJSON  bool
	scanQuiet bool
)

// fileCoverage is one row of the scan report.
type fileCoverage struct {
	Path string `json:"path"`
	tracking.CoverageStats
}

// scanReport is the result of a scan.
type scanReport struct {
	Files  []fileCoverage         `json:"files"`
	Total  tracking.CoverageStats `json:"total"`
	Failed int                    `json:"failed"`
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Parse every source file and report docstring coverage",
	Long: `Scan parses every source file under the project root, records the baseline
for each function, and prints how many functions carry a docstring.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the report as JSON")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	proj, err := loadProject(rootDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	files, err := proj.discover()
	if err != nil {
		return err
	}

	progress := newScanProgress(cmd.ErrOrStderr(), scanQuiet || scanJSON)
	progress.OnDiscoveryComplete(len(files))

	sess, err := proj.openSession(sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	filter, err := proj.filter()
	if err != nil {
		return err
	}
	coord := watcher.NewWatchCoordinator(nil, nil, sess.engine, filter, proj.logger)

	progress.OnScanStart(len(files))
	if err := trackAll(ctx, coord, files, proj.logger, progress.OnFileScanned); err != nil {
		return err
	}

	report, err := buildScanReport(proj.root, coord, sess)
	if err != nil {
		return err
	}
	report.Failed = progress.Failed()
	progress.OnComplete(report.Total.Functions, report.Total.Documented)

	if scanJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return writeScanTable(cmd.OutOrStdout(), report)
}

func buildScanReport(root string, coord *watcher.WatchCoordinator, sess *session) (*scanReport, error) {
	report := &scanReport{Files: []fileCoverage{}}
	for _, path := range coord.Tracked() {
		id, ok := sess.engine.Lookup(path)
		if !ok {
			continue
		}
		stats, err := sess.engine.Coverage(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read coverage for %s: %w", path, err)
		}
		report.Files = append(report.Files, fileCoverage{Path: relPath(root, path), CoverageStats: stats})
		report.Total.Functions += stats.Functions
		report.Total.Documented += stats.Documented
		report.Total.Pending += stats.Pending
	}
	report.Total.Percent = percent(report.Total.Documented, report.Total.Functions)
	return report, nil
}

func writeScanTable(out io.Writer, report *scanReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tFUNCTIONS\tDOCUMENTED\tCOVERAGE")
	for _, f := range report.Files {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", f.Path, f.Functions, f.Documented, f.Percent)
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t%.1f%%\n", report.Total.Functions, report.Total.Documented, report.Total.Percent)
	return w.Flush()
}

// percent is documented/total as a percentage; no functions counts as fully covered.
func percent(documented, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(documented) * 100 / float64(total)
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

