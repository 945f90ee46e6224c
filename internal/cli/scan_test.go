package cli

// Test Plan for Scan Command:
// - buildScanReport sums per-file coverage into totals
// - writeScanTable prints one row per file plus a total
// - scan --json prints the report for a project
// - scanProgress counts failures even when quiet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/autodoc/internal/tracking"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

// Test: buildScanReport sums per-file coverage into totals
func TestBuildScanReport(t *testing.T) {
	t.Parallel()

	proj := newTestProject(t, map[string]string{
		"a.py": documentedPython,
		"b.py": "def bare():\n    return 1\n",
	})
	sess, err := proj.openSession(sessionOptions{})
	require.NoError(t, err)
	defer sess.Close()

	filter, err := proj.filter()
	require.NoError(t, err)
	coord := watcher.NewWatchCoordinator(nil, nil, sess.engine, filter, proj.logger)
	files, err := proj.discover()
	require.NoError(t, err)
	require.NoError(t, trackAll(context.Background(), coord, files, proj.logger, nil))

	report, err := buildScanReport(proj.root, coord, sess)
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, "a.py", report.Files[0].Path)
	assert.Equal(t, 2, report.Files[0].Functions)
	assert.Equal(t, 1, report.Files[0].Documented)
	assert.Equal(t, "b.py", report.Files[1].Path)
	assert.Equal(t, 0, report.Files[1].Documented)

	assert.Equal(t, 3, report.Total.Functions)
	assert.Equal(t, 1, report.Total.Documented)
	assert.InDelta(t, 33.3, report.Total.Percent, 0.1)
}

// Test: writeScanTable prints one row per file plus a total
func TestWriteScanTable(t *testing.T) {
	t.Parallel()

	report := &scanReport{
		Files: []fileCoverage{
			{Path: "a.py", CoverageStats: tracking.CoverageStats{Functions: 2, Documented: 1, Percent: 50}},
		},
		Total: tracking.CoverageStats{Functions: 2, Documented: 1, Percent: 50},
	}

	var buf bytes.Buffer
	require.NoError(t, writeScanTable(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "FILE")
	assert.Regexp(t, `a\.py\s+2\s+1\s+50\.0%`, out)
	assert.Regexp(t, `TOTAL\s+2\s+1\s+50\.0%`, out)
}

// Test: scan --json prints the report for a project
func TestScanCommand_JSON(t *testing.T) {
	proj := newTestProject(t, map[string]string{
		"pkg/a.py": documentedPython,
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"scan", "--json", "--root", proj.root})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		scanJSON = false
		rootDir = ""
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var report scanReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Len(t, report.Files, 1)
	assert.Equal(t, "pkg/a.py", report.Files[0].Path)
	assert.Equal(t, 2, report.Total.Functions)
	assert.Equal(t, 0, report.Failed)
}

// Test: scanProgress counts failures even when quiet
func TestScanProgress_Quiet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newScanProgress(&buf, true)
	p.OnDiscoveryComplete(3)
	p.OnScanStart(3)
	p.OnFileScanned(nil)
	p.OnFileScanned(errors.New("boom"))
	p.OnFileScanned(nil)
	p.OnComplete(10, 5)

	assert.Equal(t, 1, p.Failed())
	assert.Empty(t, buf.String())
}
