package cli

// Test Plan for History Command:
// - writeCycles prints relative times and marks baselines
// - writeAcks prints one row per acknowledgement
// - writeHistorySummary prints per-file totals
// - Empty results print a message instead of a header
// - resolvePath joins relative paths to the root
// - history reports a missing database without creating one
// - A session with history enabled records baseline cycles

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/autodoc/internal/storage"
	"github.com/mvp-joe/autodoc/internal/watcher"
)

// Test: writeCycles prints relative times and marks baselines
func TestWriteCycles(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	cycles := []storage.CycleEntry{
		{Path: "/proj/a.py", Updated: 2, Pending: 3, Duration: 12 * time.Millisecond, At: now.Add(-2 * time.Hour)},
		{Path: "/proj/b.py", Baseline: true, At: now.Add(-3 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCycles(&buf, "/proj", cycles, now))

	out := buf.String()
	assert.Contains(t, out, "WHEN")
	assert.Regexp(t, `2 hours ago\s+a\.py\s+0\s+2\s+0\s+3\s+12ms`, out)
	assert.Contains(t, out, "b.py (baseline)")
}

// Test: writeAcks prints one row per acknowledgement
func TestWriteAcks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	acks := []storage.AckEntry{
		{Path: "/proj/pkg/a.py", Name: "add", Score: 61, At: now.Add(-time.Minute)},
	}

	var buf bytes.Buffer
	require.NoError(t, writeAcks(&buf, "/proj", acks, now))

	assert.Regexp(t, `1 minute ago\s+pkg/a\.py\s+add\s+61`, buf.String())
}

// Test: writeHistorySummary prints per-file totals
func TestWriteHistorySummary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	summary := []storage.PathSummary{
		{Path: "/proj/a.py", Cycles: 1200, Acknowledgments: 3, LastCycle: now.Add(-24 * time.Hour)},
		{Path: "/proj/b.py", Acknowledgments: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, writeHistorySummary(&buf, "/proj", summary, now))

	out := buf.String()
	assert.Regexp(t, `a\.py\s+1,200\s+3\s+1 day ago`, out)
	assert.Regexp(t, `b\.py\s+0\s+1\s+never`, out)
}

// Test: Empty results print a message instead of a header
func TestHistoryWriters_Empty(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var buf bytes.Buffer

	require.NoError(t, writeCycles(&buf, "/proj", nil, now))
	require.NoError(t, writeAcks(&buf, "/proj", nil, now))
	require.NoError(t, writeHistorySummary(&buf, "/proj", nil, now))

	out := buf.String()
	assert.NotContains(t, out, "WHEN")
	assert.Contains(t, out, "No cycles recorded.")
	assert.Contains(t, out, "No acknowledgements recorded.")
	assert.Contains(t, out, "No history recorded.")
}

// Test: resolvePath joins relative paths to the root
func TestResolvePath(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/proj")
	assert.Equal(t, filepath.Join(root, "pkg", "a.py"), resolvePath(root, "pkg/a.py"))

	abs := filepath.Join(root, "other", "..", "b.py")
	assert.Equal(t, filepath.Join(root, "b.py"), resolvePath(root, abs))
}

// Test: history reports a missing database without creating one
func TestHistoryCommand_NoDatabase(t *testing.T) {
	proj := newTestProject(t, nil)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"history", "--root", proj.root})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		rootDir = ""
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, stdout.String(), "No history recorded yet.")
	assert.NoFileExists(t, proj.cfg.HistoryPath(proj.root))
}

// Test: A session with history enabled records baseline cycles
func TestSession_RecordsHistory(t *testing.T) {
	t.Parallel()

	proj := newTestProject(t, map[string]string{"a.py": documentedPython})
	proj.cfg.Storage.HistoryEnabled = true

	sess, err := proj.openSession(sessionOptions{history: true})
	require.NoError(t, err)
	defer sess.Close()

	filter, err := proj.filter()
	require.NoError(t, err)
	coord := watcher.NewWatchCoordinator(nil, nil, sess.engine, filter, proj.logger)
	_, err = coord.Track(context.Background(), filepath.Join(proj.root, "a.py"))
	require.NoError(t, err)

	cycles, err := sess.history.Cycles(context.Background(), storage.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.True(t, cycles[0].Baseline)
	assert.Equal(t, filepath.Join(proj.root, "a.py"), cycles[0].Path)
	assert.Equal(t, 2, cycles[0].Unchanged)
}
