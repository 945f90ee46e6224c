package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

// Test Plan for HistoryStore:
// - CreateHistorySchema is idempotent and records the schema version
// - GetHistorySchemaVersion returns "0" for an empty database
// - RecordCycle round-trips every field, generating an ID when missing
// - RecordCycle with the same cycle ID replaces the row
// - RecordAcknowledgement round-trips every field
// - Queries filter by path, since and limit, newest first
// - Summary aggregates per file
// - Prune deletes rows older than the cutoff
// - OpenHistory creates the file and its directory and survives reopening

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func cycle(path string, at time.Time) engine.CycleRecord {
	return engine.CycleRecord{
		DocumentID: tracking.NewDocumentID(path),
		Path:       path,
		Language:   "python",
		New:        1,
		Updated:    2,
		Deleted:    3,
		Unchanged:  4,
		Pending:    2,
		Duration:   15 * time.Millisecond,
		At:         at,
	}
}

// Test: CreateHistorySchema is idempotent and records the schema version
func TestCreateHistorySchema(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	require.NoError(t, CreateHistorySchema(store.db))

	version, err := GetHistorySchemaVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, HistorySchemaVersion, version)
}

// Test: GetHistorySchemaVersion returns "0" for an empty database
func TestGetHistorySchemaVersion_Empty(t *testing.T) {
	t.Parallel()

	db := NewTestDBMinimal(t)

	version, err := GetHistorySchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "0", version)
}

// Test: RecordCycle round-trips every field, generating an ID when missing
func TestRecordCycle(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	rec := cycle("/repo/a.py", epoch)
	rec.Baseline = true
	require.NoError(t, store.RecordCycle(ctx, rec))

	got, err := store.Cycles(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.NotEmpty(t, e.CycleID)
	assert.Equal(t, rec.DocumentID, e.DocumentID)
	assert.Equal(t, "/repo/a.py", e.Path)
	assert.Equal(t, "python", e.Language)
	assert.Equal(t, []int{1, 2, 3, 4, 2}, []int{e.New, e.Updated, e.Deleted, e.Unchanged, e.Pending})
	assert.True(t, e.Baseline)
	assert.Equal(t, 15*time.Millisecond, e.Duration)
	assert.True(t, epoch.Equal(e.At))
}

// Test: RecordCycle with the same cycle ID replaces the row
func TestRecordCycle_Replace(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	rec := cycle("/repo/a.py", epoch)
	rec.CycleID = "fixed"
	require.NoError(t, store.RecordCycle(ctx, rec))
	rec.Pending = 9
	require.NoError(t, store.RecordCycle(ctx, rec))

	n, err := store.CountCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Cycles(ctx, HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 9, got[0].Pending)
}

// Test: RecordAcknowledgement round-trips every field
func TestRecordAcknowledgement(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	require.NoError(t, store.RecordAcknowledgement(ctx, engine.AckRecord{
		DocumentID: "doc",
		Path:       "/repo/a.py",
		FunctionID: "fn",
		Name:       "handler",
		Score:      73,
		At:         epoch,
	}))

	got, err := store.Acknowledgements(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, AckEntry{
		DocumentID: "doc",
		Path:       "/repo/a.py",
		FunctionID: "fn",
		Name:       "handler",
		Score:      73,
		At:         got[0].At,
	}, got[0])
	assert.True(t, epoch.Equal(got[0].At))
}

// Test: Queries filter by path, since and limit, newest first
func TestHistoryQuery(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	for i, path := range []string{"/repo/a.py", "/repo/b.py", "/repo/a.py", "/repo/a.py"} {
		require.NoError(t, store.RecordCycle(ctx, cycle(path, epoch.Add(time.Duration(i)*time.Minute))))
	}

	all, err := store.Cycles(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].At.After(all[3].At))

	onlyA, err := store.Cycles(ctx, HistoryQuery{Path: "/repo/a.py"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 3)

	recent, err := store.Cycles(ctx, HistoryQuery{Since: epoch.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := store.Cycles(ctx, HistoryQuery{Path: "/repo/a.py", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.True(t, epoch.Add(3*time.Minute).Equal(limited[0].At))
}

// Test: Summary aggregates per file
func TestSummary(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/b.py", epoch)))
	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/a.py", epoch)))
	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/a.py", epoch.Add(time.Hour))))
	require.NoError(t, store.RecordAcknowledgement(ctx, engine.AckRecord{Path: "/repo/a.py", Name: "f", At: epoch}))

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, "/repo/a.py", summary[0].Path)
	assert.Equal(t, 2, summary[0].Cycles)
	assert.Equal(t, 1, summary[0].Acknowledgments)
	assert.True(t, epoch.Add(time.Hour).Equal(summary[0].LastCycle))

	assert.Equal(t, "/repo/b.py", summary[1].Path)
	assert.Equal(t, 0, summary[1].Acknowledgments)
}

// Test: Prune deletes rows older than the cutoff
func TestPrune(t *testing.T) {
	t.Parallel()

	store := NewTestHistory(t)
	ctx := context.Background()

	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/a.py", epoch)))
	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/a.py", epoch.Add(48*time.Hour))))
	require.NoError(t, store.RecordAcknowledgement(ctx, engine.AckRecord{Path: "/repo/a.py", Name: "f", At: epoch}))

	removed, err := store.Prune(ctx, epoch.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := store.CountCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Test: OpenHistory creates the file and its directory and survives reopening
func TestOpenHistory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".autodoc", "history.db")
	ctx := context.Background()

	store, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordCycle(ctx, cycle("/repo/a.py", epoch)))
	require.NoError(t, store.Close())

	reopened, err := OpenHistory(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.CountCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
