package tracking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Classify:
// - Identical reparse produces no new/updated/deleted (scenario A)
// - Small edit accumulates score without Updated (scenario B)
// - Accumulated edits cross the threshold (scenario C)
// - Missing function is Deleted (scenario D)
// - Unmatched fresh function is New with no carried score
// - A function already past the threshold is not reported Updated again
// - Empty fresh list deletes everything
// - Empty bodies carry no distance
// - Every identity lands in exactly one bucket
// - Duplicate start offsets resolve last-seen-wins
// - Cancelled context aborts classification

const testThreshold = 50

func mkFunc(start int, body string) *Function {
	return &Function{StartOffset: start, EndOffset: start + len(body), Body: body}
}

// Test: Identical reparse produces no new/updated/deleted (scenario A)
func TestClassify_UnchangedFunction(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "def f():\n    pass")}
	fresh := []*Function{mkFunc(0, "def f():\n    pass")}

	cs := Classify(prev, fresh, testThreshold)

	assert.True(t, cs.Empty())
	require.Len(t, cs.Unchanged, 1)
	assert.Equal(t, 0, cs.Unchanged[0].RecordedChangeScore)
}

// Test: Small edit accumulates score without Updated (scenario B)
func TestClassify_BelowThresholdAccumulates(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "def f():\n    pass")}
	fresh := []*Function{mkFunc(0, "def f():\n    return 1")}

	cs := Classify(prev, fresh, testThreshold)

	assert.Empty(t, cs.Updated)
	require.Len(t, cs.Unchanged, 1)
	assert.Equal(t, 8, cs.Unchanged[0].RecordedChangeScore)
	assert.Less(t, cs.Unchanged[0].RecordedChangeScore, testThreshold)
}

// Test: Accumulated edits cross the threshold (scenario C)
func TestClassify_AccumulatedCrossesThreshold(t *testing.T) {
	t.Parallel()

	v1 := []*Function{mkFunc(0, "def f():\n    pass")}
	v2 := []*Function{mkFunc(0, "def f():\n    return 1")}
	v3 := []*Function{mkFunc(0, "def f():\n    return "+strings.Repeat("x", 50))}

	first := Classify(v1, v2, testThreshold)
	require.Empty(t, first.Updated)

	second := Classify(v2, v3, testThreshold)
	require.Len(t, second.Updated, 1)
	assert.Equal(t, 8+50, second.Updated[0].RecordedChangeScore)
}

// Test: Single-cycle distance below threshold never updates (P3)
func TestClassify_ThresholdGatingPerCycle(t *testing.T) {
	t.Parallel()

	body := "def g(a):\n    return a"
	prev := []*Function{mkFunc(10, body)}
	fresh := []*Function{mkFunc(10, body+"+1")}

	cs := Classify(prev, fresh, 3)
	assert.Empty(t, cs.Updated, "distance 2 < 3 must not update")

	// Second cycle adds 2 more, cumulative 4 >= 3.
	next := []*Function{mkFunc(10, body+"+1+1")}
	cs = Classify(fresh, next, 3)
	require.Len(t, cs.Updated, 1)
	assert.Equal(t, 4, cs.Updated[0].RecordedChangeScore)
}

// Test: Missing function is Deleted (scenario D)
func TestClassify_MissingFunctionDeleted(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "def a(): pass"), mkFunc(20, "def b(): pass")}
	fresh := []*Function{mkFunc(0, "def a(): pass")}

	cs := Classify(prev, fresh, testThreshold)

	require.Len(t, cs.Deleted, 1)
	assert.Equal(t, 20, cs.Deleted[0].StartOffset)
	assert.Len(t, cs.Unchanged, 1)
}

// Test: Unmatched fresh function is New with no carried score
func TestClassify_NewFunction(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "def a(): pass")}
	b := mkFunc(30, "def b(): return 2")
	b.RecordedChangeScore = 7
	fresh := []*Function{mkFunc(0, "def a(): pass"), b}

	cs := Classify(prev, fresh, testThreshold)

	require.Len(t, cs.New, 1)
	assert.Equal(t, 30, cs.New[0].StartOffset)
	assert.Equal(t, 0, cs.New[0].RecordedChangeScore)
}

// Test: A function already past the threshold is not reported Updated again
func TestClassify_PendingNotReportedAgain(t *testing.T) {
	t.Parallel()

	body := "def f():\n    return " + strings.Repeat("x", 60)
	pending := mkFunc(0, body)
	pending.RecordedChangeScore = 60

	t.Run("identical reparse", func(t *testing.T) {
		t.Parallel()
		cs := Classify([]*Function{pending.Clone()}, []*Function{mkFunc(0, body)}, testThreshold)

		assert.True(t, cs.Empty())
		require.Len(t, cs.Unchanged, 1)
		assert.Equal(t, 60, cs.Unchanged[0].RecordedChangeScore)
	})

	t.Run("further edits", func(t *testing.T) {
		t.Parallel()
		cs := Classify([]*Function{pending.Clone()}, []*Function{mkFunc(0, body+"yy")}, testThreshold)

		assert.Empty(t, cs.Updated)
		require.Len(t, cs.Unchanged, 1)
		assert.Equal(t, 62, cs.Unchanged[0].RecordedChangeScore)
	})

	t.Run("non-positive threshold reports every change", func(t *testing.T) {
		t.Parallel()
		cs := Classify([]*Function{pending.Clone()}, []*Function{mkFunc(0, body+"y")}, 0)
		assert.Len(t, cs.Updated, 1)

		cs = Classify([]*Function{pending.Clone()}, []*Function{mkFunc(0, body)}, 0)
		assert.Empty(t, cs.Updated)
	})
}

// Test: Empty fresh list deletes everything
func TestClassify_EmptyFreshDeletesAll(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "a"), mkFunc(5, "b"), mkFunc(9, "c")}

	cs := Classify(prev, nil, testThreshold)

	assert.Len(t, cs.Deleted, 3)
	assert.Empty(t, cs.New)
	assert.Empty(t, cs.Unchanged)
	assert.Empty(t, cs.Fresh())
}

// Test: Empty bodies carry no distance
func TestClassify_EmptyBodyNoDistance(t *testing.T) {
	t.Parallel()

	prev := []*Function{{StartOffset: 0, Body: ""}}
	fresh := []*Function{mkFunc(0, strings.Repeat("y", 200))}

	cs := Classify(prev, fresh, testThreshold)

	require.Len(t, cs.Unchanged, 1)
	assert.Equal(t, 0, cs.Unchanged[0].RecordedChangeScore)
}

// Test: Every identity lands in exactly one bucket (P2)
func TestClassify_Completeness(t *testing.T) {
	t.Parallel()

	prev := []*Function{mkFunc(0, "alpha"), mkFunc(10, "beta"), mkFunc(20, "gamma"), mkFunc(30, "delta")}
	fresh := []*Function{mkFunc(0, "alpha"), mkFunc(10, strings.Repeat("B", 80)), mkFunc(25, "eps"), mkFunc(30, "delta!")}

	cs := Classify(prev, fresh, testThreshold)

	seen := map[FunctionID]int{}
	for _, bucket := range [][]*Function{cs.New, cs.Updated, cs.Deleted, cs.Unchanged} {
		for _, f := range bucket {
			seen[f.ID()]++
		}
	}

	want := map[FunctionID]bool{}
	for _, f := range append(append([]*Function{}, prev...), fresh...) {
		want[f.ID()] = true
	}

	assert.Len(t, seen, len(want))
	for id := range want {
		assert.Equal(t, 1, seen[id], "identity %s counted %d times", id, seen[id])
	}
	assert.Len(t, cs.Updated, 1)
	assert.Len(t, cs.New, 1)
	assert.Len(t, cs.Deleted, 1)
	assert.Len(t, cs.Unchanged, 2)
}

// Test: Duplicate start offsets resolve last-seen-wins
func TestClassify_DuplicateOffsetsLastWins(t *testing.T) {
	t.Parallel()

	fresh := []*Function{mkFunc(0, "first"), mkFunc(0, "second")}

	cs := Classify(nil, fresh, testThreshold)

	require.Len(t, cs.New, 1)
	assert.Equal(t, "second", cs.New[0].Body)
}

// Test: Carried score is taken from the old function
func TestClassify_CarriesScore(t *testing.T) {
	t.Parallel()

	old := mkFunc(0, "same")
	old.RecordedChangeScore = 49

	cs := Classify([]*Function{old}, []*Function{mkFunc(0, "same!")}, testThreshold)

	require.Len(t, cs.Updated, 1)
	assert.Equal(t, 50, cs.Updated[0].RecordedChangeScore)
}

// Test: Cancelled context aborts classification
func TestClassifyContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prev := []*Function{mkFunc(0, "abc")}
	fresh := []*Function{mkFunc(0, "abd")}

	_, err := ClassifyContext(ctx, prev, fresh, testThreshold)
	assert.ErrorIs(t, err, context.Canceled)
}
