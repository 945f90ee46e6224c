package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// CycleEntry is a stored classify cycle.
type CycleEntry struct {
	CycleID    string
	DocumentID tracking.DocumentID
	Path       string
	Language   string
	New        int
	Updated    int
	Deleted    int
	Unchanged  int
	Pending    int
	Baseline   bool
	Duration   time.Duration
	At         time.Time
}

// AckEntry is a stored acknowledgement.
type AckEntry struct {
	DocumentID tracking.DocumentID
	Path       string
	FunctionID tracking.FunctionID
	Name       string
	Score      int
	At         time.Time
}

// PathSummary aggregates history for one file.
type PathSummary struct {
	Path            string
	Cycles          int
	Acknowledgments int
	LastCycle       time.Time
}

// HistoryQuery filters history reads. Zero values mean no filter.
type HistoryQuery struct {
	Path  string
	Since time.Time
	Limit int
}

func (q HistoryQuery) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if q.Path != "" {
		b = b.Where(sq.Eq{"file_path": q.Path})
	}
	if !q.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"recorded_at": q.Since.UTC().Format(timeLayout)})
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}

// Cycles returns matching cycles, newest first.
func (s *HistoryStore) Cycles(ctx context.Context, q HistoryQuery) ([]CycleEntry, error) {
	b := sq.Select(
		"cycle_id", "document_id", "file_path", "language",
		"new_count", "updated_count", "deleted_count", "unchanged_count", "pending_count",
		"is_baseline", "duration_ms", "recorded_at",
	).
		From("cycles").
		OrderBy("recorded_at DESC", "cycle_id")

	rows, err := q.apply(b).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleEntry
	for rows.Next() {
		var (
			e          CycleEntry
			docID      string
			durationMS int64
			recorded   string
		)
		if err := rows.Scan(
			&e.CycleID, &docID, &e.Path, &e.Language,
			&e.New, &e.Updated, &e.Deleted, &e.Unchanged, &e.Pending,
			&e.Baseline, &durationMS, &recorded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		e.DocumentID = tracking.DocumentID(docID)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.At, err = parseTime(recorded); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Acknowledgements returns matching acknowledgements, newest first.
func (s *HistoryStore) Acknowledgements(ctx context.Context, q HistoryQuery) ([]AckEntry, error) {
	b := sq.Select("document_id", "file_path", "function_id", "function_name", "score", "recorded_at").
		From("acknowledgements").
		OrderBy("recorded_at DESC", "ack_id DESC")

	rows, err := q.apply(b).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query acknowledgements: %w", err)
	}
	defer rows.Close()

	var out []AckEntry
	for rows.Next() {
		var (
			e           AckEntry
			docID, fnID string
			recorded    string
		)
		if err := rows.Scan(&docID, &e.Path, &fnID, &e.Name, &e.Score, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan acknowledgement: %w", err)
		}
		e.DocumentID = tracking.DocumentID(docID)
		e.FunctionID = tracking.FunctionID(fnID)
		if e.At, err = parseTime(recorded); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary aggregates cycles and acknowledgements per file, sorted by path.
func (s *HistoryStore) Summary(ctx context.Context) ([]PathSummary, error) {
	rows, err := sq.Select(
		"c.file_path",
		"COUNT(*)",
		"MAX(c.recorded_at)",
		"(SELECT COUNT(*) FROM acknowledgements a WHERE a.file_path = c.file_path)",
	).
		From("cycles c").
		GroupBy("c.file_path").
		OrderBy("c.file_path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query history summary: %w", err)
	}
	defer rows.Close()

	var out []PathSummary
	for rows.Next() {
		var (
			p    PathSummary
			last string
		)
		if err := rows.Scan(&p.Path, &p.Cycles, &last, &p.Acknowledgments); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if p.LastCycle, err = parseTime(last); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountCycles returns the number of stored cycles.
func (s *HistoryStore) CountCycles(ctx context.Context) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("cycles").RunWith(s.db).QueryRowContext(ctx).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to count cycles: %w", err)
	}
	return n, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
