package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/autodoc/internal/engine"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryStore persists classify cycles and acknowledgements to SQLite. It
// implements engine.Recorder.
type HistoryStore struct {
	db     *sql.DB
	ownsDB bool
}

var _ engine.Recorder = (*HistoryStore)(nil)

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection serialises writers without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := CreateHistorySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryStore{db: db, ownsDB: true}, nil
}

// NewHistoryStore wraps an existing database. The schema must already exist.
// Close does not close db.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Close closes the database if the store opened it.
func (s *HistoryStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// RecordCycle implements engine.Recorder.
func (s *HistoryStore) RecordCycle(ctx context.Context, rec engine.CycleRecord) error {
	id := rec.CycleID
	if id == "" {
		id = uuid.NewString()
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := sq.Insert("cycles").
		Columns(
			"cycle_id", "document_id", "file_path", "language",
			"new_count", "updated_count", "deleted_count", "unchanged_count", "pending_count",
			"is_baseline", "duration_ms", "recorded_at",
		).
		Values(
			id,
			string(rec.DocumentID),
			rec.Path,
			rec.Language,
			rec.New,
			rec.Updated,
			rec.Deleted,
			rec.Unchanged,
			rec.Pending,
			rec.Baseline,
			rec.Duration.Milliseconds(),
			at.UTC().Format(timeLayout),
		).
		Options("OR REPLACE").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record cycle for %s: %w", rec.Path, err)
	}
	return nil
}

// RecordAcknowledgement implements engine.Recorder.
func (s *HistoryStore) RecordAcknowledgement(ctx context.Context, rec engine.AckRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := sq.Insert("acknowledgements").
		Columns("document_id", "file_path", "function_id", "function_name", "score", "recorded_at").
		Values(
			string(rec.DocumentID),
			rec.Path,
			string(rec.FunctionID),
			rec.Name,
			rec.Score,
			at.UTC().Format(timeLayout),
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record acknowledgement of %s in %s: %w", rec.Name, rec.Path, err)
	}
	return nil
}

// Prune deletes history recorded before cutoff and returns the number of
// rows removed.
func (s *HistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bound := cutoff.UTC().Format(timeLayout)
	var total int64
	for _, table := range []string{"cycles", "acknowledgements"} {
		res, err := sq.Delete(table).
			Where(sq.Lt{"recorded_at": bound}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return total, nil
}
