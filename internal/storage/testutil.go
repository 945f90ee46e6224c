package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database with the history schema.
// The connection is closed by t.Cleanup.
//
// In-memory databases are per connection, so the pool is limited to one.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    store := storage.NewHistoryStore(db)
//	    // ...
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db := NewTestDBMinimal(t)
	require.NoError(t, CreateHistorySchema(db))
	return db
}

// NewTestDBMinimal creates an in-memory SQLite database without schema, for
// tests of schema creation itself.
func NewTestDBMinimal(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewTestHistory returns a HistoryStore over NewTestDB.
func NewTestHistory(t testing.TB) *HistoryStore {
	t.Helper()
	return NewHistoryStore(NewTestDB(t))
}
