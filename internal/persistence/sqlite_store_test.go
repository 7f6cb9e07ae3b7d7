package persistence

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	_ "modernc.org/sqlite"
)

func newTestSQLiteStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each pooled connection to :memory: would see its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteHistoryStore(db)
	require.NoError(t, err)
	return store
}

func TestSQLiteHistoryStoreSuite(t *testing.T) {
	suite.Run(t, &HistoryStoreSuite{
		newStore: func() HistoryStore { return newTestSQLiteStore(t) },
	})
}

func TestSQLiteHistoryStore_SchemaIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = NewSQLiteHistoryStore(db)
	require.NoError(t, err)
	_, err = NewSQLiteHistoryStore(db)
	require.NoError(t, err)
}
