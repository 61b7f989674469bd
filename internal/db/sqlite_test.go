package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	write := buildDSN("/tmp/q.sqlite", ModeWrite)
	assert.True(t, strings.HasPrefix(write, "/tmp/q.sqlite?"))
	assert.Contains(t, write, "_journal_mode=WAL")
	assert.Contains(t, write, "_busy_timeout=5000")
	assert.Contains(t, write, "_synchronous=NORMAL")
	assert.Contains(t, write, "_foreign_keys=on")
	assert.Contains(t, write, "_txlock=immediate")

	read := buildDSN("/tmp/q.sqlite", ModeRead)
	assert.Contains(t, read, "_foreign_keys=on")
	assert.NotContains(t, read, "_txlock")
}

func TestOpen_InvalidMode(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "q.db"), Mode("admin"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/q.db", ModeWrite, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")

	_, err = OpenPair("/nonexistent/dir/q.db", 2)
	require.Error(t, err)
}

func TestOpenPair_PoolSizing(t *testing.T) {
	pools, err := OpenPair(filepath.Join(t.TempDir(), "q.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pools.Close() })

	assert.Equal(t, 1, pools.Write.Stats().MaxOpenConnections)
	assert.Equal(t, 4, pools.Read.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, pools.Write.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	var fk int
	require.NoError(t, pools.Write.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestRunMigrations_CreatesSchema(t *testing.T) {
	pools := OpenTestSQLite(t)
	ctx := context.Background()

	v, err := SchemaVersion(ctx, pools.Write)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(ctx, pools.Write))

	for _, table := range []string{"async_queries", "async_query_results"} {
		var name string
		err := pools.Read.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrations_ResultCascadesWithQuery(t *testing.T) {
	pools := OpenTestSQLite(t)
	ts := "2020-03-23T02:02:00.000000000Z"

	_, err := pools.Write.Exec(`INSERT INTO async_queries (id, status, created_on, updated_on) VALUES ('q1', 'COMPLETE', ?, ?)`, ts, ts)
	require.NoError(t, err)
	_, err = pools.Write.Exec(`INSERT INTO async_query_results (id, query_id, http_status, created_on) VALUES ('r1', 'q1', 200, ?)`, ts)
	require.NoError(t, err)

	_, err = pools.Write.Exec(`INSERT INTO async_query_results (id, query_id, http_status, created_on) VALUES ('r2', 'q1', 200, ?)`, ts)
	require.Error(t, err, "a query owns at most one result")

	_, err = pools.Write.Exec(`DELETE FROM async_queries WHERE id = 'q1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, pools.Read.QueryRow(`SELECT count(*) FROM async_query_results`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrations_RejectUnknownStatus(t *testing.T) {
	pools := OpenTestSQLite(t)
	_, err := pools.Write.Exec(`INSERT INTO async_queries (id, status, created_on, updated_on) VALUES ('q1', 'DONE', 'x', 'x')`)
	require.Error(t, err)
}
