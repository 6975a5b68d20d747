package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"users", "tasks", "time_logs", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_tasks_user",
		"idx_time_logs_user_start",
		"idx_time_logs_task",
		"idx_time_logs_one_open",
		"idx_events_user_created",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestNew_ForeignKeysOnEveryConnection(t *testing.T) {
	db := openTestDB(t)
	db.SetMaxOpenConns(4)

	conns := make([]*sql.Conn, 0, 3)
	for i := 0; i < 3; i++ {
		conn, err := db.Conn(t.Context())
		require.NoError(t, err)
		conns = append(conns, conn)

		var fk int
		require.NoError(t, conn.QueryRowContext(t.Context(), `PRAGMA foreign_keys`).Scan(&fk))
		assert.Equal(t, 1, fk, "connection %d should enforce foreign keys", i)
	}
	for _, c := range conns {
		c.Close()
	}
}

func seedTask(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ('u1', 'ann', 'ann@example.com', 'x', '2024-01-01T00:00:00.000000000Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (id, user_id, title, created_at, updated_at) VALUES ('t1', 'u1', 'Write', '2024-01-01T00:00:00.000000000Z', '2024-01-01T00:00:00.000000000Z')`)
	require.NoError(t, err)
}

func TestOneOpenTimerIndex(t *testing.T) {
	db := openTestDB(t)
	seedTask(t, db)

	_, err := db.Exec(`INSERT INTO time_logs (id, user_id, task_id, start_time) VALUES ('l1', 'u1', 't1', '2024-01-01T09:00:00.000000000Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO time_logs (id, user_id, task_id, start_time) VALUES ('l2', 'u1', 't1', '2024-01-01T09:05:00.000000000Z')`)
	require.Error(t, err, "second open log for the same task must be rejected")

	_, err = db.Exec(`UPDATE time_logs SET end_time = '2024-01-01T09:10:00.000000000Z', duration = 10 WHERE id = 'l1'`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO time_logs (id, user_id, task_id, start_time) VALUES ('l2', 'u1', 't1', '2024-01-01T09:15:00.000000000Z')`)
	assert.NoError(t, err, "a new timer may start once the previous one is closed")
}

func TestDeleteTaskCascadesTimeLogs(t *testing.T) {
	db := openTestDB(t)
	seedTask(t, db)

	_, err := db.Exec(`INSERT INTO time_logs (id, user_id, task_id, start_time) VALUES ('l1', 'u1', 't1', '2024-01-01T09:00:00.000000000Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM tasks WHERE id = 't1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM time_logs`).Scan(&n))
	assert.Equal(t, 0, n)
}
