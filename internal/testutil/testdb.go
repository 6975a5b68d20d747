package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/tasktracker-be/internal/database"
)

// NewTestDB creates a migrated SQLite database in the test's temp directory.
// It is file-backed so every connection in the pool sees the same data.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewTestUser inserts a user row directly and returns its id.
func NewTestUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(
		"INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		id, username, username+"@example.com", "not-a-real-hash",
		time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"))
	if err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
	return id
}

// FakeClock is a settable time source.
type FakeClock struct {
	current time.Time
}

// NewFakeClock returns a clock pinned at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

// Now returns the pinned time.
func (c *FakeClock) Now() time.Time { return c.current }

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) { c.current = t }
