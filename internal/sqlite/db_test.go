package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertMedia(t *testing.T, db *DB, ref attachment.MediaRef, filename string, size int64) {
	t.Helper()
	repo := NewMediaRepository(db)
	require.NoError(t, repo.Put(context.Background(), &attachment.Media{
		Ref:      ref,
		Filename: filename,
		Size:     size,
		SHA256:   "00",
		Content:  make([]byte, size),
	}))
}

func insertTask(t *testing.T, db *DB, id, title string) *task.Task {
	t.Helper()
	tk := &task.Task{
		ID:     id,
		Title:  title,
		Fields: map[field.Name]string{field.Status: "todo", field.Priority: "Low"},
		Checklist: []checklist.Item{
			{ID: id + "-1", Title: "first", SortOrder: 0},
			{ID: id + "-2", Title: "second", SortOrder: 1},
		},
		Tick: 1,
	}
	require.NoError(t, NewTaskRepository(db).Create(context.Background(), tk))
	return tk
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	// Verify all tables were created
	tables := []string{
		"tasks",
		"checklist_items",
		"media",
		"task_attachments",
		"activity_log",
		"tasks_fts",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	require.NoError(t, db.RunMigrations(), "migrations must be re-runnable")
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}
