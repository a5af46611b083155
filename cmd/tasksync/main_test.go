package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"priority=high", " assignee =sam"})
	require.NoError(t, err)
	require.Equal(t, map[field.Name]string{field.Priority: "high", field.Assignee: "sam"}, fields)

	_, err = parseFields([]string{"priority"})
	require.ErrorContains(t, err, "name=value")

	_, err = parseFields([]string{"color=red"})
	require.ErrorIs(t, err, field.ErrUnknownField)
}

func TestLogFileWriter_Trims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tasksync.log")
	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	w.max = 100
	w.keep = 50

	for i := 0; i < 20; i++ {
		_, err := w.Write([]byte("line of log output\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.LessOrEqual(t, len(data), 100)
	require.True(t, strings.HasPrefix(string(data), "line of log output\n"))
}

func TestTaskCommands_Local(t *testing.T) {
	t.Setenv("TASKSYNC_DB_PATH", filepath.Join(t.TempDir(), "data", "tasks.db"))
	t.Setenv("TASKSYNC_REMOTE_URL", "")

	var out bytes.Buffer
	create := taskCmd()
	create.SetOut(&out)
	create.SetArgs([]string{"create", "Write release notes", "--field", "priority=high", "--item", "draft"})
	require.NoError(t, create.Execute())

	var snap task.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	require.Equal(t, "Write release notes", snap.Title)
	require.Equal(t, "High", snap.Fields[field.Priority])
	require.Len(t, snap.Checklist, 1)

	out.Reset()
	search := taskCmd()
	search.SetOut(&out)
	search.SetArgs([]string{"search", "release"})
	require.NoError(t, search.Execute())

	var results []task.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, snap.ID, results[0].ID)
}
