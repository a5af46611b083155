package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/repository"
)

func TestSearchRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertTask(t, db, "t1", "Unique launch checklist")
	insertTask(t, db, "t2", "Quarterly report")

	repo := NewSearchRepository(db)
	results, err := repo.Search(ctx, "uniq", repository.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "t1", results[0].ID)
	require.Equal(t, "todo", results[0].Status)

	results, err = repo.Search(ctx, `zebra"`, repository.SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchRepository_AssigneeIndexedAfterUpdate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertTask(t, db, "t1", "Plan launch")

	_, err := NewTaskRepository(db).UpdateField(ctx, "t1", field.Assignee, "morgan")
	require.NoError(t, err)

	results, err := NewSearchRepository(db).Search(ctx, "morgan", repository.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "morgan", results[0].Assignee)
}

func TestSearchRepository_EmptyQueryLists(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertTask(t, db, "t1", "One")
	insertTask(t, db, "t2", "Two")

	results, err := NewSearchRepository(db).Search(ctx, "  ", repository.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
