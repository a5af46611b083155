package checklist_test

import (
	"testing"

	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/stretchr/testify/require"
)

func abc() []checklist.Item {
	return []checklist.Item{
		{ID: "A", Title: "A", SortOrder: 0},
		{ID: "B", Title: "B", SortOrder: 1},
		{ID: "C", Title: "C", SortOrder: 2},
	}
}

func ids(items []checklist.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func requireDense(t *testing.T, items []checklist.Item) {
	t.Helper()
	require.NoError(t, checklist.Validate(items))
}

func TestReorder_MoveLastToFirst(t *testing.T) {
	items := abc()
	got, err := checklist.Reorder(items, "C", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A", "B"}, ids(got))
	requireDense(t, got)

	// Caller's slice is untouched.
	require.Equal(t, []string{"A", "B", "C"}, ids(items))
	require.Equal(t, 2, items[2].SortOrder)
}

func TestReorder_ClampsTarget(t *testing.T) {
	got, err := checklist.Reorder(abc(), "A", 99)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C", "A"}, ids(got))

	got, err = checklist.Reorder(abc(), "C", -3)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A", "B"}, ids(got))
}

func TestReorder_UnknownItem(t *testing.T) {
	_, err := checklist.Reorder(abc(), "Z", 0)
	require.ErrorIs(t, err, checklist.ErrItemNotFound)
}

func TestReorder_RepairsGappedInput(t *testing.T) {
	items := []checklist.Item{
		{ID: "A", SortOrder: 3},
		{ID: "B", SortOrder: 10},
		{ID: "C", SortOrder: 10},
	}
	got, err := checklist.Reorder(items, "A", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, ids(got))
	requireDense(t, got)
}

func TestAppendRemoveSequenceStaysDense(t *testing.T) {
	items := abc()
	var err error
	var added checklist.Item

	items, added, err = checklist.Append(items, "  D  ")
	require.NoError(t, err)
	require.Equal(t, 3, added.SortOrder)
	require.Equal(t, "D", added.Title)
	require.True(t, added.Local)
	requireDense(t, items)

	items, err = checklist.Remove(items, "B")
	require.NoError(t, err)
	requireDense(t, items)

	items, err = checklist.Reorder(items, added.ID, 0)
	require.NoError(t, err)
	requireDense(t, items)

	items, err = checklist.Remove(items, "A")
	require.NoError(t, err)
	require.Equal(t, []string{added.ID, "C"}, ids(items))
	requireDense(t, items)
}

func TestAppend_RejectsBlankTitle(t *testing.T) {
	_, _, err := checklist.Append(abc(), "   ")
	require.ErrorIs(t, err, checklist.ErrEmptyTitle)
}

func TestToggleAndRename(t *testing.T) {
	items, err := checklist.Toggle(abc(), "B")
	require.NoError(t, err)
	require.True(t, items[1].Done)

	items, err = checklist.Rename(items, "B", "Bee")
	require.NoError(t, err)
	require.Equal(t, "Bee", items[1].Title)

	_, err = checklist.Toggle(items, "nope")
	require.ErrorIs(t, err, checklist.ErrItemNotFound)
}

func TestValidate_DetectsDuplicates(t *testing.T) {
	err := checklist.Validate([]checklist.Item{{ID: "A", SortOrder: 0}, {ID: "B", SortOrder: 0}})
	require.ErrorIs(t, err, checklist.ErrInvariant)
}
