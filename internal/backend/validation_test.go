package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/domain/field"
)

func TestNormalizeField(t *testing.T) {
	cases := []struct {
		name  field.Name
		in    string
		want  string
		isErr bool
	}{
		{field.Status, "In Progress", "in_progress", false},
		{field.Status, "DONE", "done", false},
		{field.Status, "archived", "", true},
		{field.Priority, "urgent", "Urgent", false},
		{field.Priority, "", "", false},
		{field.Priority, "critical", "", true},
		{field.DueDate, "2024-06-30", "2024-06-30", false},
		{field.DueDate, "30/06/2024", "", true},
		{field.DueDate, " ", "", false},
		{field.Assignee, "  sam ", "sam", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.name)+"/"+tc.in, func(t *testing.T) {
			got, err := NormalizeField(tc.name, tc.in)
			if tc.isErr {
				require.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := NormalizeField(field.Name("color"), "red")
	require.ErrorIs(t, err, field.ErrUnknownField)
}
