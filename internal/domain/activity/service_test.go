package activity_test

import (
	"context"
	"testing"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		TaskID:       "task1",
		ActivityType: activity.TypeFieldConfirmed,
		Summary:      "priority confirmed",
		Tick:         1,
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{TaskID: "task1", Limit: activity.DefaultListLimit}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.Log(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{TaskID: "task1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LogRejectsIncompleteEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	err := svc.Log(context.Background(), &activity.ActivityEntry{Summary: "no task"})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}
