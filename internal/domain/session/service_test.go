package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/session"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/repository/mocks"
)

func snapshot(tick int64, status string) task.Snapshot {
	return task.Snapshot{
		ID:     "t1",
		Title:  "Write docs",
		Fields: map[field.Name]string{field.Status: status},
		Tick:   tick,
	}
}

func TestSessionService_Open_FollowsPushEvents(t *testing.T) {
	ctx := context.Background()
	loader := &mocks.Loader{}
	subscriber := &mocks.Subscriber{}

	events := make(chan push.Event, 1)
	var unsubscribed atomic.Bool
	loader.On("GetSnapshot", ctx, "t1").Return(snapshot(1, "todo"), nil)
	subscriber.On("Subscribe", mock.Anything, "t1").
		Return(events, func() { unsubscribed.Store(true) }, nil)

	svc := session.NewService(session.Dependencies{Loader: loader, Subscriber: subscriber}, session.Config{}, nil)
	sess, err := svc.Open(ctx, "t1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, "todo", sess.Controller.View().Fields[field.Status])

	events <- push.Event{TaskID: "t1", Snapshot: snapshot(2, "in_progress")}
	require.Eventually(t, func() bool {
		return sess.Controller.View().Fields[field.Status] == "in_progress"
	}, time.Second, 10*time.Millisecond)

	got, err := svc.Get(sess.ID)
	require.NoError(t, err)
	require.Same(t, sess, got)

	require.NoError(t, svc.Close(ctx, sess.ID))
	require.True(t, unsubscribed.Load())
	require.Equal(t, task.StateReleased, sess.Controller.State())
	require.Equal(t, session.StatusClosed, sess.Info().Status)
	require.NotNil(t, sess.Info().ClosedAt)

	_, err = svc.Get(sess.ID)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.ErrorIs(t, svc.Close(ctx, sess.ID), session.ErrSessionNotFound)
}

func TestSessionService_Open_Errors(t *testing.T) {
	ctx := context.Background()
	loader := &mocks.Loader{}
	subscriber := &mocks.Subscriber{}
	svc := session.NewService(session.Dependencies{Loader: loader, Subscriber: subscriber}, session.Config{}, nil)

	_, err := svc.Open(ctx, "")
	require.ErrorIs(t, err, session.ErrInvalidInput)

	loader.On("GetSnapshot", ctx, "missing").Return(task.Snapshot{}, task.ErrTaskNotFound)
	_, err = svc.Open(ctx, "missing")
	require.ErrorIs(t, err, session.ErrTaskNotFound)

	loader.On("GetSnapshot", ctx, "t1").Return(snapshot(1, "todo"), nil)
	subscriber.On("Subscribe", mock.Anything, "t1").Return(nil, nil, errors.New("stream refused"))
	_, err = svc.Open(ctx, "t1")
	require.ErrorContains(t, err, "stream refused")
	require.Empty(t, svc.List())
}

func TestSessionService_NotificationsRecorded(t *testing.T) {
	ctx := context.Background()
	loader := &mocks.Loader{}
	mutator := &mocks.Mutator{}
	notifier := &mocks.Notifier{}

	loader.On("GetSnapshot", ctx, "t1").Return(snapshot(1, "todo"), nil)
	mutator.On("UpdateField", ctx, "t1", field.Status, "bogus").
		Return(task.FieldConfirmation{}, errors.New("invalid status"))
	notifier.On("Notify", mock.MatchedBy(func(n task.Notification) bool {
		return n.Kind == task.KindFieldRejected && n.TaskID == "t1"
	})).Once()

	svc := session.NewService(session.Dependencies{Loader: loader, Mutator: mutator, Notifier: notifier}, session.Config{}, nil)
	sess, err := svc.Open(ctx, "t1")
	require.NoError(t, err)

	err = sess.Controller.SetField(ctx, field.Status, "bogus")
	require.ErrorIs(t, err, task.ErrMutationRejected)

	notes := sess.Notifications()
	require.Len(t, notes, 1)
	require.Empty(t, sess.Notifications())
	notifier.AssertExpectations(t)
}

func TestSessionService_ListAndCloseAll(t *testing.T) {
	ctx := context.Background()
	loader := &mocks.Loader{}
	loader.On("GetSnapshot", ctx, mock.Anything).Return(snapshot(1, "todo"), nil)

	svc := session.NewService(session.Dependencies{Loader: loader}, session.Config{}, nil)
	first, err := svc.Open(ctx, "t1")
	require.NoError(t, err)
	second, err := svc.Open(ctx, "t1")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	infos := svc.List()
	require.Len(t, infos, 2)

	svc.CloseAll(ctx)
	require.Empty(t, svc.List())
	require.Equal(t, task.StateReleased, first.Controller.State())
	require.Equal(t, task.StateReleased, second.Controller.State())
}
