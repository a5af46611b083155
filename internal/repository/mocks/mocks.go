package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mutator is a mock for task.Mutator.
type Mutator struct {
	mock.Mock
}

func (m *Mutator) UpdateField(ctx context.Context, taskID string, name field.Name, value string) (task.FieldConfirmation, error) {
	args := m.Called(ctx, taskID, name, value)
	return args.Get(0).(task.FieldConfirmation), args.Error(1)
}

func (m *Mutator) SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error) {
	args := m.Called(ctx, taskID, refs)
	return args.Get(0).(attachment.Snapshot), args.Error(1)
}

func (m *Mutator) SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (task.ChecklistConfirmation, error) {
	args := m.Called(ctx, taskID, items)
	return args.Get(0).(task.ChecklistConfirmation), args.Error(1)
}

// Uploader is a mock for task.Uploader.
type Uploader struct {
	mock.Mock
}

func (m *Uploader) Upload(ctx context.Context, file task.File) (attachment.Upload, error) {
	args := m.Called(ctx, file)
	return args.Get(0).(attachment.Upload), args.Error(1)
}

func (m *Uploader) DeleteMedia(ctx context.Context, ref attachment.MediaRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// Notifier is a mock for task.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(n task.Notification) {
	m.Called(n)
}

// Loader is a mock for session.Loader.
type Loader struct {
	mock.Mock
}

func (m *Loader) GetSnapshot(ctx context.Context, taskID string) (task.Snapshot, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(task.Snapshot), args.Error(1)
}

// Subscriber is a mock for session.Subscriber.
type Subscriber struct {
	mock.Mock
}

func (m *Subscriber) Subscribe(ctx context.Context, taskID string) (<-chan push.Event, func(), error) {
	args := m.Called(ctx, taskID)
	var ch <-chan push.Event
	switch v := args.Get(0).(type) {
	case chan push.Event:
		ch = v
	case <-chan push.Event:
		ch = v
	}
	cancel, _ := args.Get(1).(func())
	return ch, cancel, args.Error(2)
}
