package repository

import (
	"context"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// TaskRepository manages task persistence. Every mutation bumps the task tick and
// returns the new value.
type TaskRepository interface {
	Create(ctx context.Context, t *task.Task) error
	Get(ctx context.Context, id string) (*task.Task, error)
	UpdateField(ctx context.Context, id string, name field.Name, value string) (int64, error)
	ReplaceChecklist(ctx context.Context, id string, items []checklist.Item) (int64, error)
	ReplaceAttachments(ctx context.Context, id string, refs []attachment.MediaRef) (int64, error)
}

// MediaRepository manages stored media objects
type MediaRepository interface {
	Put(ctx context.Context, m *attachment.Media) error
	Get(ctx context.Context, ref attachment.MediaRef) (*attachment.Media, error)
	Delete(ctx context.Context, ref attachment.MediaRef) error
	Exists(ctx context.Context, ref attachment.MediaRef) (bool, error)
}

// SearchRepository provides full-text search over task titles
type SearchRepository interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]task.Summary, error)
}

// SearchOptions limits a search
type SearchOptions struct {
	Limit  int
	Offset int
}

// ActivityRepository manages activity log persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}
