package session

import (
	"context"

	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
)

// Loader fetches the authoritative snapshot of a task.
type Loader interface {
	GetSnapshot(ctx context.Context, taskID string) (task.Snapshot, error)
}

// Subscriber delivers push events for a task until the returned cancel func is
// called or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, taskID string) (<-chan push.Event, func(), error)
}
