package task

import (
	"context"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
)

// Mutator sends mutations to the authoritative server.
type Mutator interface {
	UpdateField(ctx context.Context, taskID string, name field.Name, value string) (FieldConfirmation, error)
	SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error)
	SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (ChecklistConfirmation, error)
}

// Uploader stores and deletes media objects.
type Uploader interface {
	Upload(ctx context.Context, file File) (attachment.Upload, error)
	DeleteMedia(ctx context.Context, ref attachment.MediaRef) error
}

// Notifier receives user-visible failure messages.
type Notifier interface {
	Notify(n Notification)
}

// ActivityLogger records mutation outcomes.
type ActivityLogger interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}

// NotificationKind classifies a user-visible message.
type NotificationKind string

const (
	KindFieldRejected       NotificationKind = "field_rejected"
	KindChecklistReverted   NotificationKind = "checklist_reverted"
	KindAttachmentsReverted NotificationKind = "attachments_reverted"
	KindUploadsPartial      NotificationKind = "uploads_partial"
	KindUploadsFailed       NotificationKind = "uploads_failed"
)

// Notification is a toast-style message about a failed operation.
type Notification struct {
	TaskID  string           `json:"task_id"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	Err     error            `json:"-"`
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }
