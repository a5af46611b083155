package main

import (
	"context"
	"time"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/transport"
)

// timeoutMutator bounds each remote mutation.
type timeoutMutator struct {
	client  *transport.Client
	timeout time.Duration
}

func (m timeoutMutator) UpdateField(ctx context.Context, taskID string, name field.Name, value string) (task.FieldConfirmation, error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.UpdateField(ctx, taskID, name, value)
}

func (m timeoutMutator) SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.SetAttachmentList(ctx, taskID, refs)
}

func (m timeoutMutator) SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (task.ChecklistConfirmation, error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.SetChecklist(ctx, taskID, items)
}

// timeoutUploader bounds each remote upload and delete.
type timeoutUploader struct {
	client  *transport.Client
	timeout time.Duration
}

func (u timeoutUploader) Upload(ctx context.Context, file task.File) (attachment.Upload, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	return u.client.Upload(ctx, file)
}

func (u timeoutUploader) DeleteMedia(ctx context.Context, ref attachment.MediaRef) error {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	return u.client.DeleteMedia(ctx, ref)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
