package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/session"
	"github.com/rpggio/tasksync/internal/domain/task"
)

const defaultSearchLimit = 20

type tools struct {
	tasks    TaskSearcher
	sessions SessionService
	activity ActivityService
	logger   *slog.Logger
}

func registerTools(server *sdkmcp.Server, t *tools) {
	readOnly := &sdkmcp.ToolAnnotations{ReadOnlyHint: true}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_tasks",
		Description: "Search tasks by title or assignee. Returns summaries, not full tasks.",
		Annotations: readOnly,
	}, t.searchTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_task",
		Description: "Open a task for editing. Returns a session_id used by every editing tool.",
	}, t.openTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_task",
		Description: "Get the current state of an open task, including pending field writes and recent failure notifications.",
		Annotations: readOnly,
	}, t.getTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_field",
		Description: "Set status, priority, due_date or assignee. The value shows immediately and is reverted if the server rejects it.",
	}, t.setField)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_checklist_item",
		Description: "Append an item to the task checklist.",
	}, t.addChecklistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "toggle_checklist_item",
		Description: "Flip the done flag of a checklist item.",
	}, t.toggleChecklistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "rename_checklist_item",
		Description: "Change the title of a checklist item.",
	}, t.renameChecklistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "reorder_checklist",
		Description: "Move a checklist item to a new zero-based position.",
	}, t.reorderChecklist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_checklist_item",
		Description: "Remove a checklist item.",
	}, t.deleteChecklistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "attach_files",
		Description: "Upload files and attach them to the task. Files that fail are reported individually; the rest are attached.",
	}, t.attachFiles)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_attachment",
		Description: "Detach an attachment from the task.",
	}, t.removeAttachment)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_task",
		Description: "Close an editing session. Responses still in flight are discarded.",
	}, t.closeTask)

	if t.activity != nil {
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "get_recent_activity",
			Description: "List recent confirmed, rejected and reverted changes, newest first.",
			Annotations: readOnly,
		}, t.getRecentActivity)
	}
}

func (t *tools) searchTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchTasksInput) (*sdkmcp.CallToolResult, SearchTasksOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := t.tasks.Search(ctx, in.Query, limit)
	if err != nil {
		return nil, SearchTasksOutput{}, toolError(err)
	}
	if results == nil {
		results = []task.Summary{}
	}
	return nil, SearchTasksOutput{Tasks: results}, nil
}

func (t *tools) openTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in OpenTaskInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.sessions.Open(ctx, in.TaskID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	t.logger.Info("task opened", "session_id", sess.ID, "task_id", sess.TaskID)
	return nil, taskOutput(sess), nil
}

func (t *tools) getTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.session(ctx, in.SessionID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	return nil, taskOutput(sess), nil
}

func (t *tools) setField(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetFieldInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.session(ctx, in.SessionID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	if err := sess.Controller.SetField(ctx, field.Name(in.Field), in.Value); err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	return nil, taskOutput(sess), nil
}

func (t *tools) addChecklistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddChecklistItemInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.session(ctx, in.SessionID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	item, err := sess.Controller.AddChecklistItem(ctx, in.Title)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	out := taskOutput(sess)
	// The server assigns ids to new items; report the confirmed one.
	if n := len(out.Task.Checklist); n > 0 && item.Local {
		if last := out.Task.Checklist[n-1]; last.Title == item.Title && !last.Local {
			item = last
		}
	}
	out.Item = &item
	return nil, out, nil
}

func (t *tools) toggleChecklistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in ChecklistItemInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	return t.mutate(ctx, in.SessionID, func(c *task.Controller) error {
		return c.ToggleChecklistItem(ctx, in.ItemID)
	})
}

func (t *tools) renameChecklistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in RenameChecklistItemInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	return t.mutate(ctx, in.SessionID, func(c *task.Controller) error {
		return c.RenameChecklistItem(ctx, in.ItemID, in.Title)
	})
}

func (t *tools) reorderChecklist(ctx context.Context, _ *sdkmcp.CallToolRequest, in ReorderChecklistInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	return t.mutate(ctx, in.SessionID, func(c *task.Controller) error {
		return c.ReorderChecklist(ctx, in.ItemID, in.Position)
	})
}

func (t *tools) deleteChecklistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in ChecklistItemInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	return t.mutate(ctx, in.SessionID, func(c *task.Controller) error {
		return c.DeleteChecklistItem(ctx, in.ItemID)
	})
}

func (t *tools) removeAttachment(ctx context.Context, _ *sdkmcp.CallToolRequest, in RemoveAttachmentInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	return t.mutate(ctx, in.SessionID, func(c *task.Controller) error {
		return c.RemoveAttachment(ctx, in.AttachmentID)
	})
}

func (t *tools) attachFiles(ctx context.Context, _ *sdkmcp.CallToolRequest, in AttachFilesInput) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.session(ctx, in.SessionID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	files := make([]task.File, 0, len(in.Files))
	for _, f := range in.Files {
		content := []byte(f.Text)
		if f.Base64 != "" {
			content, err = base64.StdEncoding.DecodeString(f.Base64)
			if err != nil {
				return nil, TaskOutput{}, fmt.Errorf("file %s: invalid base64: %w", f.Name, err)
			}
		}
		files = append(files, task.File{Name: f.Name, Content: content})
	}

	result, err := sess.Controller.AttachFiles(ctx, files)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	out := taskOutput(sess)
	out.Attached = result.Attached
	for _, f := range result.Failed {
		msg := "upload failed"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out.Failed = append(out.Failed, FailedFile{Name: f.Name, Error: msg})
	}
	return nil, out, nil
}

func (t *tools) closeTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionInput) (*sdkmcp.CallToolResult, CloseTaskOutput, error) {
	id := t.sessionID(ctx, in.SessionID)
	if err := t.sessions.Close(ctx, id); err != nil {
		return nil, CloseTaskOutput{}, toolError(err)
	}
	return nil, CloseTaskOutput{SessionID: id, Closed: true}, nil
}

func (t *tools) getRecentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityInput) (*sdkmcp.CallToolResult, RecentActivityOutput, error) {
	opts := activity.ListActivityOptions{TaskID: in.TaskID, Limit: in.Limit}
	if in.SessionID != "" {
		opts.SessionID = &in.SessionID
	}
	if in.Type != "" {
		kind := activity.ActivityType(in.Type)
		opts.ActivityType = &kind
	}
	entries, err := t.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return nil, RecentActivityOutput{}, toolError(err)
	}
	out := RecentActivityOutput{Entries: make([]ActivityItem, 0, len(entries))}
	for _, e := range entries {
		item := ActivityItem{
			ID:        e.ID,
			TaskID:    e.TaskID,
			Type:      string(e.ActivityType),
			Summary:   e.Summary,
			Tick:      e.Tick,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if e.SessionID != nil {
			item.SessionID = *e.SessionID
		}
		out.Entries = append(out.Entries, item)
	}
	return nil, out, nil
}

func (t *tools) mutate(ctx context.Context, sessionID string, fn func(*task.Controller) error) (*sdkmcp.CallToolResult, TaskOutput, error) {
	sess, err := t.session(ctx, sessionID)
	if err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	if err := fn(sess.Controller); err != nil {
		return nil, TaskOutput{}, toolError(err)
	}
	return nil, taskOutput(sess), nil
}

func (t *tools) sessionID(ctx context.Context, arg string) string {
	if arg != "" {
		return arg
	}
	return getSessionID(ctx)
}

func (t *tools) session(ctx context.Context, arg string) (*session.Session, error) {
	id := t.sessionID(ctx, arg)
	if id == "" {
		return nil, fmt.Errorf("%w: session_id is required", session.ErrInvalidInput)
	}
	return t.sessions.Get(id)
}

func taskOutput(sess *session.Session) TaskOutput {
	return TaskOutput{
		SessionID:     sess.ID,
		Task:          sess.Controller.View(),
		Notifications: sess.Notifications(),
	}
}
