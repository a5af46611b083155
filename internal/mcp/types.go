package mcp

import (
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// SearchTasksInput is the input of search_tasks.
type SearchTasksInput struct {
	Query string `json:"query,omitempty" jsonschema:"full-text query over title and assignee; empty lists recent tasks"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

// SearchTasksOutput is the result of search_tasks.
type SearchTasksOutput struct {
	Tasks []task.Summary `json:"tasks"`
}

// OpenTaskInput is the input of open_task.
type OpenTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"id of the task to edit"`
}

// SessionInput identifies an editing session. SessionID may be omitted when it
// is sent as _meta.session_id.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
}

// SetFieldInput is the input of set_field.
type SetFieldInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	Field     string `json:"field" jsonschema:"one of status, priority, due_date, assignee"`
	Value     string `json:"value" jsonschema:"new value; due_date uses YYYY-MM-DD"`
}

// AddChecklistItemInput is the input of add_checklist_item.
type AddChecklistItemInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	Title     string `json:"title" jsonschema:"item title"`
}

// ChecklistItemInput targets one checklist item.
type ChecklistItemInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	ItemID    string `json:"item_id" jsonschema:"checklist item id"`
}

// RenameChecklistItemInput is the input of rename_checklist_item.
type RenameChecklistItemInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	ItemID    string `json:"item_id" jsonschema:"checklist item id"`
	Title     string `json:"title" jsonschema:"new title"`
}

// ReorderChecklistInput is the input of reorder_checklist.
type ReorderChecklistInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	ItemID    string `json:"item_id" jsonschema:"checklist item id"`
	Position  int    `json:"position" jsonschema:"zero-based target position; out of range values are clamped"`
}

// FileInput is one file of attach_files. Exactly one of Text and Base64 carries
// the content.
type FileInput struct {
	Name   string `json:"name" jsonschema:"file name"`
	Text   string `json:"text,omitempty" jsonschema:"file content as plain text"`
	Base64 string `json:"base64,omitempty" jsonschema:"file content, standard base64"`
}

// AttachFilesInput is the input of attach_files.
type AttachFilesInput struct {
	SessionID string      `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	Files     []FileInput `json:"files" jsonschema:"files to upload and attach"`
}

// RemoveAttachmentInput is the input of remove_attachment.
type RemoveAttachmentInput struct {
	SessionID    string `json:"session_id,omitempty" jsonschema:"editing session returned by open_task"`
	AttachmentID string `json:"attachment_id" jsonschema:"attachment id"`
}

// TaskOutput is the state of an editing session after a tool call. Item is set
// by add_checklist_item; Attached and Failed by attach_files.
type TaskOutput struct {
	SessionID     string                  `json:"session_id"`
	Task          task.View               `json:"task"`
	Notifications []task.Notification     `json:"notifications,omitempty"`
	Item          *checklist.Item         `json:"item,omitempty"`
	Attached      []attachment.Attachment `json:"attached,omitempty"`
	Failed        []FailedFile            `json:"failed,omitempty"`
}

// FailedFile is one file that could not be attached.
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// CloseTaskOutput is the result of close_task.
type CloseTaskOutput struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

// RecentActivityInput is the input of get_recent_activity.
type RecentActivityInput struct {
	TaskID    string `json:"task_id,omitempty" jsonschema:"only entries of this task"`
	SessionID string `json:"session_id,omitempty" jsonschema:"only entries of this editing session"`
	Type      string `json:"type,omitempty" jsonschema:"only entries of this type, such as field_rejected"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of entries"`
}

// ActivityItem is one journal entry.
type ActivityItem struct {
	ID        int64  `json:"id"`
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Tick      int64  `json:"tick"`
	CreatedAt string `json:"created_at"`
}

// RecentActivityOutput is the result of get_recent_activity.
type RecentActivityOutput struct {
	Entries []ActivityItem `json:"entries"`
}
