package task

import (
	"time"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
)

// State is the lifecycle state of a controller.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
	StateReleased State = "released"
)

// Snapshot is the server's view of a task. Fields lists only the fields it
// carries. Checklist is the complete server list when HasChecklist is set and is
// ignored by refreshes otherwise.
type Snapshot struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Fields       map[field.Name]string `json:"fields"`
	Checklist    []checklist.Item      `json:"checklist"`
	HasChecklist bool                  `json:"has_checklist"`
	Attachments  attachment.Snapshot   `json:"attachments"`
	Tick         int64                 `json:"tick"`
}

// FieldConfirmation is the server's answer to a field update.
type FieldConfirmation struct {
	Value string `json:"value"`
	Tick  int64  `json:"tick"`
}

// ChecklistConfirmation is the server's answer to a checklist replace.
type ChecklistConfirmation struct {
	Items []checklist.Item `json:"items"`
	Tick  int64            `json:"tick"`
}

// FieldResult is the outcome of one field request as seen by the controller.
type FieldResult struct {
	Value string
	Tick  int64
	Err   error
}

// File is a local file selected for upload.
type File struct {
	Name    string
	Content []byte
}

// FailedUpload describes one file of a batch that could not be uploaded.
type FailedUpload struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// BatchResult summarizes an attachment batch.
type BatchResult struct {
	Attached []attachment.Attachment `json:"attached"`
	Failed   []FailedUpload          `json:"failed,omitempty"`
}

// RefreshOutcome reports how an external refresh was handled.
type RefreshOutcome struct {
	Ignored            bool         `json:"ignored,omitempty"`
	Stale              bool         `json:"stale,omitempty"`
	Applied            []field.Name `json:"applied,omitempty"`
	Discarded          []field.Name `json:"discarded,omitempty"`
	ChecklistApplied   bool         `json:"checklist_applied"`
	AttachmentsApplied bool         `json:"attachments_applied"`
}

// View is the externally observable state of a task being edited.
type View struct {
	TaskID      string                  `json:"task_id"`
	Title       string                  `json:"title"`
	State       State                   `json:"state"`
	Tick        int64                   `json:"tick"`
	Fields      map[field.Name]string   `json:"fields"`
	Pending     []field.Name            `json:"pending,omitempty"`
	Checklist   []checklist.Item        `json:"checklist"`
	Attachments []attachment.Attachment `json:"attachments"`
}

// Task is the server-side record of a task.
type Task struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Fields      map[field.Name]string   `json:"fields"`
	Checklist   []checklist.Item        `json:"checklist"`
	Attachments []attachment.Attachment `json:"attachments"`
	Tick        int64                   `json:"tick"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// Snapshot returns the full snapshot of t.
func (t *Task) Snapshot() Snapshot {
	fields := make(map[field.Name]string, len(t.Fields))
	for k, v := range t.Fields {
		fields[k] = v
	}
	return Snapshot{
		ID:           t.ID,
		Title:        t.Title,
		Fields:       fields,
		Checklist:    checklist.Clone(t.Checklist),
		HasChecklist: true,
		Attachments:  attachment.FullSnapshot(t.Attachments),
		Tick:         t.Tick,
	}
}

// Summary is a lightweight view of a task for listings and search.
type Summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	Tick     int64  `json:"tick"`
}
