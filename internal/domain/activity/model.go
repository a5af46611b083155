package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeFieldConfirmed      ActivityType = "field_confirmed"
	TypeFieldRejected       ActivityType = "field_rejected"
	TypeRefreshDiscarded    ActivityType = "refresh_discarded"
	TypeChecklistPersisted  ActivityType = "checklist_persisted"
	TypeChecklistReverted   ActivityType = "checklist_reverted"
	TypeAttachmentsMerged   ActivityType = "attachments_merged"
	TypeAttachmentsReverted ActivityType = "attachments_reverted"
	TypeUploadFailed        ActivityType = "upload_failed"
	TypeMediaDeleteFailed   ActivityType = "media_delete_failed"
	TypeSessionOpened       ActivityType = "session_opened"
	TypeSessionClosed       ActivityType = "session_closed"
)

// ActivityEntry represents an event in the mutation journal
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TaskID       string       `json:"task_id"`
	SessionID    *string      `json:"session_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	Tick         int64        `json:"tick"`
}
