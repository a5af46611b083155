package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/session"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	cause        error
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

type errorCode struct {
	err  error
	code string
	hint string
}

var errorCodes = []errorCode{
	{session.ErrSessionNotFound, "SESSION_NOT_FOUND", "Call open_task first"},
	{session.ErrTaskNotFound, "TASK_NOT_FOUND", "Check ID spelling or use search_tasks"},
	{task.ErrTaskNotFound, "TASK_NOT_FOUND", "Check ID spelling or use search_tasks"},
	{task.ErrReleased, "SESSION_CLOSED", "Open the task again"},
	{task.ErrUploadPending, "UPLOAD_PENDING", "Wait for the upload to finish"},
	{task.ErrBatchFailed, "UPLOADS_FAILED", "Check file sizes and retry"},
	{backend.ErrInvalidValue, "INVALID_VALUE", "Check allowed values in tasksync://docs/fields"},
	{backend.ErrTooLarge, "TOO_LARGE", "Attach a smaller file"},
	{task.ErrMutationRejected, "REJECTED", "The change was reverted; check the value and retry"},
	{field.ErrUnknownField, "UNKNOWN_FIELD", "Use status, priority, due_date or assignee"},
	{checklist.ErrItemNotFound, "ITEM_NOT_FOUND", "Call get_task for current item ids"},
	{checklist.ErrEmptyTitle, "INVALID_VALUE", "Provide a title"},
	{attachment.ErrAttachmentNotFound, "ATTACHMENT_NOT_FOUND", "Call get_task for current attachment ids"},
	{session.ErrInvalidInput, "INVALID_INPUT", ""},
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return &APIError{Code: c.code, Message: err.Error(), RecoveryHint: c.hint, cause: err}
		}
	}
	return nil
}

// toolError returns the error reported to the caller of a tool.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
