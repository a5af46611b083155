package task

import "errors"

var (
	// ErrTaskNotFound indicates the task doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotLoaded indicates the controller has not received its initial snapshot.
	ErrNotLoaded = errors.New("task not loaded")
	// ErrAlreadyLoaded indicates Load was called on a loaded controller.
	ErrAlreadyLoaded = errors.New("task already loaded")
	// ErrReleased indicates the editing session was closed.
	ErrReleased = errors.New("task released")
	// ErrSnapshotMismatch indicates a snapshot describes a different task.
	ErrSnapshotMismatch = errors.New("snapshot belongs to another task")
	// ErrMutationRejected indicates the server refused a mutation; local state was reverted.
	ErrMutationRejected = errors.New("mutation rejected")
	// ErrBatchFailed indicates no file of an upload batch could be attached.
	ErrBatchFailed = errors.New("attachment batch failed")
	// ErrUploadPending indicates the attachment is still uploading.
	ErrUploadPending = errors.New("attachment upload still pending")
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errors.New("invalid task input")
)
