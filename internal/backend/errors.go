package backend

import "errors"

var (
	// ErrInvalidValue indicates a field value or payload failed validation.
	ErrInvalidValue = errors.New("invalid value")
	// ErrMediaNotFound indicates a ref that names no stored media.
	ErrMediaNotFound = errors.New("media not found")
	// ErrMediaInUse indicates media still attached to a task.
	ErrMediaInUse = errors.New("media still attached")
	// ErrTooLarge indicates an upload above the size limit.
	ErrTooLarge = errors.New("attachment too large")
)
