package activity

import "errors"

var (
	// ErrInvalidInput indicates an activity entry is missing required data.
	ErrInvalidInput = errors.New("invalid activity input")
)
