package field

import "errors"

var (
	// ErrUnknownField indicates the field name is not tracked by the store.
	ErrUnknownField = errors.New("unknown field")
)
