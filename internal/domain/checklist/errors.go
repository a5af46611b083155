package checklist

import "errors"

var (
	// ErrItemNotFound indicates the item is not in the checklist.
	ErrItemNotFound = errors.New("checklist item not found")
	// ErrInvariant indicates sort orders are not a dense zero-based sequence.
	ErrInvariant = errors.New("checklist sort order invariant violated")
	// ErrEmptyTitle indicates an item title is blank.
	ErrEmptyTitle = errors.New("checklist item title required")
)
