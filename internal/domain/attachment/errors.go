package attachment

import "errors"

var (
	// ErrAttachmentNotFound indicates the attachment is not in the collection.
	ErrAttachmentNotFound = errors.New("attachment not found")
)
