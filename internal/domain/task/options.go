package task

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultUploadConcurrency bounds parallel uploads when Options leaves it unset.
const DefaultUploadConcurrency = 4

// Options configures a Controller.
type Options struct {
	TaskID    string
	SessionID string

	Mutator    Mutator
	Uploader   Uploader
	Notifier   Notifier
	Activities ActivityLogger

	Clock             clockwork.Clock
	SuppressWindow    time.Duration
	UploadConcurrency int
	Logger            *slog.Logger
}
