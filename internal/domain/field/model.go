package field

import "time"

// Name identifies an independently editable scalar property of a task.
type Name string

const (
	Status   Name = "status"
	Priority Name = "priority"
	DueDate  Name = "due_date"
	Assignee Name = "assignee"
)

// Names returns the scalar fields of a task in display order.
func Names() []Name {
	return []Name{Status, Priority, DueDate, Assignee}
}

// Valid reports whether n is a known task field.
func (n Name) Valid() bool {
	switch n {
	case Status, Priority, DueDate, Assignee:
		return true
	}
	return false
}

// Field is the reconciliation state of one scalar property.
type Field struct {
	Name          Name      `json:"name"`
	Displayed     string    `json:"displayed"`
	LastConfirmed string    `json:"last_confirmed"`
	SuppressUntil time.Time `json:"suppress_until,omitempty"`

	inFlight       int
	confirmedWrite uint64
	// displayOwner is the write whose optimistic value is displayed; zero when the
	// displayed value came from the server.
	displayOwner uint64
}

// MutationInFlight reports whether any request for this field is outstanding.
func (f Field) MutationInFlight() bool {
	return f.inFlight > 0
}

// Suppressed reports whether external refreshes are ignored at now.
func (f Field) Suppressed(now time.Time) bool {
	return f.MutationInFlight() || now.Before(f.SuppressUntil)
}

// Write identifies one optimistic apply. Seq grows monotonically across the store.
type Write struct {
	Field Name   `json:"field"`
	Seq   uint64 `json:"seq"`
}

// ConfirmOutcome reports what a confirmation changed.
type ConfirmOutcome struct {
	// Displayed is true when the confirmed value became the displayed value.
	Displayed bool
	// Stale is true when a newer confirmation had already been applied.
	Stale bool
}
