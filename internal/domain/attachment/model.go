package attachment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const placeholderScheme = "pending://"

// MediaRef points at a stored media object. Placeholder refs stand in for uploads
// that have not completed.
type MediaRef string

// IsPlaceholder reports whether the ref was issued locally for an in-flight upload.
func (r MediaRef) IsPlaceholder() bool {
	return strings.HasPrefix(string(r), placeholderScheme)
}

// Attachment is one entry of a task's attachment collection.
type Attachment struct {
	ID          string   `json:"id"`
	Ref         MediaRef `json:"ref"`
	Title       string   `json:"title"`
	Size        int64    `json:"size"`
	Placeholder bool     `json:"placeholder,omitempty"`
}

// NewPlaceholder creates the local entry shown while filename is uploading.
func NewPlaceholder(filename string, size int64) Attachment {
	id := uuid.NewString()
	return Attachment{
		ID:          id,
		Ref:         MediaRef(placeholderScheme + id),
		Title:       filename,
		Size:        size,
		Placeholder: true,
	}
}

// Upload is the outcome of uploading the file behind one placeholder.
type Upload struct {
	PlaceholderID string   `json:"placeholder_id"`
	Ref           MediaRef `json:"ref"`
	Filename      string   `json:"filename"`
	Size          int64    `json:"size"`
	Err           error    `json:"-"`
}

// OK reports whether the upload produced a canonical ref.
func (u Upload) OK() bool {
	return u.Err == nil && u.Ref != "" && !u.Ref.IsPlaceholder()
}

// SnapshotKind tells the merge how much of a server snapshot can be trusted.
type SnapshotKind int

const (
	// Partial snapshots confirm identity and membership only; title and size may be
	// missing.
	Partial SnapshotKind = iota
	// Full snapshots carry complete metadata and authoritative membership.
	Full
)

func (k SnapshotKind) String() string {
	if k == Full {
		return "full"
	}
	return "partial"
}

func (k SnapshotKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SnapshotKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "full":
		*k = Full
	case "partial", "":
		*k = Partial
	default:
		return fmt.Errorf("unknown snapshot kind %q", b)
	}
	return nil
}

// Entry is one attachment as reported by the server.
type Entry struct {
	ID    string   `json:"id"`
	Ref   MediaRef `json:"ref"`
	Title string   `json:"title,omitempty"`
	Size  int64    `json:"size,omitempty"`
}

// Snapshot is the server's view of a task's attachment list.
type Snapshot struct {
	Kind    SnapshotKind `json:"kind"`
	Entries []Entry      `json:"entries"`
}

// FullSnapshot builds a full snapshot from canonical attachments.
func FullSnapshot(list []Attachment) Snapshot {
	snap := Snapshot{Kind: Full, Entries: make([]Entry, 0, len(list))}
	for _, a := range list {
		if a.Placeholder {
			continue
		}
		snap.Entries = append(snap.Entries, Entry{ID: a.ID, Ref: a.Ref, Title: a.Title, Size: a.Size})
	}
	return snap
}

func (s Snapshot) lookup() map[MediaRef]Entry {
	out := make(map[MediaRef]Entry, len(s.Entries))
	for _, e := range s.Entries {
		out[e.Ref] = e
	}
	return out
}

// Media is a stored media object.
type Media struct {
	Ref       MediaRef  `json:"ref"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	Content   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
