package attachment_test

import (
	"errors"
	"testing"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/stretchr/testify/require"
)

func canonical(id, ref, title string, size int64) attachment.Attachment {
	return attachment.Attachment{ID: id, Ref: attachment.MediaRef(ref), Title: title, Size: size}
}

func TestMerge_ThreeFilesOneFails(t *testing.T) {
	a := attachment.NewPlaceholder("a.png", 10)
	b := attachment.NewPlaceholder("b.pdf", 20)
	c := attachment.NewPlaceholder("c.txt", 30)
	placeholders := []attachment.Attachment{a, b, c}

	uploads := []attachment.Upload{
		{PlaceholderID: a.ID, Ref: "media://a", Filename: "a.png", Size: 1024},
		{PlaceholderID: b.ID, Err: errors.New("boom")},
		{PlaceholderID: c.ID, Ref: "media://c", Filename: "c.txt", Size: 2048},
	}
	snap := attachment.Snapshot{Kind: attachment.Partial, Entries: []attachment.Entry{
		{ID: "att-a", Ref: "media://a"},
		{ID: "att-c", Ref: "media://c"},
	}}

	got := attachment.Merge(placeholders, placeholders, uploads, snap)
	require.Equal(t, []attachment.Attachment{
		canonical("att-a", "media://a", "a.png", 1024),
		canonical("att-c", "media://c", "c.txt", 2048),
	}, got)
}

func TestMerge_Idempotent(t *testing.T) {
	existing := canonical("att-1", "media://1", "notes.md", 99)
	p1 := attachment.NewPlaceholder("one.png", 1)
	p2 := attachment.NewPlaceholder("two.png", 2)
	current := []attachment.Attachment{existing, p1, p2}
	placeholders := []attachment.Attachment{p1, p2}
	uploads := []attachment.Upload{
		{PlaceholderID: p1.ID, Ref: "media://p1", Filename: "one.png", Size: 11},
		{PlaceholderID: p2.ID, Ref: "media://p2", Filename: "two.png", Size: 22},
	}
	// The server names only one of the new entries.
	snap := attachment.Snapshot{Kind: attachment.Partial, Entries: []attachment.Entry{
		{ID: "att-1", Ref: "media://1"},
		{ID: "att-p2", Ref: "media://p2"},
	}}

	first := attachment.Merge(current, placeholders, uploads, snap)
	second := attachment.Merge(current, placeholders, uploads, snap)
	require.Equal(t, first, second)

	again := attachment.Merge(first, placeholders, uploads, snap)
	require.Equal(t, first, again)
	require.Len(t, again, 3)
}

func TestMerge_BackfillsPartialSnapshot(t *testing.T) {
	current := []attachment.Attachment{canonical("att-1", "media://1", "report.pdf", 4096)}
	snap := attachment.Snapshot{Kind: attachment.Partial, Entries: []attachment.Entry{
		{ID: "att-1", Ref: "media://1"},
	}}

	got := attachment.Merge(current, nil, nil, snap)
	require.Equal(t, current, got)
}

func TestMerge_PrefersServerMetadataWhenPresent(t *testing.T) {
	current := []attachment.Attachment{canonical("att-1", "media://1", "old.pdf", 1)}
	snap := attachment.Snapshot{Kind: attachment.Partial, Entries: []attachment.Entry{
		{ID: "att-1", Ref: "media://1", Title: "renamed.pdf", Size: 5},
	}}

	got := attachment.Merge(current, nil, nil, snap)
	require.Equal(t, "renamed.pdf", got[0].Title)
	require.Equal(t, int64(5), got[0].Size)
}

func TestMerge_KeepsLocalEntryMissingFromPartialSnapshot(t *testing.T) {
	current := []attachment.Attachment{canonical("att-1", "media://1", "a", 1)}
	got := attachment.Merge(current, nil, nil, attachment.Snapshot{Kind: attachment.Partial})
	require.Equal(t, current, got)
}

func TestMerge_FullSnapshotDropsUnlisted(t *testing.T) {
	current := []attachment.Attachment{
		canonical("att-1", "media://1", "a", 1),
		canonical("att-2", "media://2", "b", 2),
	}
	snap := attachment.Snapshot{Kind: attachment.Full, Entries: []attachment.Entry{
		{ID: "att-2", Ref: "media://2", Title: "b", Size: 2},
	}}

	got := attachment.Merge(current, nil, nil, snap)
	require.Equal(t, []attachment.Attachment{canonical("att-2", "media://2", "b", 2)}, got)
}

func TestMerge_KeepsOtherBatchPlaceholders(t *testing.T) {
	other := attachment.NewPlaceholder("slow.mov", 500)
	mine := attachment.NewPlaceholder("fast.png", 5)
	current := []attachment.Attachment{other, mine}
	uploads := []attachment.Upload{{PlaceholderID: mine.ID, Ref: "media://fast", Filename: "fast.png", Size: 5}}

	got := attachment.Merge(current, []attachment.Attachment{mine}, uploads, attachment.Snapshot{Kind: attachment.Partial})
	require.Len(t, got, 2)
	require.Equal(t, other, got[0])
	require.Equal(t, attachment.MediaRef("media://fast"), got[1].Ref)
	require.False(t, got[1].Placeholder)
}

func TestMerge_NoDuplicateWhenRefAlreadyPresent(t *testing.T) {
	p := attachment.NewPlaceholder("dup.png", 3)
	current := []attachment.Attachment{canonical("att-9", "media://dup", "dup.png", 3), p}
	uploads := []attachment.Upload{{PlaceholderID: p.ID, Ref: "media://dup", Filename: "dup.png", Size: 3}}

	got := attachment.Merge(current, []attachment.Attachment{p}, uploads, attachment.Snapshot{Kind: attachment.Partial})
	require.Len(t, got, 1)
	require.Equal(t, "att-9", got[0].ID)
}

func TestReconcile_FullSnapshotBackfillsAndKeepsPlaceholders(t *testing.T) {
	p := attachment.NewPlaceholder("uploading.bin", 7)
	current := []attachment.Attachment{canonical("att-1", "media://1", "a.txt", 10), p}
	snap := attachment.Snapshot{Kind: attachment.Full, Entries: []attachment.Entry{
		{ID: "att-1", Ref: "media://1"},
		{ID: "att-2", Ref: "media://2", Title: "b.txt", Size: 20},
	}}

	got := attachment.Reconcile(current, snap)
	require.Equal(t, []attachment.Attachment{
		canonical("att-1", "media://1", "a.txt", 10),
		canonical("att-2", "media://2", "b.txt", 20),
		p,
	}, got)
}

func TestRemoveAndRefs(t *testing.T) {
	p := attachment.NewPlaceholder("x", 1)
	list := []attachment.Attachment{canonical("a", "media://a", "a", 1), p, canonical("b", "media://b", "b", 2)}

	require.Equal(t, []attachment.MediaRef{"media://a", "media://b"}, attachment.Refs(list))

	rest, removed, err := attachment.Remove(list, "a")
	require.NoError(t, err)
	require.Equal(t, "a", removed.ID)
	require.Len(t, rest, 2)

	_, _, err = attachment.Remove(list, "missing")
	require.ErrorIs(t, err, attachment.ErrAttachmentNotFound)
}

func TestSummary(t *testing.T) {
	ok, failed := attachment.Summary([]attachment.Upload{
		{Ref: "media://1"},
		{Err: errors.New("x")},
		{Ref: "media://2"},
	})
	require.Equal(t, 2, ok)
	require.Equal(t, 1, failed)
}
