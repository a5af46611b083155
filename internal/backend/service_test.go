package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/sqlite"
)

func newService(t *testing.T, hub *push.Hub) *backend.Service {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	var pub backend.Publisher
	if hub != nil {
		pub = hub
	}
	return backend.NewService(
		sqlite.NewTaskRepository(db),
		sqlite.NewMediaRepository(db),
		sqlite.NewSearchRepository(db),
		pub,
		backend.Options{MaxAttachmentBytes: 8},
		nil,
	)
}

func TestService_CreateAndSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	created, err := svc.CreateTask(ctx, backend.CreateRequest{
		Title:     "  Launch  ",
		Fields:    map[field.Name]string{field.Priority: "high"},
		Checklist: []string{"draft", "review"},
	})
	require.NoError(t, err)
	require.Equal(t, "Launch", created.Title)

	snap, err := svc.GetSnapshot(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "todo", snap.Fields[field.Status])
	require.Equal(t, "High", snap.Fields[field.Priority])
	require.Len(t, snap.Checklist, 2)
	require.False(t, snap.Checklist[0].Local)
	require.Equal(t, attachment.Full, snap.Attachments.Kind)

	_, err = svc.CreateTask(ctx, backend.CreateRequest{Title: " "})
	require.ErrorIs(t, err, backend.ErrInvalidValue)

	_, err = svc.GetSnapshot(ctx, "missing")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestService_UpdateFieldPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := push.NewHub(ctx, 4, nil)
	svc := newService(t, hub)

	created, err := svc.CreateTask(ctx, backend.CreateRequest{Title: "Launch"})
	require.NoError(t, err)
	events, unsubscribe, err := hub.Subscribe(ctx, created.ID)
	require.NoError(t, err)
	defer unsubscribe()

	conf, err := svc.UpdateField(ctx, created.ID, field.Status, "In Progress")
	require.NoError(t, err)
	require.Equal(t, "in_progress", conf.Value)
	require.Equal(t, int64(2), conf.Tick)

	select {
	case ev := <-events:
		require.Equal(t, int64(2), ev.Snapshot.Tick)
		require.Equal(t, "in_progress", ev.Snapshot.Fields[field.Status])
	case <-time.After(time.Second):
		t.Fatal("no push event")
	}

	_, err = svc.UpdateField(ctx, created.ID, field.DueDate, "next week")
	require.ErrorIs(t, err, backend.ErrInvalidValue)
	_, err = svc.UpdateField(ctx, "missing", field.Status, "done")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestService_UploadAndAttach(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	created, err := svc.CreateTask(ctx, backend.CreateRequest{Title: "Launch"})
	require.NoError(t, err)

	up, err := svc.Upload(ctx, task.File{Name: "a.png", Content: []byte("abc")})
	require.NoError(t, err)
	require.True(t, up.OK())
	require.Equal(t, int64(3), up.Size)

	_, err = svc.Upload(ctx, task.File{Name: "big.bin", Content: make([]byte, 9)})
	require.ErrorIs(t, err, backend.ErrTooLarge)
	_, err = svc.Upload(ctx, task.File{Name: "", Content: []byte("x")})
	require.ErrorIs(t, err, backend.ErrInvalidValue)

	snap, err := svc.SetAttachmentList(ctx, created.ID, []attachment.MediaRef{up.Ref})
	require.NoError(t, err)
	require.Equal(t, attachment.Partial, snap.Kind)
	require.Len(t, snap.Entries, 1)
	require.NotEmpty(t, snap.Entries[0].ID)
	require.Empty(t, snap.Entries[0].Title, "partial snapshots carry no metadata")

	full, err := svc.GetSnapshot(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a.png", full.Attachments.Entries[0].Title)

	_, err = svc.SetAttachmentList(ctx, created.ID, []attachment.MediaRef{"media://unknown"})
	require.ErrorIs(t, err, backend.ErrMediaNotFound)
	_, err = svc.SetAttachmentList(ctx, created.ID, []attachment.MediaRef{"pending://x"})
	require.ErrorIs(t, err, backend.ErrMediaNotFound)

	require.ErrorIs(t, svc.DeleteMedia(ctx, up.Ref), backend.ErrMediaInUse)
	_, err = svc.SetAttachmentList(ctx, created.ID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMedia(ctx, up.Ref))
	require.ErrorIs(t, svc.DeleteMedia(ctx, up.Ref), backend.ErrMediaNotFound)
}

func TestService_SetChecklistAssignsIDs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	created, err := svc.CreateTask(ctx, backend.CreateRequest{Title: "Launch", Checklist: []string{"one"}})
	require.NoError(t, err)

	items, added, err := checklist.Append(created.Checklist, "two")
	require.NoError(t, err)
	items, err = checklist.Reorder(items, added.ID, 0)
	require.NoError(t, err)

	conf, err := svc.SetChecklist(ctx, created.ID, items)
	require.NoError(t, err)
	require.Len(t, conf.Items, 2)
	require.Equal(t, "two", conf.Items[0].Title)
	require.NotEqual(t, added.ID, conf.Items[0].ID)
	require.False(t, conf.Items[0].Local)
	require.Equal(t, created.Checklist[0].ID, conf.Items[1].ID)
	require.NoError(t, checklist.Validate(conf.Items))

	snap, err := svc.GetSnapshot(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, conf.Items, snap.Checklist)

	_, err = svc.SetChecklist(ctx, created.ID, []checklist.Item{{ID: "a", Title: " "}})
	require.ErrorIs(t, err, backend.ErrInvalidValue)
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	_, err := svc.CreateTask(ctx, backend.CreateRequest{Title: "Quarterly planning"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, backend.CreateRequest{Title: "Release notes"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "plan", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Quarterly planning", results[0].Title)
}
