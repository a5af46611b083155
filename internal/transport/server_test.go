package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/sqlite"
)

const testToken = "secret"

type harness struct {
	server  *httptest.Server
	backend *backend.Service
	hub     *push.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	hub := push.NewHub(ctx, push.DefaultBuffer, nil)
	svc := backend.NewService(
		sqlite.NewTaskRepository(db),
		sqlite.NewMediaRepository(db),
		sqlite.NewSearchRepository(db),
		hub,
		backend.Options{MaxAttachmentBytes: 16},
		nil,
	)
	router := NewServer(svc, hub, ServerOptions{Auth: StaticToken(testToken), MaxUploadBytes: 32})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &harness{server: srv, backend: svc, hub: hub}
}

func (h *harness) createTask(t *testing.T, title string) *task.Task {
	t.Helper()
	created, err := h.backend.CreateTask(context.Background(), backend.CreateRequest{
		Title:     title,
		Checklist: []string{"draft", "review"},
	})
	require.NoError(t, err)
	return created
}

func (h *harness) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_Health(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequiresToken(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[ErrorBody](t, resp)
	require.Equal(t, codeUnauthorized, body.Code)
}

func TestServer_CreateAndGet(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodPost, "/tasks", backend.CreateRequest{Title: "Ship it"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[task.Snapshot](t, resp)
	require.Equal(t, "Ship it", created.Title)
	require.Equal(t, attachment.Full, created.Attachments.Kind)

	resp = h.request(t, http.MethodGet, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[task.Snapshot](t, resp)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "todo", got.Fields[field.Status])

	resp = h.request(t, http.MethodGet, "/tasks/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, codeTaskNotFound, decodeBody[ErrorBody](t, resp).Code)
}

func TestServer_CreateRejectsUnknownFields(t *testing.T) {
	h := newHarness(t)
	resp := h.request(t, http.MethodPost, "/tasks", map[string]any{"title": "x", "owner": "me"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, codeBadRequest, decodeBody[ErrorBody](t, resp).Code)
}

func TestServer_UpdateField(t *testing.T) {
	h := newHarness(t)
	created := h.createTask(t, "Fields")

	resp := h.request(t, http.MethodPut, "/tasks/"+created.ID+"/fields/status", FieldRequest{Value: "In Progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conf := decodeBody[task.FieldConfirmation](t, resp)
	require.Equal(t, "in_progress", conf.Value)
	require.Greater(t, conf.Tick, created.Tick)

	resp = h.request(t, http.MethodPut, "/tasks/"+created.ID+"/fields/status", FieldRequest{Value: "someday"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, codeInvalidValue, decodeBody[ErrorBody](t, resp).Code)

	resp = h.request(t, http.MethodPut, "/tasks/"+created.ID+"/fields/color", FieldRequest{Value: "red"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UploadLimits(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/media?filename=big.bin", strings.NewReader(strings.Repeat("x", 64)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Equal(t, codeTooLarge, decodeBody[ErrorBody](t, resp).Code)
}

func TestServer_MediaRoundTrip(t *testing.T) {
	h := newHarness(t)
	created := h.createTask(t, "Media")

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/media?filename=a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	up := decodeBody[attachment.Upload](t, resp)
	require.True(t, strings.HasPrefix(string(up.Ref), mediaScheme))

	resp = h.request(t, http.MethodPut, "/tasks/"+created.ID+"/attachments", AttachmentsRequest{Refs: []attachment.MediaRef{up.Ref}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[attachment.Snapshot](t, resp)
	require.Equal(t, attachment.Partial, snap.Kind)
	require.Len(t, snap.Entries, 1)

	resp = h.request(t, http.MethodGet, "/media/"+mediaID(up.Ref), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var content bytes.Buffer
	_, err = content.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", content.String())

	resp = h.request(t, http.MethodDelete, "/media/"+mediaID(up.Ref), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, codeMediaInUse, decodeBody[ErrorBody](t, resp).Code)

	resp = h.request(t, http.MethodPut, "/tasks/"+created.ID+"/attachments", AttachmentsRequest{Refs: []attachment.MediaRef{}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.request(t, http.MethodDelete, "/media/"+mediaID(up.Ref), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.request(t, http.MethodGet, "/media/"+mediaID(up.Ref), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Search(t *testing.T) {
	h := newHarness(t)
	h.createTask(t, "Quarterly report")
	h.createTask(t, "Team offsite")

	resp := h.request(t, http.MethodGet, "/tasks?q=quart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeBody[[]task.Summary](t, resp)
	require.Len(t, results, 1)
	require.Equal(t, "Quarterly report", results[0].Title)

	resp = h.request(t, http.MethodGet, "/tasks?limit=-1", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_EventStream(t *testing.T) {
	h := newHarness(t)
	created := h.createTask(t, "Stream")

	resp := h.request(t, http.MethodGet, "/tasks/"+created.ID+"/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), sseContentType))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan push.Event, 1)
	go readEvents(ctx, resp.Body, out, nilLogger())

	_, err := h.backend.UpdateField(context.Background(), created.ID, field.Status, "done")
	require.NoError(t, err)

	select {
	case ev := <-out:
		require.Equal(t, created.ID, ev.TaskID)
		require.Equal(t, "done", ev.Snapshot.Fields[field.Status])
		require.True(t, ev.Snapshot.HasChecklist)
		require.Len(t, ev.Snapshot.Checklist, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestReadEvents(t *testing.T) {
	stream := ": connected\n\n" +
		"event: snapshot\ndata: {\"task_id\":\"t1\",\"snapshot\":{\"id\":\"t1\",\"tick\":3}}\n\n" +
		": ping\n\n" +
		"event: other\ndata: {}\n\n" +
		"data: not json\n\n"

	out := make(chan push.Event, 4)
	readEvents(context.Background(), strings.NewReader(stream), out, nilLogger())
	close(out)

	var got []push.Event
	for ev := range out {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	require.Equal(t, "t1", got[0].TaskID)
	require.Equal(t, int64(3), got[0].Snapshot.Tick)
}
