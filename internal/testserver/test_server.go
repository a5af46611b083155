package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/sqlite"
	"github.com/rpggio/tasksync/internal/transport"
)

// TestServer is a task server on an httptest listener backed by an in-memory
// database.
type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Backend *backend.Service
	Hub     *push.Hub
	Token   string
}

// Options tunes the test server.
type Options struct {
	MaxAttachmentBytes int64
}

// New starts a server that requires token.
func New(t *testing.T, token string, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	ctx, cancel := context.WithCancel(context.Background())
	hub := push.NewHub(ctx, push.DefaultBuffer, nil)
	svc := backend.NewService(
		sqlite.NewTaskRepository(db),
		sqlite.NewMediaRepository(db),
		sqlite.NewSearchRepository(db),
		hub,
		backend.Options{MaxAttachmentBytes: opts.MaxAttachmentBytes},
		nil,
	)
	router := transport.NewServer(svc, hub, transport.ServerOptions{
		Auth:           transport.StaticToken(token),
		MaxUploadBytes: opts.MaxAttachmentBytes,
	})
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		// Closing the hub ends open event streams so the server can drain.
		cancel()
		hub.Close()
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:  server,
		DB:      db,
		Backend: svc,
		Hub:     hub,
		Token:   token,
	}
}

// Client returns a client authenticated with the server token.
func (ts *TestServer) Client() *transport.Client {
	return transport.NewClient(ts.Server.URL, ts.Token, ts.Server.Client(), nil)
}
