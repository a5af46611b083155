package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/config"
	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/session"
	"github.com/rpggio/tasksync/internal/mcp"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/sqlite"
	"github.com/rpggio/tasksync/internal/transport"
)

// app holds what every command needs: the task server, either local or remote,
// and the sessions editing it.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	local    *backend.Service
	remote   *transport.Client
	hub      *push.Hub
	activity *activity.Service
	sessions *session.Service
	closers  []func() error
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// newLogger builds the text logger. Stdio mode must keep stdout clean for
// JSON-RPC, so logs go to stderr there.
func newLogger(cfg config.Config, stdio bool) (*slog.Logger, func() error, error) {
	writer := io.Writer(os.Stdout)
	if stdio {
		writer = os.Stderr
	}
	closeFn := func() error { return nil }
	if logPath := os.Getenv("TASKSYNC_LOG_PATH"); logPath != "" {
		fileWriter, err := newLogFileWriter(logPath)
		if err != nil {
			return nil, nil, fmt.Errorf("log file error: %w", err)
		}
		writer = fileWriter
		closeFn = fileWriter.Close
	}
	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeFn, nil
}

// newApp wires the task server. With a remote URL configured every call goes
// over HTTP; otherwise the local database is opened.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	deps := session.Dependencies{}
	if cfg.Remote.URL != "" {
		a.remote = transport.NewClient(cfg.Remote.URL, cfg.Server.APIToken, &http.Client{}, logger)
		// Event streams are long-lived, so the timeout applies per request context
		// rather than on the http.Client.
		deps = session.Dependencies{
			Loader:     a.remote,
			Subscriber: a.remote,
			Mutator:    timeoutMutator{a.remote, cfg.Remote.Timeout},
			Uploader:   timeoutUploader{a.remote, cfg.Remote.Timeout},
		}
		logger.Info("using remote task server", "url", cfg.Remote.URL)
	} else {
		if err := ensureDBDir(cfg.DB.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.RunMigrations(); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		a.hub = push.NewHub(ctx, cfg.Push.Buffer, logger)
		a.local = backend.NewService(
			sqlite.NewTaskRepository(db),
			sqlite.NewMediaRepository(db),
			sqlite.NewSearchRepository(db),
			a.hub,
			backend.Options{MaxAttachmentBytes: cfg.Engine.MaxAttachmentBytes},
			logger,
		)
		a.activity = activity.NewService(sqlite.NewActivityRepository(db), logger)
		deps = session.Dependencies{
			Loader:     a.local,
			Subscriber: a.hub,
			Mutator:    a.local,
			Uploader:   a.local,
			Activities: a.activity,
		}
	}

	a.sessions = session.NewService(deps, session.Config{
		SuppressWindow:    cfg.Engine.SuppressWindow,
		UploadConcurrency: cfg.Engine.UploadConcurrency,
	}, logger)
	return a, nil
}

// Close ends every session and releases resources in reverse order.
func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.CloseAll(context.Background())
	}
	if a.hub != nil {
		a.hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// mcpConfig builds the MCP server configuration for the wired task server.
func (a *app) mcpConfig() mcp.Config {
	cfg := mcp.Config{
		Tasks:    a.local,
		Sessions: a.sessions,
		Version:  Version,
		Logger:   a.logger,
	}
	if a.remote != nil {
		cfg.Tasks = a.remote
	}
	if a.activity != nil {
		cfg.Activity = a.activity
	}
	return cfg
}
