package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/session"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// TaskSearcher finds tasks to open.
type TaskSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]task.Summary, error)
}

// SessionService defines session operations needed by MCP.
type SessionService interface {
	Open(ctx context.Context, taskID string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	Close(ctx context.Context, id string) error
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Config contains server configuration. Activity is optional; without it the
// get_recent_activity tool is not offered.
type Config struct {
	Tasks    TaskSearcher
	Sessions SessionService
	Activity ActivityService
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tasksync",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{
		tasks:    cfg.Tasks,
		sessions: cfg.Sessions,
		activity: cfg.Activity,
		logger:   cfg.Logger,
	})

	return server
}
