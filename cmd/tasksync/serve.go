package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/tasksync/internal/mcp"
	"github.com/rpggio/tasksync/internal/transport"
)

func serveCmd() *cobra.Command {
	var (
		host  string
		port  int
		noMCP bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task server over HTTP",
		Long: `Run the authoritative task server.

The REST API and event streams are served under /tasks and /media. The MCP
tools are served under /mcp unless --no-mcp is set. Set TASKSYNC_API_TOKEN to
require a bearer token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			// The server owns the database; a remote URL here would proxy to itself.
			cfg.Remote.URL = ""

			logger, closeLog, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var auth transport.TokenResolver
			if cfg.Server.APIToken != "" {
				auth = transport.StaticToken(cfg.Server.APIToken)
			} else {
				logger.Warn("authentication disabled; set TASKSYNC_API_TOKEN to enable it")
			}
			router := transport.NewServer(a.local, a.hub, transport.ServerOptions{
				Auth:           auth,
				MaxUploadBytes: cfg.Engine.MaxAttachmentBytes,
				Logger:         logger,
			})
			if !noMCP {
				mcpServer := mcp.NewServer(a.mcpConfig())
				mcpHandler := sdkmcp.NewStreamableHTTPHandler(
					func(r *http.Request) *sdkmcp.Server { return mcpServer },
					&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
				)
				router.Handle("/mcp", mcpHandler)
				router.Handle("/mcp/*", mcpHandler)
			}

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			return runHTTP(ctx, logger, &http.Server{Addr: addr, Handler: router})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "do not serve MCP tools under /mcp")
	return cmd
}

// runHTTP serves until ctx ends, then shuts down gracefully.
func runHTTP(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
