package main

import (
	"context"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/tasksync/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Long: `Serve the MCP tools over stdio.

By default the local database is opened directly. With --remote (or
TASKSYNC_REMOTE_URL) every change goes to a running "tasksync serve" and
changes by other editors arrive over its event stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if remote != "" {
				cfg.Remote.URL = remote
			}

			logger, closeLog, err := newLogger(cfg, true)
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

			server := mcp.NewServer(a.mcpConfig())

			logger.Info("starting stdio transport")
			// Run blocks until stdin closes or ctx is canceled.
			return server.Run(ctx, &sdkmcp.StdioTransport{})
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "URL of a running tasksync server")
	return cmd
}
