package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and find tasks",
	}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskSearchCmd())
	cmd.AddCommand(taskShowCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var (
		fields []string
		items  []string
	)
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a task",
		Long: `Create a task.

Examples:
  tasksync task create "Ship release" --field priority=high --item "write notes"
  tasksync task create "Review" --field due_date=2026-11-02 --field assignee=sam`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := backend.CreateRequest{Title: args[0], Checklist: items}
			parsed, err := parseFields(fields)
			if err != nil {
				return err
			}
			req.Fields = parsed

			return withApp(cmd, func(ctx context.Context, a *app) error {
				var snap task.Snapshot
				if a.remote != nil {
					snap, err = a.remote.CreateTask(ctx, req)
				} else {
					var created *task.Task
					created, err = a.local.CreateTask(ctx, req)
					if err == nil {
						snap = created.Snapshot()
					}
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "field as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&items, "item", "i", nil, "checklist item (repeatable)")
	return cmd
}

func taskSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search tasks by title or assignee",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					results []task.Summary
					err     error
				)
				if a.remote != nil {
					results, err = a.remote.Search(ctx, query, limit)
				} else {
					results, err = a.local.Search(ctx, query, limit)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print the current snapshot of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					snap task.Snapshot
					err  error
				)
				if a.remote != nil {
					snap, err = a.remote.GetSnapshot(ctx, args[0])
				} else {
					snap, err = a.local.GetSnapshot(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
}

// withApp runs fn against the configured task server with logs on stderr.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func parseFields(pairs []string) (map[field.Name]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[field.Name]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --field %q: want name=value", pair)
		}
		n := field.Name(strings.TrimSpace(name))
		if !n.Valid() {
			return nil, fmt.Errorf("invalid --field %q: %w", pair, field.ErrUnknownField)
		}
		out[n] = value
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
