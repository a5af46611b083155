package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tasksync edits tasks optimistically: changes show immediately and are reverted if the server refuses them.

Core concepts:
- Task: title, four fields (status, priority, due_date, assignee), a checklist and attachments. Every write bumps its tick.
- Session: one open editor for one task. open_task returns a session_id; every editing tool takes it (or _meta.session_id).
- Pending: a field listed in task.pending has a write in flight or was written in the last couple of seconds. Refreshes from other editors do not overwrite it.
- Notifications: failures are reported once, in the tool error and in the next get_task.

Default workflow:
1) Find: search_tasks.
2) Open: open_task(task_id).
3) Edit: set_field, checklist tools, attach_files, remove_attachment.
4) Check: get_task to see changes made by other editors and any notifications.
5) Close: close_task when done.

Docs:
- tasksync://docs/index
- tasksync://docs/fields
- tasksync://docs/workflows/editing
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tasksync://docs/index",
		Name:        "docs_index",
		Title:       "tasksync docs index",
		Description: "Entry point for agent-facing docs.",
		Content: `# tasksync: Agent Docs Index

## Quick start

1. ` + "`search_tasks`" + ` to find a task.
2. ` + "`open_task`" + ` to start editing; keep the returned ` + "`session_id`" + `.
3. Edit with ` + "`set_field`" + `, the checklist tools and ` + "`attach_files`" + `.
4. ` + "`close_task`" + ` when done.

## Docs (read on demand)

- ` + "`tasksync://docs/fields`" + `: allowed field values.
- ` + "`tasksync://docs/workflows/editing`" + `: how optimistic edits, reverts and refreshes behave.
`,
	},
	{
		URI:         "tasksync://docs/fields",
		Name:        "docs_fields",
		Title:       "Task fields",
		Description: "Allowed values for status, priority, due_date and assignee.",
		Content: `# Task fields

| Field | Values |
|---|---|
| status | todo, in_progress, blocked, done (case and separators are normalized) |
| priority | Low, Medium, High, Urgent, or empty |
| due_date | YYYY-MM-DD, or empty |
| assignee | any text |

Values are normalized by the server. After ` + "`set_field`" + ` the task shows the stored form.
`,
	},
	{
		URI:         "tasksync://docs/workflows/editing",
		Name:        "docs_workflow_editing",
		Title:       "Workflow: editing a task",
		Description: "Optimistic edits, reverts, partial uploads and refreshes from other editors.",
		Content: `# Workflow: editing a task

## Fields

` + "`set_field`" + ` shows the new value at once. If the server rejects it the field returns to its
last confirmed value, unless you wrote the field again in the meantime: the newest write always wins.

A field you just wrote stays protected for a short window. Snapshots from other editors that arrive
in that window do not overwrite it.

## Checklist

Positions are zero-based. ` + "`reorder_checklist`" + ` clamps out-of-range positions. New items carry a
local id until the server confirms them; use the id returned in ` + "`item`" + `.

If the server refuses a checklist change, the whole checklist returns to the last confirmed list.

## Attachments

` + "`attach_files`" + ` uploads every file independently. Files that fail are listed under ` + "`failed`" + `; the
others are attached. The call only errors when no file could be uploaded.

## Refreshes

Changes by other editors arrive in the background. Call ` + "`get_task`" + ` to see them, together with any
failure notifications that have not been shown yet.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
