package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/repository"
)

// fieldColumns maps editable fields to task columns.
var fieldColumns = map[field.Name]string{
	field.Status:   "status",
	field.Priority: "priority",
	field.DueDate:  "due_date",
	field.Assignee: "assignee",
}

// TaskRepository implements repository.TaskRepository for SQLite
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task with its checklist and attachments
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	status := t.Fields[field.Status]
	if status == "" {
		status = "todo"
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO tasks (
				id, title, status, priority, due_date, assignee,
				tick, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			t.ID,
			t.Title,
			status,
			t.Fields[field.Priority],
			t.Fields[field.DueDate],
			t.Fields[field.Assignee],
			t.Tick,
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := insertChecklist(ctx, tx, t.ID, t.Checklist); err != nil {
			return err
		}
		refs := make([]attachment.MediaRef, 0, len(t.Attachments))
		for _, a := range t.Attachments {
			refs = append(refs, a.Ref)
		}
		return replaceAttachments(ctx, tx, t.ID, refs)
	})
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	query := `
		SELECT
			id, title, status, priority, due_date, assignee,
			tick, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	var t task.Task
	var status, priority, dueDate, assignee string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&status,
		&priority,
		&dueDate,
		&assignee,
		&t.Tick,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	t.Fields = map[field.Name]string{
		field.Status:   status,
		field.Priority: priority,
		field.DueDate:  dueDate,
		field.Assignee: assignee,
	}

	if t.Checklist, err = r.checklist(ctx, id); err != nil {
		return nil, err
	}
	if t.Attachments, err = r.attachments(ctx, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateField stores one field value and bumps the task tick
func (r *TaskRepository) UpdateField(ctx context.Context, id string, name field.Name, value string) (int64, error) {
	column, ok := fieldColumns[name]
	if !ok {
		return 0, repository.ErrInvalidInput
	}
	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s = ?, tick = tick + 1, updated_at = ?
		WHERE id = ?
		RETURNING tick
	`, column)

	var tick int64
	err := r.db.QueryRowContext(ctx, query, value, time.Now().UTC(), id).Scan(&tick)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		if isCheckViolation(err) {
			return 0, repository.ErrInvalidInput
		}
		return 0, fmt.Errorf("failed to update task field: %w", err)
	}
	return tick, nil
}

// ReplaceChecklist stores items as the complete checklist of the task
func (r *TaskRepository) ReplaceChecklist(ctx context.Context, id string, items []checklist.Item) (int64, error) {
	var tick int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if tick, err = bumpTick(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_items WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear checklist: %w", err)
		}
		return insertChecklist(ctx, tx, id, items)
	})
	return tick, err
}

// ReplaceAttachments stores refs as the complete attachment list of the task.
// Refs already attached keep their attachment id.
func (r *TaskRepository) ReplaceAttachments(ctx context.Context, id string, refs []attachment.MediaRef) (int64, error) {
	var tick int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if tick, err = bumpTick(ctx, tx, id); err != nil {
			return err
		}
		return replaceAttachments(ctx, tx, id, refs)
	})
	return tick, err
}

func (r *TaskRepository) checklist(ctx context.Context, taskID string) ([]checklist.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, done, sort_order
		FROM checklist_items
		WHERE task_id = ?
		ORDER BY sort_order ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}
	defer rows.Close()

	items := []checklist.Item{}
	for rows.Next() {
		var it checklist.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Done, &it.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklist rows: %w", err)
	}
	return items, nil
}

func (r *TaskRepository) attachments(ctx context.Context, taskID string) ([]attachment.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.ref, m.filename, m.size
		FROM task_attachments a
		JOIN media m ON m.ref = a.ref
		WHERE a.task_id = ?
		ORDER BY a.position ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	list := []attachment.Attachment{}
	for rows.Next() {
		var a attachment.Attachment
		if err := rows.Scan(&a.ID, &a.Ref, &a.Title, &a.Size); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return list, nil
}

func (r *TaskRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func bumpTick(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	var tick int64
	err := tx.QueryRowContext(ctx, `
		UPDATE tasks SET tick = tick + 1, updated_at = ?
		WHERE id = ?
		RETURNING tick
	`, time.Now().UTC(), id).Scan(&tick)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump tick: %w", err)
	}
	return tick, nil
}

func insertChecklist(ctx context.Context, tx *sql.Tx, taskID string, items []checklist.Item) error {
	for i, it := range checklist.Sorted(items) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO checklist_items (id, task_id, title, done, sort_order)
			VALUES (?, ?, ?, ?, ?)
		`, it.ID, taskID, it.Title, it.Done, i)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("failed to insert checklist item: %w", err)
		}
	}
	return nil
}

func replaceAttachments(ctx context.Context, tx *sql.Tx, taskID string, refs []attachment.MediaRef) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, ref FROM task_attachments WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to get attachments: %w", err)
	}
	existing := make(map[attachment.MediaRef]string)
	for rows.Next() {
		var id string
		var ref attachment.MediaRef
		if err := rows.Scan(&id, &ref); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan attachment: %w", err)
		}
		existing[ref] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating attachment rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_attachments WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to clear attachments: %w", err)
	}

	seen := make(map[attachment.MediaRef]bool, len(refs))
	position := 0
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		id, ok := existing[ref]
		if !ok {
			id = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_attachments (id, task_id, ref, position)
			VALUES (?, ?, ?, ?)
		`, id, taskID, string(ref), position)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
		position++
	}
	return nil
}
