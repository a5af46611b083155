// Package backend is the authoritative task server behind the editing engine.
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/repository"
)

// DefaultMaxAttachmentBytes is the upload limit when Options leaves it unset.
const DefaultMaxAttachmentBytes = 10 << 20

const mediaScheme = "media://"

// Publisher receives a snapshot after every mutation.
type Publisher interface {
	Publish(ev push.Event)
}

// Options configures the service.
type Options struct {
	MaxAttachmentBytes int64
}

// Service implements task mutations against the repositories.
type Service struct {
	tasks     repository.TaskRepository
	media     repository.MediaRepository
	search    repository.SearchRepository
	publisher Publisher
	maxBytes  int64
	logger    *slog.Logger
}

// NewService creates a new backend service.
func NewService(
	tasks repository.TaskRepository,
	media repository.MediaRepository,
	search repository.SearchRepository,
	publisher Publisher,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		tasks:     tasks,
		media:     media,
		search:    search,
		publisher: publisher,
		maxBytes:  opts.MaxAttachmentBytes,
		logger:    logger,
	}
}

// CreateRequest describes a task creation request.
type CreateRequest struct {
	Title     string                `json:"title"`
	Fields    map[field.Name]string `json:"fields,omitempty"`
	Checklist []string              `json:"checklist,omitempty"`
}

// CreateTask validates and stores a new task.
func (s *Service) CreateTask(ctx context.Context, req CreateRequest) (*task.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidValue)
	}

	fields := map[field.Name]string{field.Status: "todo"}
	for name, value := range req.Fields {
		v, err := NormalizeField(name, value)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}

	var items []checklist.Item
	for _, itemTitle := range req.Checklist {
		var err error
		if items, _, err = checklist.Append(items, itemTitle); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
	}
	for i := range items {
		items[i].Local = false
	}

	now := time.Now().UTC()
	t := &task.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Fields:    fields,
		Checklist: items,
		Tick:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	s.logger.Info("task created", "task_id", t.ID)
	return t, nil
}

// GetTask returns the stored task.
func (s *Service) GetTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "loading task")
	}
	return t, nil
}

// GetSnapshot returns the full snapshot of a task.
func (s *Service) GetSnapshot(ctx context.Context, id string) (task.Snapshot, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return task.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Search finds tasks by title or assignee.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]task.Summary, error) {
	results, err := s.search.Search(ctx, query, repository.SearchOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}
	return results, nil
}

// UpdateField validates, normalizes and stores one field.
func (s *Service) UpdateField(ctx context.Context, taskID string, name field.Name, value string) (task.FieldConfirmation, error) {
	normalized, err := NormalizeField(name, value)
	if err != nil {
		return task.FieldConfirmation{}, err
	}
	tick, err := s.tasks.UpdateField(ctx, taskID, name, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			return task.FieldConfirmation{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, name, value)
		}
		return task.FieldConfirmation{}, mapNotFound(err, "updating field")
	}
	s.logger.Debug("field updated", "task_id", taskID, "field", name, "tick", tick)
	s.publish(ctx, taskID)
	return task.FieldConfirmation{Value: normalized, Tick: tick}, nil
}

// SetAttachmentList replaces the attachment list of a task. The answer is a partial
// snapshot: ids and refs only.
func (s *Service) SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error) {
	for _, ref := range refs {
		if ref.IsPlaceholder() || !strings.HasPrefix(string(ref), mediaScheme) {
			return attachment.Snapshot{}, fmt.Errorf("%w: %s", ErrMediaNotFound, ref)
		}
		ok, err := s.media.Exists(ctx, ref)
		if err != nil {
			return attachment.Snapshot{}, fmt.Errorf("checking media: %w", err)
		}
		if !ok {
			return attachment.Snapshot{}, fmt.Errorf("%w: %s", ErrMediaNotFound, ref)
		}
	}

	if _, err := s.tasks.ReplaceAttachments(ctx, taskID, refs); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return attachment.Snapshot{}, ErrMediaNotFound
		}
		return attachment.Snapshot{}, mapNotFound(err, "replacing attachments")
	}

	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return attachment.Snapshot{}, err
	}
	snap := attachment.Snapshot{Kind: attachment.Partial, Entries: make([]attachment.Entry, 0, len(t.Attachments))}
	for _, a := range t.Attachments {
		snap.Entries = append(snap.Entries, attachment.Entry{ID: a.ID, Ref: a.Ref})
	}
	s.publishTask(t)
	return snap, nil
}

// SetChecklist replaces the checklist of a task. Items created locally receive
// server ids, and the stored list is renumbered densely.
func (s *Service) SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (task.ChecklistConfirmation, error) {
	seen := make(map[string]bool, len(items))
	stored := make([]checklist.Item, 0, len(items))
	for _, it := range checklist.Sorted(items) {
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			return task.ChecklistConfirmation{}, fmt.Errorf("%w: %w", ErrInvalidValue, checklist.ErrEmptyTitle)
		}
		if it.Local || it.ID == "" {
			it.ID = uuid.NewString()
			it.Local = false
		}
		if seen[it.ID] {
			return task.ChecklistConfirmation{}, fmt.Errorf("%w: duplicate item %s", ErrInvalidValue, it.ID)
		}
		seen[it.ID] = true
		stored = append(stored, it)
	}
	stored = checklist.Renumber(stored)

	tick, err := s.tasks.ReplaceChecklist(ctx, taskID, stored)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return task.ChecklistConfirmation{}, fmt.Errorf("%w: item id in use", ErrInvalidValue)
		}
		return task.ChecklistConfirmation{}, mapNotFound(err, "replacing checklist")
	}
	s.publish(ctx, taskID)
	return task.ChecklistConfirmation{Items: stored, Tick: tick}, nil
}

// Upload stores a file and returns its canonical ref.
func (s *Service) Upload(ctx context.Context, file task.File) (attachment.Upload, error) {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		return attachment.Upload{}, fmt.Errorf("%w: filename is required", ErrInvalidValue)
	}
	size := int64(len(file.Content))
	if size > s.maxBytes {
		return attachment.Upload{}, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, name, size, s.maxBytes)
	}

	sum := sha256.Sum256(file.Content)
	m := &attachment.Media{
		Ref:       attachment.MediaRef(mediaScheme + uuid.NewString()),
		Filename:  name,
		Size:      size,
		SHA256:    hex.EncodeToString(sum[:]),
		Content:   file.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.media.Put(ctx, m); err != nil {
		return attachment.Upload{}, fmt.Errorf("storing media: %w", err)
	}
	s.logger.Debug("media stored", "ref", m.Ref, "size", size)
	return attachment.Upload{Ref: m.Ref, Filename: name, Size: size}, nil
}

// GetMedia returns a stored media object.
func (s *Service) GetMedia(ctx context.Context, ref attachment.MediaRef) (*attachment.Media, error) {
	m, err := s.media.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading media: %w", err)
	}
	return m, nil
}

// DeleteMedia removes stored media that is no longer attached.
func (s *Service) DeleteMedia(ctx context.Context, ref attachment.MediaRef) error {
	err := s.media.Delete(ctx, ref)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrMediaNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrMediaInUse
	case err != nil:
		return fmt.Errorf("deleting media: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, taskID string) {
	if s.publisher == nil {
		return
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		s.logger.Warn("snapshot for push failed", "task_id", taskID, "error", err)
		return
	}
	s.publishTask(t)
}

func (s *Service) publishTask(t *task.Task) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(push.Event{TaskID: t.ID, Snapshot: t.Snapshot(), At: time.Now().UTC()})
}

func mapNotFound(err error, doing string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return task.ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", doing, err)
}
