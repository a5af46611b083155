package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/repository"
)

// MediaRepository implements repository.MediaRepository for SQLite
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Put stores a media object
func (r *MediaRepository) Put(ctx context.Context, m *attachment.Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (ref, filename, size, sha256, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(m.Ref), m.Filename, m.Size, m.SHA256, m.Content, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to store media: %w", err)
	}
	return nil
}

// Get retrieves a media object including its content
func (r *MediaRepository) Get(ctx context.Context, ref attachment.MediaRef) (*attachment.Media, error) {
	var m attachment.Media
	var storedRef string
	err := r.db.QueryRowContext(ctx, `
		SELECT ref, filename, size, sha256, content, created_at
		FROM media
		WHERE ref = ?
	`, string(ref)).Scan(&storedRef, &m.Filename, &m.Size, &m.SHA256, &m.Content, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	m.Ref = attachment.MediaRef(storedRef)
	return &m, nil
}

// Delete removes a media object. Media still attached to a task cannot be deleted.
func (r *MediaRepository) Delete(ctx context.Context, ref attachment.MediaRef) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE ref = ?`, string(ref))
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Exists reports whether ref names stored media
func (r *MediaRepository) Exists(ctx context.Context, ref attachment.MediaRef) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM media WHERE ref = ?)`, string(ref)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check media existence: %w", err)
	}
	return exists, nil
}
