package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/repository"
)

// SearchRepository implements repository.SearchRepository for SQLite
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search performs a full-text search over task titles and assignees. An empty query
// lists the most recently updated tasks.
func (r *SearchRepository) Search(ctx context.Context, query string, opts repository.SearchOptions) ([]task.Summary, error) {
	var baseQuery string
	var args []interface{}

	match := ftsQuery(query)
	if match == "" {
		baseQuery = `
			SELECT t.id, t.title, t.status, t.assignee, t.tick
			FROM tasks t
			ORDER BY t.updated_at DESC, t.id ASC
		`
	} else {
		baseQuery = `
			SELECT t.id, t.title, t.status, t.assignee, t.tick
			FROM tasks_fts
			JOIN tasks t ON t.rowid = tasks_fts.rowid
			WHERE tasks_fts MATCH ?
			ORDER BY rank
		`
		args = append(args, match)
	}

	if opts.Limit > 0 {
		baseQuery += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		baseQuery += " LIMIT -1"
	}
	if opts.Offset > 0 {
		baseQuery += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	defer rows.Close()

	results := []task.Summary{}
	for rows.Next() {
		var s task.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.Assignee, &s.Tick); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// ftsQuery turns free text into prefix-matching FTS5 terms.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
