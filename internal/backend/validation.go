package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/tasksync/internal/domain/field"
)

var statuses = map[string]bool{
	"todo":        true,
	"in_progress": true,
	"blocked":     true,
	"done":        true,
}

var priorities = []string{"Low", "Medium", "High", "Urgent"}

// NormalizeField validates value for the named field and returns its stored form.
func NormalizeField(name field.Name, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch name {
	case field.Status:
		s := strings.ToLower(value)
		s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
		if !statuses[s] {
			return "", fmt.Errorf("%w: status %q", ErrInvalidValue, value)
		}
		return s, nil
	case field.Priority:
		if value == "" {
			return "", nil
		}
		for _, p := range priorities {
			if strings.EqualFold(p, value) {
				return p, nil
			}
		}
		return "", fmt.Errorf("%w: priority %q", ErrInvalidValue, value)
	case field.DueDate:
		if value == "" {
			return "", nil
		}
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return "", fmt.Errorf("%w: due date %q", ErrInvalidValue, value)
		}
		return d.Format(time.DateOnly), nil
	case field.Assignee:
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", field.ErrUnknownField, name)
}
