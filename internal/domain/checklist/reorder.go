package checklist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Reorder moves the item movedID to target and renumbers the whole list.
//
// target is the index in the list after the item has been removed; it is clamped to
// the valid range. The input slice is never modified.
func Reorder(items []Item, movedID string, target int) ([]Item, error) {
	cur := Sorted(items)
	idx := indexOf(cur, movedID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	moved := cur[idx]

	rest := make([]Item, 0, len(cur)-1)
	rest = append(rest, cur[:idx]...)
	rest = append(rest, cur[idx+1:]...)

	if target < 0 {
		target = 0
	}
	if target > len(rest) {
		target = len(rest)
	}

	final := make([]Item, 0, len(cur))
	final = append(final, rest[:target]...)
	final = append(final, moved)
	final = append(final, rest[target:]...)
	return Renumber(final), nil
}

// Append adds a new local item at the end of the list.
func Append(items []Item, title string) ([]Item, Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Clone(items), Item{}, ErrEmptyTitle
	}
	out := Sorted(items)
	item := Item{
		ID:        uuid.NewString(),
		Title:     title,
		SortOrder: len(out),
		Local:     true,
	}
	out = append(out, item)
	return Renumber(out), item, nil
}

// Remove deletes the item id and renumbers the remainder.
func Remove(items []Item, id string) ([]Item, error) {
	cur := Sorted(items)
	idx := indexOf(cur, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out := append(cur[:idx:idx], cur[idx+1:]...)
	return Renumber(out), nil
}

// Toggle flips the completion flag of id.
func Toggle(items []Item, id string) ([]Item, error) {
	out := Sorted(items)
	idx := indexOf(out, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out[idx].Done = !out[idx].Done
	return out, nil
}

// Rename sets the title of id.
func Rename(items []Item, id, title string) ([]Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	out := Sorted(items)
	idx := indexOf(out, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out[idx].Title = title
	return out, nil
}

// Renumber sets every SortOrder to the item's index.
func Renumber(items []Item) []Item {
	out := Clone(items)
	for i := range out {
		out[i].SortOrder = i
	}
	return out
}

// Sorted returns a copy ordered by SortOrder, then ID.
func Sorted(items []Item) []Item {
	out := Clone(items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate checks that items, in slice order, are numbered 0..n-1 without repeats.
func Validate(items []Item) error {
	for i, it := range items {
		if it.SortOrder != i {
			return fmt.Errorf("%w: item %s at index %d has sort order %d", ErrInvariant, it.ID, i, it.SortOrder)
		}
	}
	return nil
}

// Clone copies items.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	return append([]Item(nil), items...)
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
