package task

import (
	"context"
	"fmt"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/checklist"
)

// ReorderChecklist moves item id to position target.
func (c *Controller) ReorderChecklist(ctx context.Context, id string, target int) error {
	return c.mutateChecklist(ctx, "reorder", func(items []checklist.Item) ([]checklist.Item, error) {
		return checklist.Reorder(items, id, target)
	})
}

// AddChecklistItem appends a new item and returns its local form.
func (c *Controller) AddChecklistItem(ctx context.Context, title string) (checklist.Item, error) {
	var added checklist.Item
	err := c.mutateChecklist(ctx, "add", func(items []checklist.Item) ([]checklist.Item, error) {
		next, item, err := checklist.Append(items, title)
		added = item
		return next, err
	})
	return added, err
}

// DeleteChecklistItem removes item id.
func (c *Controller) DeleteChecklistItem(ctx context.Context, id string) error {
	return c.mutateChecklist(ctx, "delete", func(items []checklist.Item) ([]checklist.Item, error) {
		return checklist.Remove(items, id)
	})
}

// ToggleChecklistItem flips the done flag of item id.
func (c *Controller) ToggleChecklistItem(ctx context.Context, id string) error {
	return c.mutateChecklist(ctx, "toggle", func(items []checklist.Item) ([]checklist.Item, error) {
		return checklist.Toggle(items, id)
	})
}

// RenameChecklistItem changes the title of item id.
func (c *Controller) RenameChecklistItem(ctx context.Context, id, title string) error {
	return c.mutateChecklist(ctx, "rename", func(items []checklist.Item) ([]checklist.Item, error) {
		return checklist.Rename(items, id, title)
	})
}

// mutateChecklist applies change locally, then replaces the server list with the
// result. Failures revert to the last confirmed list.
func (c *Controller) mutateChecklist(ctx context.Context, op string, change func([]checklist.Item) ([]checklist.Item, error)) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	next, err := change(checklist.Clone(c.checklist))
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := checklist.Validate(next); err != nil {
		c.logger.Error("checklist order repaired", "op", op, "error", err)
		next = checklist.Renumber(checklist.Sorted(next))
	}
	c.checklist = next
	c.checklistSeq++
	seq := c.checklistSeq
	c.checklistOwner = seq
	gen := c.gen
	c.checklistInFlight++
	payload := checklist.Clone(next)
	c.mu.Unlock()

	conf, err := c.mutator.SetChecklist(ctx, c.id, payload)

	c.mu.Lock()
	c.checklistInFlight--
	if c.state != StateLoaded || gen != c.gen {
		c.mu.Unlock()
		return ErrReleased
	}
	if err != nil {
		c.checklist = checklist.Clone(c.confirmedChecklist)
		c.checklistOwner = 0
		c.mu.Unlock()

		c.logger.Warn("checklist update rejected", "op", op, "error", err)
		c.notify(KindChecklistReverted, "Could not save checklist changes", err)
		c.journal(activity.TypeChecklistReverted, fmt.Sprintf("%s reverted: %v", op, err), 0)
		return fmt.Errorf("%w: %w", ErrMutationRejected, err)
	}
	if seq < c.checklistConfirmed {
		c.mu.Unlock()
		c.logger.Debug("late checklist confirmation ignored", "op", op, "seq", seq)
		return nil
	}
	confirmed := checklist.Renumber(checklist.Sorted(conf.Items))
	c.confirmedChecklist = confirmed
	c.checklistConfirmed = seq
	if c.checklistOwner <= seq {
		c.checklist = checklist.Clone(confirmed)
		c.checklistOwner = 0
	}
	c.observeTickLocked(conf.Tick)
	c.mu.Unlock()

	c.journal(activity.TypeChecklistPersisted, fmt.Sprintf("%s: %d items", op, len(confirmed)), conf.Tick)
	return nil
}
