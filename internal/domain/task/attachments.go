package task

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/attachment"
)

// AttachFiles uploads files in parallel and attaches every successful upload with a
// single list update. Failed uploads are reported without affecting the others.
func (c *Controller) AttachFiles(ctx context.Context, files []File) (BatchResult, error) {
	if len(files) == 0 {
		return BatchResult{}, nil
	}

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return BatchResult{}, err
	}
	gen := c.gen
	placeholders := make([]attachment.Attachment, len(files))
	for i, f := range files {
		placeholders[i] = attachment.NewPlaceholder(f.Name, int64(len(f.Content)))
	}
	c.attachments = append(c.attachments, placeholders...)
	c.attachmentsInFlight++
	c.mu.Unlock()

	uploads := c.uploadAll(ctx, files, placeholders)
	succeeded, failed := attachment.Summary(uploads)

	var result BatchResult
	for _, u := range uploads {
		if !u.OK() {
			result.Failed = append(result.Failed, FailedUpload{Name: u.Filename, Err: u.Err})
			c.logger.Warn("upload failed", "filename", u.Filename, "error", u.Err)
			c.journal(activity.TypeUploadFailed, fmt.Sprintf("%s: %v", u.Filename, u.Err), 0)
		}
	}

	if succeeded == 0 {
		c.mu.Lock()
		c.attachmentsInFlight--
		if c.state != StateLoaded || gen != c.gen {
			c.mu.Unlock()
			return result, ErrReleased
		}
		c.attachments = attachment.Merge(c.attachments, placeholders, uploads, attachment.Snapshot{Kind: attachment.Partial})
		c.mu.Unlock()

		c.notify(KindUploadsFailed, fmt.Sprintf("Failed to upload %d of %d files", failed, len(files)), result.Failed[0].Err)
		return result, ErrBatchFailed
	}

	var snap attachment.Snapshot
	err := c.acquireList(ctx)
	if err == nil {
		defer c.releaseList()

		c.mu.Lock()
		if c.state != StateLoaded || gen != c.gen {
			c.attachmentsInFlight--
			c.mu.Unlock()
			return result, ErrReleased
		}
		refs := attachment.Refs(c.attachments)
		for _, u := range uploads {
			if u.OK() {
				refs = append(refs, u.Ref)
			}
		}
		c.mu.Unlock()

		snap, err = c.mutator.SetAttachmentList(ctx, c.id, refs)
	}

	c.mu.Lock()
	c.attachmentsInFlight--
	if c.state != StateLoaded || gen != c.gen {
		c.mu.Unlock()
		return result, ErrReleased
	}
	if err != nil {
		c.attachments = c.revertAttachmentsLocked(placeholders)
		c.mu.Unlock()

		c.logger.Warn("attachment list update rejected", "files", len(files), "error", err)
		c.notify(KindAttachmentsReverted, fmt.Sprintf("Could not attach %d files", len(files)), err)
		c.journal(activity.TypeAttachmentsReverted, fmt.Sprintf("batch of %d reverted: %v", len(files), err), 0)
		result.Failed = nil
		for _, f := range files {
			result.Failed = append(result.Failed, FailedUpload{Name: f.Name, Err: err})
		}
		return result, fmt.Errorf("%w: %w", ErrMutationRejected, err)
	}
	merged := attachment.Merge(c.attachments, placeholders, uploads, snap)
	c.attachments = merged
	c.confirmedAttachments = attachment.Canonical(merged)
	c.mu.Unlock()

	uploaded := make(map[attachment.MediaRef]bool, succeeded)
	for _, u := range uploads {
		if u.OK() {
			uploaded[u.Ref] = true
		}
	}
	for _, a := range merged {
		if uploaded[a.Ref] {
			result.Attached = append(result.Attached, a)
		}
	}
	if failed > 0 {
		c.notify(KindUploadsPartial, fmt.Sprintf("Attached %d of %d files", succeeded, len(files)), result.Failed[0].Err)
	}
	c.journal(activity.TypeAttachmentsMerged, fmt.Sprintf("attached %d of %d files", succeeded, len(files)), 0)
	return result, nil
}

// uploadAll runs one upload per file. Each upload is independent: a failure never
// cancels its siblings.
func (c *Controller) uploadAll(ctx context.Context, files []File, placeholders []attachment.Attachment) []attachment.Upload {
	uploads := make([]attachment.Upload, len(files))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range files {
		g.Go(func() error {
			u, err := c.uploader.Upload(ctx, files[i])
			if err != nil {
				u = attachment.Upload{Filename: files[i].Name, Size: int64(len(files[i].Content)), Err: err}
			}
			u.PlaceholderID = placeholders[i].ID
			if u.Filename == "" {
				u.Filename = files[i].Name
			}
			uploads[i] = u
			return nil
		})
	}
	_ = g.Wait()
	return uploads
}

// RemoveAttachment removes attachment id from the task. The stored media is deleted
// in the background once the server confirms the new list.
func (c *Controller) RemoveAttachment(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	next, removed, err := attachment.Remove(c.attachments, id)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if removed.Placeholder {
		c.mu.Unlock()
		return ErrUploadPending
	}
	gen := c.gen
	c.attachments = next
	c.attachmentsInFlight++
	c.mu.Unlock()

	var snap attachment.Snapshot
	err = c.acquireList(ctx)
	if err == nil {
		defer c.releaseList()

		c.mu.Lock()
		if c.state != StateLoaded || gen != c.gen {
			c.attachmentsInFlight--
			c.mu.Unlock()
			return ErrReleased
		}
		refs := attachment.Refs(c.attachments)
		c.mu.Unlock()

		snap, err = c.mutator.SetAttachmentList(ctx, c.id, refs)
	}

	c.mu.Lock()
	c.attachmentsInFlight--
	if c.state != StateLoaded || gen != c.gen {
		c.mu.Unlock()
		return ErrReleased
	}
	if err != nil {
		c.attachments = c.revertAttachmentsLocked(nil)
		c.mu.Unlock()

		c.logger.Warn("attachment removal rejected", "attachment_id", id, "error", err)
		c.notify(KindAttachmentsReverted, fmt.Sprintf("Could not remove %s", removed.Title), err)
		c.journal(activity.TypeAttachmentsReverted, fmt.Sprintf("remove %s reverted: %v", removed.Ref, err), 0)
		return fmt.Errorf("%w: %w", ErrMutationRejected, err)
	}
	c.attachments = attachment.Reconcile(c.attachments, snap)
	c.confirmedAttachments = attachment.Canonical(c.attachments)
	c.mu.Unlock()

	c.deleteMedia(ctx, removed.Ref)
	return nil
}

// revertAttachmentsLocked rebuilds the list from the confirmed entries plus the
// placeholders of uploads still running, leaving out the placeholders in drop.
func (c *Controller) revertAttachmentsLocked(drop []attachment.Attachment) []attachment.Attachment {
	skip := make(map[string]bool, len(drop))
	for _, a := range drop {
		skip[a.ID] = true
	}
	out := attachment.Clone(c.confirmedAttachments)
	for _, a := range c.attachments {
		if a.Placeholder && !skip[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// acquireList serializes attachment list updates so each one is built from the
// result of the one before it.
func (c *Controller) acquireList(ctx context.Context) error {
	select {
	case c.listSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) releaseList() {
	<-c.listSem
}

func (c *Controller) deleteMedia(ctx context.Context, ref attachment.MediaRef) {
	if c.uploader == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.uploader.DeleteMedia(ctx, ref); err != nil {
			c.logger.Warn("media delete failed", "ref", ref, "error", err)
			c.journal(activity.TypeMediaDeleteFailed, fmt.Sprintf("%s: %v", ref, err), 0)
		}
	}()
}
