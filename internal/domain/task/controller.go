package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
)

// Controller owns the editable state of one task while its editor is open.
//
// Mutations are applied locally first and reconciled with the server when the
// request resolves. Collaborator calls run without holding the controller lock, so
// refreshes and other edits may interleave with a pending request.
type Controller struct {
	mu    sync.Mutex
	id    string
	state State
	gen   uint64
	tick  int64
	title string

	fields *field.Store

	checklist          []checklist.Item
	confirmedChecklist []checklist.Item
	checklistSeq       uint64
	checklistInFlight  int
	// checklistOwner is the edit whose local list is displayed; zero when the
	// displayed list is the confirmed one.
	checklistOwner     uint64
	checklistConfirmed uint64

	attachments          []attachment.Attachment
	confirmedAttachments []attachment.Attachment
	attachmentsInFlight  int
	// listSem admits one attachment list update at a time.
	listSem              chan struct{}

	sessionID   string
	mutator     Mutator
	uploader    Uploader
	notifier    Notifier
	activities  ActivityLogger
	clock       clockwork.Clock
	concurrency int
	logger      *slog.Logger

	bg sync.WaitGroup
}

// New creates an unloaded controller.
func New(opts Options) *Controller {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	concurrency := opts.UploadConcurrency
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}
	return &Controller{
		id:          opts.TaskID,
		state:       StateUnloaded,
		fields:      field.NewStore(clk, opts.SuppressWindow),
		listSem:     make(chan struct{}, 1),
		sessionID:   opts.SessionID,
		mutator:     opts.Mutator,
		uploader:    opts.Uploader,
		notifier:    opts.Notifier,
		activities:  opts.Activities,
		clock:       clk,
		concurrency: concurrency,
		logger:      logger.With("task_id", opts.TaskID),
	}
}

// ID returns the task id.
func (c *Controller) ID() string {
	return c.id
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load seeds the controller from the server snapshot taken when the editor opened.
func (c *Controller) Load(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReleased:
		return ErrReleased
	case StateLoaded:
		return ErrAlreadyLoaded
	}
	if snap.ID != "" && c.id != "" && snap.ID != c.id {
		return fmt.Errorf("%w: got %s", ErrSnapshotMismatch, snap.ID)
	}
	if c.id == "" {
		c.id = snap.ID
	}

	c.fields.Seed(snap.Fields)
	c.title = snap.Title
	c.tick = snap.Tick
	c.checklist = checklist.Renumber(checklist.Sorted(snap.Checklist))
	c.confirmedChecklist = checklist.Clone(c.checklist)
	c.attachments = attachment.Reconcile(nil, attachment.Snapshot{
		Kind:    attachment.Full,
		Entries: snap.Attachments.Entries,
	})
	c.confirmedAttachments = attachment.Clone(c.attachments)
	c.state = StateLoaded
	return nil
}

// ApplyUserEdit shows value immediately and returns the token identifying the
// request the caller is about to send.
func (c *Controller) ApplyUserEdit(name field.Name, value string) (field.Write, error) {
	if _, err := c.begin(); err != nil {
		return field.Write{}, err
	}
	w, err := c.fields.ApplyOptimistic(name, value)
	if err != nil {
		return field.Write{}, fmt.Errorf("applying %s: %w", name, err)
	}
	return w, nil
}

// OnServerResponse settles the request identified by w. A rejection reverts the
// field to its last confirmed value and notifies the user once.
func (c *Controller) OnServerResponse(w field.Write, res FieldResult) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.settleField(gen, w, res)
}

// SetField runs the full optimistic protocol for one field edit.
func (c *Controller) SetField(ctx context.Context, name field.Name, value string) error {
	gen, err := c.begin()
	if err != nil {
		return err
	}
	w, err := c.fields.ApplyOptimistic(name, value)
	if err != nil {
		return fmt.Errorf("applying %s: %w", name, err)
	}
	conf, err := c.mutator.UpdateField(ctx, c.id, name, value)
	return c.settleField(gen, w, FieldResult{Value: conf.Value, Tick: conf.Tick, Err: err})
}

func (c *Controller) settleField(gen uint64, w field.Write, res FieldResult) error {
	c.mu.Lock()
	if c.state != StateLoaded || gen != c.gen {
		c.mu.Unlock()
		return ErrReleased
	}
	if res.Err == nil {
		c.observeTickLocked(res.Tick)
	}
	c.mu.Unlock()

	if res.Err != nil {
		reverted := c.fields.Reject(w)
		c.logger.Warn("field update rejected", "field", w.Field, "reverted", reverted, "error", res.Err)
		c.notify(KindFieldRejected, fmt.Sprintf("Could not update %s", w.Field), res.Err)
		c.journal(activity.TypeFieldRejected, fmt.Sprintf("%s rejected: %v", w.Field, res.Err), 0)
		return fmt.Errorf("%w: %w", ErrMutationRejected, res.Err)
	}

	out := c.fields.Confirm(w, res.Value)
	if out.Stale {
		c.logger.Debug("late field confirmation ignored", "field", w.Field, "seq", w.Seq)
		return nil
	}
	c.journal(activity.TypeFieldConfirmed, fmt.Sprintf("%s = %q", w.Field, res.Value), res.Tick)
	return nil
}

// OnExternalRefresh applies a server snapshot that arrived outside any request of
// this controller, such as a push event or a periodic reload.
func (c *Controller) OnExternalRefresh(snap Snapshot) RefreshOutcome {
	c.mu.Lock()
	if c.state != StateLoaded || (snap.ID != "" && snap.ID != c.id) {
		c.mu.Unlock()
		return RefreshOutcome{Ignored: true}
	}
	if snap.Tick > 0 && snap.Tick < c.tick {
		tick := c.tick
		c.mu.Unlock()
		c.logger.Debug("stale refresh discarded", "refresh_tick", snap.Tick, "tick", tick)
		c.journal(activity.TypeRefreshDiscarded, fmt.Sprintf("refresh at tick %d older than %d", snap.Tick, tick), snap.Tick)
		return RefreshOutcome{Stale: true}
	}

	var out RefreshOutcome
	for _, name := range field.Names() {
		value, ok := snap.Fields[name]
		if !ok {
			continue
		}
		if c.fields.ReceiveExternalRefresh(name, value) {
			out.Applied = append(out.Applied, name)
		} else {
			out.Discarded = append(out.Discarded, name)
		}
	}
	if snap.Title != "" {
		c.title = snap.Title
	}
	if snap.HasChecklist && c.checklistInFlight == 0 {
		c.checklist = checklist.Renumber(checklist.Sorted(snap.Checklist))
		c.confirmedChecklist = checklist.Clone(c.checklist)
		out.ChecklistApplied = true
	}
	if c.attachmentsInFlight == 0 {
		c.attachments = attachment.Reconcile(c.attachments, snap.Attachments)
		c.confirmedAttachments = attachment.Canonical(c.attachments)
		out.AttachmentsApplied = true
	}
	c.observeTickLocked(snap.Tick)
	c.mu.Unlock()

	if len(out.Discarded) > 0 {
		c.logger.Debug("refresh suppressed for fields", "fields", out.Discarded)
	}
	return out
}

// OnModalClose releases the controller. Results of requests still in flight are
// discarded when they arrive.
func (c *Controller) OnModalClose() {
	c.mu.Lock()
	if c.state == StateReleased {
		c.mu.Unlock()
		return
	}
	c.state = StateReleased
	c.gen++
	c.mu.Unlock()

	c.fields.Reset()
}

// Wait blocks until detached side effects, such as media deletion, have finished.
func (c *Controller) Wait() {
	c.bg.Wait()
}

// View returns a copy of the observable state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		TaskID:      c.id,
		Title:       c.title,
		State:       c.state,
		Tick:        c.tick,
		Fields:      c.fields.Values(),
		Pending:     c.fields.Suppressed(),
		Checklist:   checklist.Clone(c.checklist),
		Attachments: attachment.Clone(c.attachments),
	}
}

// begin checks that the controller accepts edits and returns the current generation.
func (c *Controller) begin() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return 0, err
	}
	return c.gen, nil
}

func (c *Controller) usableLocked() error {
	switch c.state {
	case StateUnloaded:
		return ErrNotLoaded
	case StateReleased:
		return ErrReleased
	}
	return nil
}

func (c *Controller) observeTickLocked(tick int64) {
	if tick > c.tick {
		c.tick = tick
	}
}

func (c *Controller) notify(kind NotificationKind, msg string, err error) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Notification{TaskID: c.id, Kind: kind, Message: msg, Err: err})
}

// journal records an activity entry. Journal failures never affect the mutation.
func (c *Controller) journal(kind activity.ActivityType, summary string, tick int64) {
	if c.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		TaskID:       c.id,
		ActivityType: kind,
		Summary:      summary,
		CreatedAt:    c.clock.Now(),
		Tick:         tick,
	}
	if c.sessionID != "" {
		sid := c.sessionID
		entry.SessionID = &sid
	}
	if err := c.activities.Log(context.Background(), entry); err != nil {
		c.logger.Debug("activity log failed", "type", kind, "error", err)
	}
}
