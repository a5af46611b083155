// Package push fans task snapshots out to editors that have the task open.
package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/tasksync/internal/domain/task"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("push hub closed")

// Event carries the snapshot of a task after a mutation.
type Event struct {
	TaskID   string        `json:"task_id"`
	Snapshot task.Snapshot `json:"snapshot"`
	At       time.Time     `json:"at"`
}

type subscriber struct {
	taskID string
	ch     chan Event
}

// Hub delivers events to subscribers of a task. Delivery is best-effort: a
// subscriber whose queue is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// NewHub creates a hub. The hub closes every subscription when ctx ends.
func NewHub(ctx context.Context, buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{subs: make(map[*subscriber]struct{}), buffer: buffer, logger: logger}
	go func() {
		<-ctx.Done()
		h.Close()
	}()
	return h
}

// Subscribe registers for events of taskID. The returned cancel func removes the
// subscription and closes the channel; it is also called when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, taskID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrClosed
	}
	sub := &subscriber{taskID: taskID, ch: make(chan Event, h.buffer)}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.remove(sub) })
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.ch, cancel, nil
}

// Publish delivers ev to every subscriber of ev.TaskID without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if sub.taskID != ev.TaskID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Debug("push event dropped", "task_id", ev.TaskID, "tick", ev.Snapshot.Tick)
		}
	}
}

// Subscribers returns the number of live subscriptions for taskID.
func (h *Hub) Subscribers(taskID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sub := range h.subs {
		if sub.taskID == taskID {
			n++
		}
	}
	return n
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}
