package session

import (
	"context"
	"sync"
	"time"

	"github.com/rpggio/tasksync/internal/domain/task"
)

// SessionStatus represents the lifecycle status of a session
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// maxNotifications bounds the notifications kept per session.
const maxNotifications = 20

// Session is one open editor for one task.
type Session struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"task_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`

	Controller *task.Controller `json:"-"`

	mu           sync.Mutex
	lastActivity time.Time
	closedAt     *time.Time
	notes        []task.Notification
	forward      task.Notifier
	cancel       context.CancelFunc
	unsubscribe  func()
	done         chan struct{}
}

// SessionInfo provides information about an open session
type SessionInfo struct {
	SessionID    string        `json:"session_id"`
	TaskID       string        `json:"task_id"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
}

// Notify records n and passes it on to the service notifier.
func (s *Session) Notify(n task.Notification) {
	s.mu.Lock()
	s.notes = append(s.notes, n)
	if len(s.notes) > maxNotifications {
		s.notes = s.notes[len(s.notes)-maxNotifications:]
	}
	fwd := s.forward
	s.mu.Unlock()

	if fwd != nil {
		fwd.Notify(n)
	}
}

// Notifications returns and clears the notifications raised since the last call.
func (s *Session) Notifications() []task.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notes
	s.notes = nil
	return out
}

// Info returns a summary of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		SessionID:    s.ID,
		TaskID:       s.TaskID,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.lastActivity,
		ClosedAt:     s.closedAt,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}
