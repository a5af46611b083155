package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rpggio/tasksync/internal/domain/activity"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
	"github.com/rpggio/tasksync/internal/repository"
)

// Dependencies are the collaborators shared by every session.
type Dependencies struct {
	Loader     Loader
	Subscriber Subscriber
	Mutator    task.Mutator
	Uploader   task.Uploader
	Notifier   task.Notifier
	Activities task.ActivityLogger
}

// Config tunes the controllers created for sessions.
type Config struct {
	SuppressWindow    time.Duration
	UploadConcurrency int
	Clock             clockwork.Clock
}

// Service handles session operations.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Dependencies
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a new session service.
func NewService(deps Dependencies, cfg Config, logger *slog.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		sessions: make(map[string]*Session),
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
	}
}

// Open loads taskID and starts following its push events.
func (s *Service) Open(ctx context.Context, taskID string) (*Session, error) {
	if taskID == "" {
		return nil, ErrInvalidInput
	}

	snap, err := s.deps.Loader.GetSnapshot(ctx, taskID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) || errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("loading task: %w", err)
	}

	now := s.cfg.Clock.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		Status:       StatusActive,
		CreatedAt:    now,
		lastActivity: now,
		forward:      s.deps.Notifier,
		done:         make(chan struct{}),
	}
	sess.Controller = task.New(task.Options{
		TaskID:            taskID,
		SessionID:         sess.ID,
		Mutator:           s.deps.Mutator,
		Uploader:          s.deps.Uploader,
		Notifier:          sess,
		Activities:        s.deps.Activities,
		Clock:             s.cfg.Clock,
		SuppressWindow:    s.cfg.SuppressWindow,
		UploadConcurrency: s.cfg.UploadConcurrency,
		Logger:            s.logger.With("session_id", sess.ID),
	})
	if err := sess.Controller.Load(snap); err != nil {
		return nil, fmt.Errorf("loading controller: %w", err)
	}

	// The subscription outlives the request that opened the session.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.cancel = cancel
	if s.deps.Subscriber != nil {
		events, unsubscribe, err := s.deps.Subscriber.Subscribe(subCtx, taskID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribing to task: %w", err)
		}
		sess.unsubscribe = unsubscribe
		go s.follow(subCtx, sess, events)
	} else {
		close(sess.done)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session opened", "session_id", sess.ID, "task_id", taskID, "tick", snap.Tick)
	s.journal(ctx, sess, activity.TypeSessionOpened, fmt.Sprintf("opened at tick %d", snap.Tick))
	return sess, nil
}

func (s *Service) follow(ctx context.Context, sess *Session, events <-chan push.Event) {
	defer close(sess.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			out := sess.Controller.OnExternalRefresh(ev.Snapshot)
			if out.Ignored {
				continue
			}
			sess.touch(s.cfg.Clock.Now())
		}
	}
}

// Get returns an open session.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.cfg.Clock.Now())
	return sess, nil
}

// List returns open sessions, oldest first.
func (s *Service) List() []SessionInfo {
	s.mu.Lock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.Info())
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].SessionID < infos[j].SessionID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Close releases the session's controller and stops its subscription.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.Controller.OnModalClose()
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	sess.cancel()
	<-sess.done

	now := s.cfg.Clock.Now()
	sess.mu.Lock()
	sess.Status = StatusClosed
	sess.closedAt = &now
	sess.mu.Unlock()

	s.logger.Info("session closed", "session_id", id, "task_id", sess.TaskID)
	s.journal(ctx, sess, activity.TypeSessionClosed, "closed")
	return nil
}

// CloseAll closes every session and waits for background work to finish.
func (s *Service) CloseAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	ctrls := make([]*task.Controller, 0, len(s.sessions))
	for id, sess := range s.sessions {
		ids = append(ids, id)
		ctrls = append(ctrls, sess.Controller)
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Close(ctx, id)
	}
	for _, c := range ctrls {
		c.Wait()
	}
}

func (s *Service) journal(ctx context.Context, sess *Session, kind activity.ActivityType, summary string) {
	if s.deps.Activities == nil {
		return
	}
	sid := sess.ID
	_ = s.deps.Activities.Log(ctx, &activity.ActivityEntry{
		TaskID:       sess.TaskID,
		SessionID:    &sid,
		ActivityType: kind,
		Summary:      summary,
		CreatedAt:    s.cfg.Clock.Now(),
		Tick:         sess.Controller.View().Tick,
	})
}
