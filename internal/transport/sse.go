package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmaxmax/go-sse"

	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/push"
)

const (
	sseContentType = "text/event-stream"
	sseEventName   = "snapshot"
	mediaScheme    = "media://"

	// maxEventSize bounds one encoded snapshot on the event stream.
	maxEventSize = 8 << 20
)

var snapshotType = sse.Type(sseEventName)

func mediaRef(id string) attachment.MediaRef {
	return attachment.MediaRef(mediaScheme + id)
}

func mediaID(ref attachment.MediaRef) string {
	return strings.TrimPrefix(string(ref), mediaScheme)
}

// handleEvents streams push events of one task as Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.backend.GetSnapshot(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.events == nil {
		writeError(w, http.StatusNotImplemented, codeInternal, "push events disabled")
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}
	events, cancel, err := s.events.Subscribe(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Cache-Control", "no-cache")
	if err := sendComment(sess, "connected"); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sendComment(sess, "ping"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sendEvent(sess, ev); err != nil {
				s.logger.Debug("event stream closed", "task_id", id, "error", err)
				return
			}
		}
	}
}

func sendComment(sess *sse.Session, text string) error {
	m := &sse.Message{}
	m.AppendComment(text)
	return send(sess, m)
}

func sendEvent(sess *sse.Session, ev push.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	m := &sse.Message{Type: snapshotType}
	m.AppendData(string(data))
	return send(sess, m)
}

func send(sess *sse.Session, m *sse.Message) error {
	if err := sess.Send(m); err != nil {
		return err
	}
	return sess.Flush()
}

// readEvents decodes an event stream into out until body ends or ctx is done.
// Events of other types and comments are skipped.
func readEvents(ctx context.Context, body io.Reader, out chan<- push.Event, logger *slog.Logger) {
	for ev, err := range sse.Read(body, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("event stream ended", "error", err)
			}
			return
		}
		if ev.Data == "" || (ev.Type != "" && ev.Type != sseEventName) {
			continue
		}
		var pe push.Event
		if err := json.Unmarshal([]byte(ev.Data), &pe); err != nil {
			logger.Warn("malformed push event", "error", err)
			continue
		}
		select {
		case out <- pe:
		case <-ctx.Done():
			return
		}
	}
}
