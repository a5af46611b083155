package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
)

// Backend is the task server exposed over HTTP.
type Backend interface {
	CreateTask(ctx context.Context, req backend.CreateRequest) (*task.Task, error)
	GetSnapshot(ctx context.Context, id string) (task.Snapshot, error)
	Search(ctx context.Context, query string, limit int) ([]task.Summary, error)
	UpdateField(ctx context.Context, taskID string, name field.Name, value string) (task.FieldConfirmation, error)
	SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error)
	SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (task.ChecklistConfirmation, error)
	Upload(ctx context.Context, file task.File) (attachment.Upload, error)
	GetMedia(ctx context.Context, ref attachment.MediaRef) (*attachment.Media, error)
	DeleteMedia(ctx context.Context, ref attachment.MediaRef) error
}

// EventSource streams push events for a task.
type EventSource interface {
	Subscribe(ctx context.Context, taskID string) (<-chan push.Event, func(), error)
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Auth           TokenResolver
	MaxUploadBytes int64
	KeepAlive      time.Duration
	Logger         *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	backend   Backend
	events    EventSource
	maxUpload int64
	keepAlive time.Duration
	logger    *slog.Logger
}

// FieldRequest is the body of a field update.
type FieldRequest struct {
	Value string `json:"value"`
}

// AttachmentsRequest is the body of an attachment list update.
type AttachmentsRequest struct {
	Refs []attachment.MediaRef `json:"refs"`
}

// ChecklistRequest is the body of a checklist replace.
type ChecklistRequest struct {
	Items []checklist.Item `json:"items"`
}

// NewServer creates an HTTP server router with middleware.
func NewServer(b Backend, events EventSource, opts ServerOptions) *chi.Mux {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = backend.DefaultMaxAttachmentBytes
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if opts.Auth != nil {
		r.Use(AuthMiddleware(opts.Auth))
	}

	srv := &Server{
		backend:   b,
		events:    events,
		maxUpload: opts.MaxUploadBytes,
		keepAlive: opts.KeepAlive,
		logger:    opts.Logger,
	}

	r.Get("/health", srv.handleHealth)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", srv.handleSearch)
		r.Post("/", srv.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", srv.handleGet)
			r.Put("/fields/{name}", srv.handleField)
			r.Put("/attachments", srv.handleAttachments)
			r.Put("/checklist", srv.handleChecklist)
			r.Get("/events", srv.handleEvents)
		})
	})
	r.Post("/media", srv.handleUpload)
	r.Get("/media/{id}", srv.handleGetMedia)
	r.Delete("/media/{id}", srv.handleDeleteMedia)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	results, err := s.backend.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	t, err := s.backend.CreateTask(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t.Snapshot())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	var req FieldRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	name := field.Name(chi.URLParam(r, "name"))
	if !name.Valid() {
		writeDomainError(w, field.ErrUnknownField)
		return
	}
	conf, err := s.backend.UpdateField(r.Context(), chi.URLParam(r, "id"), name, req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request) {
	var req AttachmentsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	snap, err := s.backend.SetAttachmentList(r.Context(), chi.URLParam(r, "id"), req.Refs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	var req ChecklistRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	conf, err := s.backend.SetChecklist(r.Context(), chi.URLParam(r, "id"), req.Items)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	content, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, backend.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	up, err := s.backend.Upload(r.Context(), task.File{Name: name, Content: content})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	m, err := s.backend.GetMedia(r.Context(), mediaRef(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(m.Filename))
	w.Header().Set("ETag", strconv.Quote(m.SHA256))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(m.Content)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteMedia(r.Context(), mediaRef(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
