package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/attachment"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
	"github.com/rpggio/tasksync/internal/push"
)

// Client talks to a remote task server. It satisfies the collaborator
// interfaces of the task controller and the session service.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client for baseURL. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		token:  token,
		http:   httpClient,
		logger: logger,
	}
}

// CreateTask creates a task and returns its snapshot.
func (c *Client) CreateTask(ctx context.Context, req backend.CreateRequest) (task.Snapshot, error) {
	var snap task.Snapshot
	err := c.doJSON(ctx, http.MethodPost, "/tasks", req, &snap)
	return snap, err
}

// GetSnapshot fetches the authoritative snapshot of a task.
func (c *Client) GetSnapshot(ctx context.Context, taskID string) (task.Snapshot, error) {
	var snap task.Snapshot
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &snap)
	return snap, err
}

// Search runs a full-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]task.Summary, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []task.Summary
	err := c.doJSON(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &out)
	return out, err
}

// UpdateField implements task.Mutator.
func (c *Client) UpdateField(ctx context.Context, taskID string, name field.Name, value string) (task.FieldConfirmation, error) {
	var conf task.FieldConfirmation
	path := "/tasks/" + url.PathEscape(taskID) + "/fields/" + url.PathEscape(string(name))
	err := c.doJSON(ctx, http.MethodPut, path, FieldRequest{Value: value}, &conf)
	return conf, err
}

// SetAttachmentList implements task.Mutator.
func (c *Client) SetAttachmentList(ctx context.Context, taskID string, refs []attachment.MediaRef) (attachment.Snapshot, error) {
	var snap attachment.Snapshot
	if refs == nil {
		refs = []attachment.MediaRef{}
	}
	err := c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/attachments", AttachmentsRequest{Refs: refs}, &snap)
	return snap, err
}

// SetChecklist implements task.Mutator.
func (c *Client) SetChecklist(ctx context.Context, taskID string, items []checklist.Item) (task.ChecklistConfirmation, error) {
	var conf task.ChecklistConfirmation
	if items == nil {
		items = []checklist.Item{}
	}
	err := c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/checklist", ChecklistRequest{Items: items}, &conf)
	return conf, err
}

// Upload implements task.Uploader.
func (c *Client) Upload(ctx context.Context, file task.File) (attachment.Upload, error) {
	var up attachment.Upload
	path := "/media?" + url.Values{"filename": {file.Name}}.Encode()
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(file.Content))
	if err != nil {
		return up, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	err = c.do(req, &up)
	return up, err
}

// DeleteMedia implements task.Uploader.
func (c *Client) DeleteMedia(ctx context.Context, ref attachment.MediaRef) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/media/"+url.PathEscape(mediaID(ref)), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Subscribe opens the event stream of a task. It returns once the server has
// accepted the stream.
func (c *Client) Subscribe(ctx context.Context, taskID string) (<-chan push.Event, func(), error) {
	streamCtx, cancelStream := context.WithCancel(ctx)
	req, err := c.newRequest(streamCtx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/events", nil)
	if err != nil {
		cancelStream()
		return nil, nil, err
	}
	req.Header.Set("Accept", sseContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		cancelStream()
		return nil, nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancelStream()
		return nil, nil, readAPIError(resp)
	}

	out := make(chan push.Event, push.DefaultBuffer)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readEvents(streamCtx, resp.Body, out, c.logger)
	}()

	var once sync.Once
	cancel := func() { once.Do(cancelStream) }
	return out, cancel, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
