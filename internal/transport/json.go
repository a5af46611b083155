package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/tasksync/internal/backend"
	"github.com/rpggio/tasksync/internal/domain/checklist"
	"github.com/rpggio/tasksync/internal/domain/field"
	"github.com/rpggio/tasksync/internal/domain/task"
)

// Error codes carried in error bodies.
const (
	codeUnauthorized  = "unauthorized"
	codeTaskNotFound  = "task_not_found"
	codeMediaNotFound = "media_not_found"
	codeInvalidValue  = "invalid_value"
	codeMediaInUse    = "media_in_use"
	codeTooLarge      = "too_large"
	codeBadRequest    = "bad_request"
	codeInternal      = "internal"
)

// ErrorBody is the JSON error payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorMapping pairs a domain error with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{task.ErrTaskNotFound, http.StatusNotFound, codeTaskNotFound},
	{backend.ErrMediaNotFound, http.StatusNotFound, codeMediaNotFound},
	{backend.ErrInvalidValue, http.StatusBadRequest, codeInvalidValue},
	{field.ErrUnknownField, http.StatusBadRequest, codeInvalidValue},
	{checklist.ErrEmptyTitle, http.StatusBadRequest, codeInvalidValue},
	{backend.ErrMediaInUse, http.StatusConflict, codeMediaInUse},
	{backend.ErrTooLarge, http.StatusRequestEntityTooLarge, codeTooLarge},
	{ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized},
}

// codeErrors maps error codes back to domain errors on the client side.
var codeErrors = map[string]error{
	codeTaskNotFound:  task.ErrTaskNotFound,
	codeMediaNotFound: backend.ErrMediaNotFound,
	codeInvalidValue:  backend.ErrInvalidValue,
	codeMediaInUse:    backend.ErrMediaInUse,
	codeTooLarge:      backend.ErrTooLarge,
	codeUnauthorized:  ErrUnauthorized,
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

// writeDomainError maps err to a status code and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	return nil
}

// APIError is a non-2xx response seen by the client.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap returns the domain error matching the code, if any.
func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

func readAPIError(resp *http.Response) error {
	var body ErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return &APIError{Status: resp.StatusCode, Code: codeInternal, Message: string(data)}
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Message}
}
