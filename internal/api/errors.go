package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrTransport = errors.New("api: transport failure")
	ErrNotFound  = errors.New("api: not found")
)

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string // The body's "message" field, if present.
	Body       string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// ServerMessage returns the human-readable message supplied by the server.
func (e *Error) ServerMessage() string {
	return e.Message
}

//nolint:errorlint
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// newError builds an *Error from a response status and raw body.
func newError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
	}
	// Non-JSON bodies simply carry no message.
	_ = json.Unmarshal(body, &payload)
	msg := payload.Message
	// A blank message counts as no message; anything else is kept verbatim.
	if strings.TrimSpace(msg) == "" {
		msg = ""
	}
	return &Error{
		StatusCode: status,
		Message:    msg,
		Body:       string(body),
	}
}
