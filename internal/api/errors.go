package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any 401 returned by the panel.
var ErrUnauthorized = errors.New("401 unauthorized")

// Error is a non-2xx panel response. Error() yields the backend detail so it
// can be fed straight into the localized error mapper.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("http %d", e.Status)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TransportError covers everything that failed before a usable response was
// decoded: dialing, TLS, timeouts, malformed bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport marks the error as coming from below the panel API, so its text is
// Go's and not a backend detail.
func (e *TransportError) Transport() bool { return true }

// detailFrom pulls "detail" out of a FastAPI-style error body. Validation
// errors carry a list there; those are flattened to their messages.
func detailFrom(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return "invalid input: " + strings.Join(msgs, "; ")
		}
	}
	return string(payload.Detail)
}
