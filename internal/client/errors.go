package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is matched by errors returned when a 401 could not be
// recovered by renewing the session.
var ErrSessionExpired = errors.New("session expired")

// SessionExpiredError carries the renewal failure behind an expired session.
type SessionExpiredError struct {
	Cause error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSessionExpired, e.Cause)
}

// Is makes errors.Is(err, ErrSessionExpired) hold.
func (e *SessionExpiredError) Is(target error) bool { return target == ErrSessionExpired }

// Unwrap exposes the renewal error.
func (e *SessionExpiredError) Unwrap() error { return e.Cause }

// APIError is a non-2xx response from the backend. Message is the server's
// own message and may be empty.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// errorBody is the backend's error envelope. Both "message" and "error" are seen.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		e.Code = eb.Code
		e.Message = eb.Message
		if e.Message == "" {
			e.Message = eb.Error
		}
	}
	return e
}

// StatusCode returns the HTTP status of err when it is an *APIError, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
