package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies how a request failed. Callers normally only need the
// message; the kind exists for logging and metrics.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
)

// HTTPError is the single error type returned by the adapter for network
// failures, non-2xx responses and malformed bodies alike.
type HTTPError struct {
	Kind      ErrorKind
	Status    int // 0 when no response was received
	Message   string
	RequestID string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *HTTPError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// AsHTTPError unwraps err into an *HTTPError if it is one.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// errorFields are the body fields the backend uses for messages, in the
// order they are consulted.
var errorFields = []string{"error", "message", "detail", "non_field_errors"}

// statusError builds the HTTPError for a non-2xx response.
func statusError(status int, body []byte) *HTTPError {
	msg := extractMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &HTTPError{Kind: KindStatus, Status: status, Message: msg}
}

// extractMessage makes a best effort to find a human readable message in an
// error body. It returns "" when the body carries none.
func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, field := range errorFields {
		if msg := messageOf(obj[field]); msg != "" {
			return msg
		}
	}
	return ""
}

func messageOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := messageOf(item); s != "" {
				return s
			}
		}
	case map[string]any:
		// Field validation errors: {"rate": ["must be <= 100"]}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := messageOf(t[k]); s != "" {
				return k + ": " + s
			}
		}
	}
	return ""
}
