// Package apierr classifies catalog failures into the categories the screens
// render differently: offline, timed out, rejected, or broken server.
package apierr

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-faster/errors"
)

// Kind is the failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindClient
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	DefaultMessage  = "Something went wrong. Please try again."
	NetworkMessage  = "No internet connection. Please check your network."
	TimeoutMessage  = "The request timed out. Please try again."
	CanceledMessage = "The request was canceled."
)

var fallbackMessages = map[int]string{
	http.StatusBadRequest:          "The request was invalid. Please check your input.",
	http.StatusUnauthorized:        "Your session has expired. Please log in again.",
	http.StatusForbidden:           "You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusConflict:            "A conflict occurred. The resource may already exist.",
	http.StatusUnprocessableEntity: "Validation failed. Please check the highlighted fields.",
	http.StatusTooManyRequests:     "Too many requests. Please wait a moment and try again.",
	http.StatusInternalServerError: "A server error occurred. Please try again later.",
	http.StatusBadGateway:          "The server is temporarily unavailable. Please try again.",
	http.StatusServiceUnavailable:  "The service is currently unavailable. Please try again later.",
}

// FallbackMessage returns the message shown for a status when the server
// did not send one.
func FallbackMessage(status int) string {
	if msg, ok := fallbackMessages[status]; ok {
		return msg
	}
	return DefaultMessage
}

// Error is a classified catalog failure.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsOffline reports whether the request never got a response, so cached
// content is the best the client can show.
func (e *Error) IsOffline() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// FieldError returns the first validation message for field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// responseBody is the error envelope the API returns.
type responseBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// FromResponse classifies a non-2xx response.
func FromResponse(status int, body []byte) *Error {
	var rb responseBody
	_ = json.Unmarshal(body, &rb)

	e := &Error{
		Kind:    KindUnknown,
		Status:  status,
		Message: rb.Message,
		Fields:  rb.Errors,
	}
	switch {
	case status >= 400 && status < 500:
		e.Kind = KindClient
	case status >= 500:
		e.Kind = KindServer
	}
	if e.Message == "" {
		e.Message = FallbackMessage(status)
	}
	return e
}

// FromTransport classifies an error returned before any response arrived.
func FromTransport(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnknown, Message: CanceledMessage, Err: err}
	}
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Message: TimeoutMessage, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: NetworkMessage, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Classify returns the *Error in err's chain, or wraps err as KindUnknown.
// It returns nil for a nil error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := err.Error()
	if msg == "" {
		msg = DefaultMessage
	}
	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}
