package errcode

import (
	"context"
	"errors"
	"fmt"
)

// Kind 是返回给客户端的稳定错误类别。
type Kind string

const (
	Validation         Kind = "validation_error"
	Conflict           Kind = "conflict"
	InvalidCredentials Kind = "invalid_credentials"
	Unauthorized       Kind = "unauthorized"
	Forbidden          Kind = "forbidden"
	NotFound           Kind = "not_found"
	InvalidOrExpired   Kind = "invalid_or_expired"
	RateLimited        Kind = "rate_limited"
	Unavailable        Kind = "service_unavailable"
	Internal           Kind = "server_error"
)

// Error carries a client-facing kind and message. Fields holds per-field
// validation messages keyed by JSON field name.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause that is logged but never shown to the client.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ValidationFailed reports every violated field rule at once.
func ValidationFailed(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "validation failed", Fields: fields}
}

// KindOf classifies any error. Deadline overruns map to Unavailable so a
// slow store surfaces as 503 instead of 500.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
