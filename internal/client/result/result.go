// Package result is the typed boundary between storefront HTTP responses and
// client code. Every server reply is validated into a Result before use.
package result

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

type Kind int

const (
	// NetworkUnreachable means no response was received.
	NetworkUnreachable Kind = iota + 1
	// ServerRejected means a response arrived carrying a failure.
	ServerRejected
	// Unauthorized means the credential was missing, expired or revoked.
	Unauthorized
	// Rejected means a client-side precondition failed before any request.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case NetworkUnreachable:
		return "network_unreachable"
	case ServerRejected:
		return "server_rejected"
	case Unauthorized:
		return "unauthorized"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Message is the server-provided text when
// there was one.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = genericMessage(e.Kind)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: Unauthorized}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Result is either a value or a classified error, never both.
type Result[T any] struct {
	value T
	err   *Error
}

func OK[T any](v T) Result[T] {
	return Result[T]{value: v}
}

func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{err: New(kind, message)}
}

// FromError classifies err; a nil err yields OK(v).
func FromError[T any](v T, err error) Result[T] {
	if err == nil {
		return OK(v)
	}
	var e *Error
	if errors.As(err, &e) {
		return Result[T]{err: e}
	}
	return Result[T]{err: &Error{Kind: KindOf(err), Err: err}}
}

func (r Result[T]) OK() bool {
	return r.err == nil
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() *Error {
	return r.err
}

func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// KindOf classifies any error. Transport failures are NetworkUnreachable;
// unclassified errors count as ServerRejected.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NetworkUnreachable
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return NetworkUnreachable
	default:
		return ServerRejected
	}
}

// MessageOf returns the server message carried by err, or a generic message
// for its kind.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return genericMessage(KindOf(err))
}

func genericMessage(kind Kind) string {
	switch kind {
	case NetworkUnreachable:
		return "Server unreachable. Check your connection and try again."
	case Unauthorized:
		return "Your session has expired. Please log in again."
	case Rejected:
		return "Action not allowed."
	default:
		return "Something went wrong. Please try again."
	}
}
