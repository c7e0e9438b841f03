// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer. Every business-rule failure is an *Error carrying a Kind and a
// client-safe message; anything else is treated as Internal.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindInvalidInput
	KindInvalidOrExpired
	KindTooManyRequests
	KindInsufficientStock
	KindInvalidState
	KindAlreadyExists
	KindDelivery
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindNotFound:          "not_found",
	KindForbidden:         "forbidden",
	KindUnauthorized:      "unauthorized",
	KindInvalidInput:      "invalid_input",
	KindInvalidOrExpired:  "invalid_or_expired",
	KindTooManyRequests:   "too_many_requests",
	KindInsufficientStock: "insufficient_stock",
	KindInvalidState:      "invalid_state",
	KindAlreadyExists:     "already_exists",
	KindDelivery:          "delivery_error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels below work with
// errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInvalidOrExpired  = &Error{Kind: KindInvalidOrExpired, Message: "invalid or expired"}
	ErrTooManyRequests   = &Error{Kind: KindTooManyRequests, Message: "too many requests"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrDelivery          = &Error{Kind: KindDelivery, Message: "delivery failed"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return newf(KindInvalidInput, format, args...)
}

func InvalidOrExpired(format string, args ...any) *Error {
	return newf(KindInvalidOrExpired, format, args...)
}

func TooManyRequests(format string, args ...any) *Error {
	return newf(KindTooManyRequests, format, args...)
}

func InsufficientStock(format string, args ...any) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidState, format, args...)
}

func AlreadyExists(format string, args ...any) *Error {
	return newf(KindAlreadyExists, format, args...)
}

// Delivery wraps a failure of an external delivery collaborator.
func Delivery(err error, msg string) *Error {
	return &Error{Kind: KindDelivery, Message: msg, Err: err}
}

// Internal wraps an unexpected failure. The cause is kept for logging and
// never shown to clients.
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
