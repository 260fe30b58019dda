// Package apperr defines the error taxonomy shared by the directory, the
// verification flows and the presence engine, and its mapping to HTTP status
// classes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	InvalidOTP
	CooldownActive
	Unauthorized
	UpstreamUnavailable
	UpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidOTP:
		return "invalid_otp"
	case CooldownActive:
		return "cooldown_active"
	case Unauthorized:
		return "unauthorized"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case UpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal"
	}
}

// Error is a classified failure. Field is set for conflicts on a unique
// contact value; RetryAfter (seconds) is set for cooldown rejections.
type Error struct {
	Kind       Kind
	Message    string
	Field      string
	RetryAfter int
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error of the same kind and message, so package level
// sentinels keep working after being wrapped or copied with extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err without exposing it through Message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// Duplicate reports a unique-key collision on field. Only the field name is
// surfaced to callers.
func Duplicate(field string) *Error {
	return &Error{
		Kind:    Conflict,
		Message: fmt.Sprintf("Duplicate value found for %s. Please use a different %s.", field, field),
		Field:   field,
	}
}

// Cooldown reports an OTP re-issue attempted before the cooldown elapsed.
func Cooldown(remainingSeconds int) *Error {
	return &Error{
		Kind:       CooldownActive,
		Message:    fmt.Sprintf("Please wait %d seconds before requesting a new OTP", remainingSeconds),
		RetryAfter: remainingSeconds,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, InvalidOTP:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case CooldownActive:
		return http.StatusTooManyRequests
	case Unauthorized:
		return http.StatusUnauthorized
	case UpstreamUnavailable:
		return http.StatusBadGateway
	case UpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
