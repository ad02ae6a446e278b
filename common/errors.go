package common

import (
	"errors"
	"net/http"
)

type ErrorKind int

const (
	KindProcessing ErrorKind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindRateLimit
)

// Error is the error type handlers turn into an error envelope. Data, when
// set, is sent as the envelope's data field.
type Error struct {
	Kind    ErrorKind
	Message string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status())
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindProcessing:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func AuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func AuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func RateLimitError(message string) *Error {
	return &Error{Kind: KindRateLimit, Message: message}
}

// ProcessingError wraps a storage or other unexpected failure. Callers see
// the wrapped error's message.
func ProcessingError(err error) *Error {
	return &Error{Kind: KindProcessing, Err: err}
}

// AsError returns err as *Error, wrapping anything unclassified as a
// processing error.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ProcessingError(err)
}

func IsKind(err error, kind ErrorKind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
