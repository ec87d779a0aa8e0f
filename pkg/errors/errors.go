package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API-facing failure: a stable code, the HTTP status it maps to,
// a user-facing message and optional per-field messages. The wrapped cause
// is never serialised.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithField returns a copy carrying an additional field message.
func (e *Error) WithField(field, message string) *Error {
	if e == nil {
		return nil
	}
	clone := e.copy()
	if clone.Fields == nil {
		clone.Fields = make(map[string]string, 1)
	}
	clone.Fields[field] = message
	return clone
}

func (e *Error) copy() *Error {
	clone := *e
	if e.Fields != nil {
		clone.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps err as the cause behind a typed error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	// Request and identity.
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")

	// Stored state.
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")

	// Attendance marking rules.
	ErrNoTimetable     = New("NO_TIMETABLE", http.StatusUnprocessableEntity, "No timetable exists for this course; contact an administrator.")
	ErrNotScheduledDay = New("NOT_SCHEDULED_DAY", http.StatusUnprocessableEntity, "Attendance can only be marked on scheduled days. If this is a make-up lecture, set is_make_up.")

	ErrInternal  = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if target == nil {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Code == target.Code
}

// FromError returns the typed error inside err, or wraps err as INTERNAL_ERROR.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies err, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := err.copy()
	if message != "" {
		clone.Message = message
	}
	return clone
}
