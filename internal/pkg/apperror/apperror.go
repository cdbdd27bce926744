// Package apperror defines the error kinds the HTTP layer knows how to render.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation Kind = "validation_error"
	KindAuth       Kind = "auth_error"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindUpload     Kind = "upload_error"
	KindInternal   Kind = "internal_server_error"
)

// Error carries a client-facing message, the HTTP status it maps to and,
// for validation failures, the per-field messages.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, apperror.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrUpload     = &Error{Kind: KindUpload}
	ErrInternal   = &Error{Kind: KindInternal}
)

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Status: fiber.StatusBadRequest, Message: message, Fields: fields}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Status: fiber.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Status: fiber.StatusForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: fiber.StatusNotFound, Message: message}
}

func Upload(message string, err error) *Error {
	return &Error{Kind: KindUpload, Status: fiber.StatusBadRequest, Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Status: fiber.StatusInternalServerError, Message: message, Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
