package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when the request data is not acceptable. Mapped to 400.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when a record does not exist or does not belong to the caller. Mapped to 404.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err NotFoundError) Error() string {
	return err.msg
}

// ForbiddenError is returned when the caller is not allowed to perform an action. Mapped to 403.
type ForbiddenError struct {
	msg string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{msg: msg}
}

func (err ForbiddenError) Error() string {
	return err.msg
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
