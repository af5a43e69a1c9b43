// Package errors provides coded application errors shared by the order service layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies an error for callers such as the HTTP layer.
type Code string

const (
	ErrCodeNotFound               Code = "NOT_FOUND"
	ErrCodeValidation             Code = "VALIDATION_FAILED"
	ErrCodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	ErrCodeUnauthorized           Code = "UNAUTHORIZED"
	ErrCodeConflict               Code = "CONFLICT"
	ErrCodeDatabaseError          Code = "DATABASE_ERROR"
	ErrCodeInternalError          Code = "INTERNAL_ERROR"
)

// AppError carries a code, a caller-facing message and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError with the same code and message, so package
// level sentinels can be compared with errors.Is after wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates an AppError without a cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around err.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrCodeInternalError when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsCode reports whether the outermost AppError in err's chain has code.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the caller-facing message of the outermost AppError.
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal Server Error"
}
