// Package apperr defines the tagged error kinds every fallible room
// operation returns. The HTTP adapters are the only place that
// translate a Kind into a status code.
package apperr

import "fmt"

// Kind classifies a failure so callers at the HTTP boundary can map it
// to a status code without inspecting error strings.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// AppError is the sum type Ok(T) | Err(Kind{msg, details}) from the
// design notes, realized as a single concrete error type.
type AppError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

func Validation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func Internal(msg string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, cause: cause}
}

// As reports whether err is an *AppError and returns it.
func As(err error) (*AppError, bool) {
	ae, ok := err.(*AppError)
	return ae, ok
}

// KindOf returns the Kind of err, defaulting to KindInternal for any
// error that isn't an *AppError (unclassified I/O / decode failures).
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}
