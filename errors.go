package wikisearch

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrorCode represents specific error codes for search operations.
type ErrorCode int

const (
	// ErrCodeEmptyQuery is returned when an empty query is provided.
	ErrCodeEmptyQuery ErrorCode = iota + 1000

	// ErrCodeInvalidOption is returned when an invalid option is provided.
	ErrCodeInvalidOption

	// ErrCodeInvalidExpression is returned when an invalid expression is provided.
	ErrCodeInvalidExpression

	// ErrCodeTimeout is returned when a search operation times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when a search operation is canceled.
	ErrCodeCanceled

	// ErrCodeNotImplemented is returned when a feature is not implemented.
	ErrCodeNotImplemented

	// ErrCodeBackendUnavailable is returned when the search backend is unavailable.
	ErrCodeBackendUnavailable

	// ErrCodeInvalidQuery is returned when search or suggestion parameters
	// fail validation.
	ErrCodeInvalidQuery
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeEmptyQuery:
		return "empty query"
	case ErrCodeInvalidOption:
		return "invalid option"
	case ErrCodeInvalidExpression:
		return "invalid expression"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeNotImplemented:
		return "not implemented"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	case ErrCodeInvalidQuery:
		return "invalid query"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Common errors that can be returned by search operations.
var (
	ErrEmptyQuery         = newErrorWithCode(ErrCodeEmptyQuery, "wikisearch: empty query")
	ErrInvalidOption      = newErrorWithCode(ErrCodeInvalidOption, "wikisearch: invalid option")
	ErrInvalidExpression  = newErrorWithCode(ErrCodeInvalidExpression, "wikisearch: invalid expression")
	ErrTimeout            = newErrorWithCode(ErrCodeTimeout, "wikisearch: operation timed out")
	ErrCanceled           = newErrorWithCode(ErrCodeCanceled, "wikisearch: operation canceled")
	ErrNotImplemented     = newErrorWithCode(ErrCodeNotImplemented, "wikisearch: not implemented")
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "wikisearch: backend unavailable")
	ErrInvalidQuery       = newErrorWithCode(ErrCodeInvalidQuery, "wikisearch: invalid query")
)

// ContextError maps a finished context to ErrCanceled or ErrTimeout.
func ContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCanceled
}
