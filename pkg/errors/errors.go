package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a custom error type that includes an HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest = NewAppError(http.StatusBadRequest, "Invalid request parameters")
	ErrUnauthorized   = NewAppError(http.StatusUnauthorized, "Unauthorized access")
	ErrForbidden      = NewAppError(http.StatusForbidden, "Access denied")
	ErrNotFoundHTTP   = NewAppError(http.StatusNotFound, "Resource not found")
	ErrInternalServer = NewAppError(http.StatusInternalServerError, "Internal server error")
	ErrRateLimit      = NewAppError(http.StatusTooManyRequests, "Rate limit exceeded")
)

func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg)
}

// Messaging error taxonomy. Stores raise these; the REST layer maps them
// to status codes with ToAppError, the socket layer forwards the message
// to the acting connection only.
var (
	// ErrNoProfile: the acting account has no alumni profile yet. Permanent
	// until the profile service creates one; callers must not retry blindly.
	ErrNoProfile = errors.New("account has no alumni profile")

	// ErrNotFound: the referenced message, key or identity does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNotAllowed: the actor is not the sender/receiver the operation requires.
	ErrNotAllowed = errors.New("operation not permitted for this profile")

	// ErrMessageDeleted: mutation attempted on a soft-deleted message.
	ErrMessageDeleted = errors.New("message has been deleted")

	// ErrSelfMessage: sender and receiver resolve to the same profile. Also
	// enforced by a CHECK constraint on the messages table.
	ErrSelfMessage = errors.New("cannot send a message to yourself")
)

// StorageError wraps a failed storage call. Nothing was committed, so the
// whole operation is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a transient StorageError, or returns nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ToAppError maps a taxonomy error onto the HTTP response it should produce.
func ToAppError(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoProfile):
		return NewAppError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAllowed):
		return NewAppError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMessageDeleted), errors.Is(err, ErrSelfMessage):
		return NewAppError(http.StatusConflict, err.Error())
	case IsTransient(err):
		return NewAppError(http.StatusInternalServerError, "Storage temporarily unavailable, retry the request")
	default:
		return ErrInternalServer
	}
}
