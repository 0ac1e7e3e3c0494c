package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors shared by every layer. Repositories return these (possibly
// wrapped) and handlers classify them with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidRating     = errors.New("rating out of range")
	ErrExpired           = errors.New("challenge expired")
	ErrAlreadySolved     = errors.New("challenge already solved")
	ErrChallengeRejected = errors.New("challenge answer rejected")
	ErrConsistency       = errors.New("aggregate out of sync with persisted reviews")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrInternal          = errors.New("internal error")
	ErrServiceUnavail    = errors.New("service unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error carrying every violated field. The message
// lists the field names in a stable order.
func Validation(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid fields: " + strings.Join(names, ", "),
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// InvalidRating creates a 400 error for a rating outside 1..5.
func InvalidRating(rating int) *AppError {
	return &AppError{
		Code:    "INVALID_RATING",
		Message: fmt.Sprintf("rating %d must be between 1 and 5", rating),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidRating,
	}
}

// Expired creates a 410 error. The client must request a new challenge.
func Expired(id string) *AppError {
	return &AppError{
		Code:    "CHALLENGE_EXPIRED",
		Message: fmt.Sprintf("challenge %s has expired", id),
		Status:  http.StatusGone,
		Err:     ErrExpired,
	}
}

// AlreadySolved creates a 409 error. The client must request a new challenge.
func AlreadySolved(id string) *AppError {
	return &AppError{
		Code:    "CHALLENGE_ALREADY_SOLVED",
		Message: fmt.Sprintf("challenge %s was already used", id),
		Status:  http.StatusConflict,
		Err:     ErrAlreadySolved,
	}
}

// ChallengeRejected creates a 422 error. The same challenge may be retried.
func ChallengeRejected(id string) *AppError {
	return &AppError{
		Code:    "CHALLENGE_REJECTED",
		Message: fmt.Sprintf("incorrect answer for challenge %s", id),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrChallengeRejected,
	}
}

// Consistency wraps the failure of an aggregate update that happened after the
// review was already persisted. It is never shown to the submitter.
func Consistency(businessID string, err error) *AppError {
	return &AppError{
		Code:    "CONSISTENCY_ERROR",
		Message: fmt.Sprintf("aggregate for business %s not updated", businessID),
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrConsistency, err),
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Unavailable creates a 503 error for a dependency that cannot be reached.
func Unavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadySolved):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrChallengeRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
