package error

import (
	"errors"
	"net/http"

	"github.com/fixora/tasktrail/internal/domain"
)

// AppError is an error with the HTTP status and code it is reported as
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest      = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthorized    = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden       = &AppError{Code: "FORBIDDEN", Message: "Forbidden", Status: http.StatusForbidden}
	ErrNotFound        = &AppError{Code: "NOT_FOUND", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServer  = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrConflict        = &AppError{Code: "CONFLICT", Message: "Conflict", Status: http.StatusConflict}
	ErrTooManyRequests = &AppError{Code: "TOO_MANY_REQUESTS", Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests}
)

func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: http.StatusConflict}
}

var (
	badRequest = []error{
		domain.ErrInvalidTitle,
		domain.ErrInvalidStatus,
		domain.ErrInvalidPriority,
		domain.ErrInvalidDeadline,
		domain.ErrInvalidEmail,
		domain.ErrWeakPassword,
		domain.ErrInvalidRole,
		domain.ErrInvalidTeamName,
		domain.ErrEmptyComment,
		domain.ErrInvalidAuditFilter,
	}
	notFound = []error{
		domain.ErrTaskNotFound,
		domain.ErrUserNotFound,
		domain.ErrTeamNotFound,
		domain.ErrCommentNotFound,
		domain.ErrNotMember,
	}
	conflict = []error{
		domain.ErrEmailTaken,
		domain.ErrAlreadyMember,
		domain.ErrTaskClosed,
	}
)

// MapError converts a use case error into the AppError it is reported as.
// Unknown errors become a generic internal error so details never leak.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case isAny(err, badRequest):
		return NewBadRequest(err.Error())
	case isAny(err, notFound):
		return NewNotFound(err.Error())
	case isAny(err, conflict):
		return NewConflict(err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return NewUnauthorized(err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return NewForbidden(err.Error())
	case errors.Is(err, domain.ErrTooManyAttempts):
		return &AppError{Code: ErrTooManyRequests.Code, Message: err.Error(), Status: ErrTooManyRequests.Status}
	default:
		return NewInternalServer("An unexpected error occurred")
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
