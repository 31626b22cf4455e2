package apperror

import (
	"errors"
	"net/http"
)

type Error struct {
	Code       string
	Message    string
	StatusCode int
	Internal   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Internal
}

var (
	ErrNotFound = &Error{
		Code:       "not_found",
		Message:    "The requested resource was not found",
		StatusCode: http.StatusNotFound,
	}

	ErrVideoNotFound = &Error{
		Code:       "video_not_found",
		Message:    "Video not found",
		StatusCode: http.StatusNotFound,
	}

	ErrVideoNotReady = &Error{
		Code:       "video_not_ready",
		Message:    "Video has no playable renditions yet",
		StatusCode: http.StatusConflict,
	}

	ErrQualityNotFound = &Error{
		Code:       "quality_not_found",
		Message:    "The requested quality is not available for this video",
		StatusCode: http.StatusNotFound,
	}

	ErrUnauthorized = &Error{
		Code:       "unauthorized",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:       "forbidden",
		Message:    "You don't have permission to access this resource",
		StatusCode: http.StatusForbidden,
	}

	ErrBadRequest = &Error{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidRange = &Error{
		Code:       "invalid_range",
		Message:    "Malformed Range header",
		StatusCode: http.StatusBadRequest,
	}

	ErrMissingFile = &Error{
		Code:       "missing_file",
		Message:    "A file field is required",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidSignature = &Error{
		Code:       "invalid_signature",
		Message:    "Webhook signature verification failed",
		StatusCode: http.StatusUnauthorized,
	}

	ErrFileTooLarge = &Error{
		Code:       "file_too_large",
		Message:    "The uploaded file exceeds the maximum allowed size",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrInvalidFileType = &Error{
		Code:       "invalid_file_type",
		Message:    "Only video files can be uploaded",
		StatusCode: http.StatusBadRequest,
	}

	ErrRangeNotSatisfiable = &Error{
		Code:       "range_not_satisfiable",
		Message:    "The requested range cannot be satisfied",
		StatusCode: http.StatusRequestedRangeNotSatisfiable,
	}

	ErrInternal = &Error{
		Code:       "internal_error",
		Message:    "An unexpected error occurred. Please try again later",
		StatusCode: http.StatusInternalServerError,
	}

	ErrQueueUnavailable = &Error{
		Code:       "queue_unavailable",
		Message:    "Processing queue is unavailable. Please try again later",
		StatusCode: http.StatusServiceUnavailable,
	}
)

func New(code, message string, statusCode int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Wrap(err error, appErr *Error) *Error {
	return &Error{
		Code:       appErr.Code,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
		Internal:   err,
	}
}

func WrapWithMessage(err error, code, message string, statusCode int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

func Is(err error, target *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func SafeMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}
