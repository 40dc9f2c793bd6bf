package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrQueryTooLong       = errors.New("query too long")
	ErrHardLengthExceeded = errors.New("query exceeds hard length limit")
	ErrSoftLengthExceeded = errors.New("query exceeds configured length limit")
	ErrUnknownKeyword     = errors.New("unknown keyword")
	ErrInvalidKeyword     = errors.New("invalid keyword definition")
	ErrClassifierNotFound = errors.New("query classifier not found")
	ErrClassifierConflict = errors.New("query classifier already registered")
	ErrInvalidConfig      = errors.New("invalid parser configuration")
	ErrSnapshotNotFound   = errors.New("analytics snapshot not found")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, ErrClassifierNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrClassifierConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrQueryTooLong),
		errors.Is(err, ErrUnknownKeyword), errors.Is(err, ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
