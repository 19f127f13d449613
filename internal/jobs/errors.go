package jobs

import (
	"errors"
	"net/http"
)

// Domain errors for job operations.
var (
	ErrNotFound       = errors.New("job not found")
	ErrDuplicate      = errors.New("job already exists")
	ErrNoQuestions    = errors.New("no valid question ids")
	ErrNotCancellable = errors.New("job is not in a cancellable state")
	ErrNotTerminal    = errors.New("job has not finished")
)

// MapHTTPStatus maps job domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNoQuestions) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNotCancellable) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotTerminal) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
