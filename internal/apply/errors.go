package apply

import (
	"errors"
	"net/http"
)

// Domain errors for apply operations.
var (
	ErrInvalidMode = errors.New("invalid apply mode")
	ErrNoVerdicts  = errors.New("no verdicts for the requested questions")
)

// MapHTTPStatus maps apply domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidMode) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNoVerdicts) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
