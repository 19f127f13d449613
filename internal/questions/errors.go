package questions

import "errors"

// Domain errors for question lookups.
var (
	ErrNotFound = errors.New("question not found")
)
