package lectures

import "errors"

// Domain errors for lecture lookups.
var (
	ErrNotFound   = errors.New("lecture not found")
	ErrEmptyScope = errors.New("scope resolves to no lectures")
)
