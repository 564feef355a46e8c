package memory

import "errors"

var (
	// ErrFactNotFound is returned when a fact ID does not exist.
	ErrFactNotFound = errors.New("fact not found")

	// ErrEmbeddingUnavailable is returned when no embedding could be
	// generated and semantic operations cannot proceed.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrNoJSON is returned when model output contains no JSON payload.
	ErrNoJSON = errors.New("no JSON payload in model output")
)
