package search

import "errors"

var (
	// ErrNotFound means no series matched by id, exact title, or fuzzy
	// title. A normal negative result, not an exceptional condition.
	ErrNotFound = errors.New("series not found")

	// ErrInvalidArgs means the caller supplied neither a name nor an id
	ErrInvalidArgs = errors.New("either a name or an anidb id is required")
)
