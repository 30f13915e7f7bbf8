package anidb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fetch gate
var (
	// ErrBanned means AniDB has rejected us; no further requests go out
	// until the ban window elapses
	ErrBanned = errors.New("banned from anidb")

	// ErrEmptyDocument means the upstream answered with no body
	ErrEmptyDocument = errors.New("empty document from anidb")

	// ErrBudgetExhausted means the session soft cap blocks this request
	// until the cool-down elapses
	ErrBudgetExhausted = errors.New("anidb session budget exhausted")
)

// StatusError represents a non-200 answer from the upstream
type StatusError struct {
	Code int
	URL  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("anidb returned status %d for %s", e.Code, e.URL)
}

// IsBanned checks whether an error chain contains a ban
func IsBanned(err error) bool {
	return errors.Is(err, ErrBanned)
}
