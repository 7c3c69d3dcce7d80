package feed

import "errors"

// Feed domain errors
var (
	// ErrNotFoundLocally is returned by single-item mutations when the
	// remote call succeeded but the target is no longer in the local
	// collection, so the field mutation has nowhere to land.
	ErrNotFoundLocally = errors.New("notification not found in local collection")

	// ErrNoInitialFetch is returned by the newer-items traversal when the
	// local collection is empty; the traversal is additive-only and needs
	// at least one known cursor to start from.
	ErrNoInitialFetch = errors.New("no initial fetch performed")

	ErrInvalidActionKind = errors.New("invalid action kind")
)
