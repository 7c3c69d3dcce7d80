package feed

import (
	"context"
)

// Fetcher retrieves pages from the remote feed. Implementations own
// request construction, auth and payload decoding; the store treats any
// failure, including malformed payloads, as an opaque remote failure and
// never retries.
type Fetcher interface {
	FetchPage(ctx context.Context, predicate Predicate, req PageRequest) (*PageResult, error)
}

// Executor performs remote state changes. For bulk kinds itemID is
// empty. A nil error means the remote change is committed; only then may
// the store mutate local state.
type Executor interface {
	PerformAction(ctx context.Context, kind ActionKind, itemID string) error
	DeleteItem(ctx context.Context, itemID string) error
}
