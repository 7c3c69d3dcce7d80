package store

import (
	"context"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
)

const defaultPageSize = 20

// Config holds store configuration
type Config struct {
	Predicate feed.Predicate
	PageSize  int              // default: 20
	Observer  feed.Observer    // default: no-op
	Now       func() time.Time // default: time.Now, injectable for tests
}

// Store is a client-side synchronized cache over one predicate of a
// remotely hosted, cursor-paginated notification feed. It owns the
// ordered local collection, the pagination cursor and the
// server-authoritative counters, and orchestrates every mutation so that
// local state changes only after the remote call succeeded.
//
// A Store is not safe for concurrent use. All mutating operations must
// be serialized by the caller; interleaved completions could merge a
// page against a collection already mutated by a concurrent call. Wrap
// the store in a mutex or drive it from a single goroutine.
type Store struct {
	fetcher  feed.Fetcher
	executor feed.Executor
	observer feed.Observer

	predicate feed.Predicate
	pageSize  int
	now       func() time.Time

	edges       []feed.Edge
	totalCount  int
	unreadCount int
	unseenCount int
	nextCursor  *string
	hasNextPage bool
}

// New creates a store scoped to cfg.Predicate. The predicate and page
// size are fixed for the lifetime of the store.
func New(fetcher feed.Fetcher, executor feed.Executor, cfg Config) *Store {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Observer == nil {
		cfg.Observer = feed.NopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		fetcher:     fetcher,
		executor:    executor,
		observer:    cfg.Observer,
		predicate:   cfg.Predicate,
		pageSize:    cfg.PageSize,
		now:         cfg.Now,
		hasNextPage: true,
	}
}

// Edges returns a copy of the local collection in feed order.
func (s *Store) Edges() []feed.Edge {
	out := make([]feed.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Len returns the number of edges in the local collection.
func (s *Store) Len() int {
	return len(s.edges)
}

// Get returns the edge at index i.
func (s *Store) Get(i int) feed.Edge {
	return s.edges[i]
}

// TotalCount returns the feed-wide total as of the last received page.
func (s *Store) TotalCount() int {
	return s.totalCount
}

// UnreadCount returns the feed-wide unread count as of the last received page.
func (s *Store) UnreadCount() int {
	return s.unreadCount
}

// UnseenCount returns the feed-wide unseen count as of the last received page.
func (s *Store) UnseenCount() int {
	return s.unseenCount
}

// HasNextPage reports whether the most recent forward page announced
// more items. True before any fetch.
func (s *Store) HasNextPage() bool {
	return s.hasNextPage
}

// Predicate returns the immutable predicate scoping this store.
func (s *Store) Predicate() feed.Predicate {
	return s.predicate
}

// Refresh discards all local state and loads the first page. On failure
// local state is untouched. In-flight single-item mutations issued
// before a refresh may later report feed.ErrNotFoundLocally; that is a
// recoverable condition, not a defect.
func (s *Store) Refresh(ctx context.Context) ([]feed.Edge, error) {
	page, err := s.fetcher.FetchPage(ctx, s.predicate, feed.PageRequest{Size: s.pageSize})
	if err != nil {
		return nil, err
	}

	s.reset()
	s.applyForwardPage(page)
	s.observer.Reloaded()

	return s.Edges(), nil
}

// Fetch loads the next page and appends it to the local collection,
// returning only the newly appended edges. Once the feed reported no
// next page, Fetch succeeds immediately with an empty result and does
// not call the fetcher. A Fetch before any Refresh issues a first-page
// request.
func (s *Store) Fetch(ctx context.Context) ([]feed.Edge, error) {
	if !s.hasNextPage {
		return nil, nil
	}

	req := feed.PageRequest{Size: s.pageSize}
	if s.nextCursor != nil {
		req.After = *s.nextCursor
	}

	page, err := s.fetcher.FetchPage(ctx, s.predicate, req)
	if err != nil {
		return nil, err
	}

	offset := len(s.edges)
	s.applyForwardPage(page)

	if len(page.Edges) > 0 {
		s.observer.Inserted(indexRange(offset, len(page.Edges)))
	}

	out := make([]feed.Edge, len(page.Edges))
	copy(out, page.Edges)
	return out, nil
}

// FetchAllNewer synchronizes everything added upstream since the cursor
// at the head of the local collection, walking backward page by page
// until the feed reports no previous page. The accumulated edges are
// prepended as one batch; nothing is committed if any step fails. Each
// step depends on the previous step's start cursor, so the traversal is
// strictly sequential.
func (s *Store) FetchAllNewer(ctx context.Context) ([]feed.Edge, error) {
	if len(s.edges) == 0 {
		return nil, feed.ErrNoInitialFetch
	}

	var (
		newer   []feed.Edge
		counted bool
		total   int
		unread  int
		unseen  int
	)

	cursor := s.edges[0].Cursor
	for {
		page, err := s.fetcher.FetchPage(ctx, s.predicate, feed.PageRequest{
			Size:   s.pageSize,
			Before: cursor,
		})
		if err != nil {
			return nil, err
		}

		newer = append(append([]feed.Edge{}, page.Edges...), newer...)
		total, unread, unseen = page.TotalCount, page.UnreadCount, page.UnseenCount
		counted = true

		if !page.PageInfo.HasPreviousPage || page.PageInfo.StartCursor == nil {
			break
		}
		cursor = *page.PageInfo.StartCursor
	}

	if counted {
		s.totalCount, s.unreadCount, s.unseenCount = total, unread, unseen
	}
	if len(newer) > 0 {
		s.edges = append(append([]feed.Edge{}, newer...), s.edges...)
		s.observer.Inserted(indexRange(0, len(newer)))
	}

	out := make([]feed.Edge, len(newer))
	copy(out, newer)
	return out, nil
}

// Delete removes the notification remotely and, on success, drops it
// from the local collection. A missing local match after a successful
// remote delete is not an error; the net state is already correct.
// Counters are deliberately left stale until the next fetch or refresh,
// matching the feed API contract that counters are server snapshots.
func (s *Store) Delete(ctx context.Context, itemID string) error {
	if err := s.executor.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	i := s.indexOf(itemID)
	if i < 0 {
		return nil
	}

	s.edges = append(s.edges[:i], s.edges[i+1:]...)
	s.observer.Deleted([]int{i})
	return nil
}

// MarkAsRead marks the notification read remotely, then stamps its read
// and seen timestamps locally.
func (s *Store) MarkAsRead(ctx context.Context, itemID string) error {
	return s.applyAction(ctx, feed.ActionMarkAsRead, itemID, func(n *feed.Notification) bool {
		return feed.SetRead(n, s.now())
	})
}

// MarkAsUnread clears the notification's read timestamp after the remote
// call succeeds.
func (s *Store) MarkAsUnread(ctx context.Context, itemID string) error {
	return s.applyAction(ctx, feed.ActionMarkAsUnread, itemID, feed.ClearRead)
}

// Archive stamps the notification's archived timestamp after the remote
// call succeeds.
func (s *Store) Archive(ctx context.Context, itemID string) error {
	return s.applyAction(ctx, feed.ActionArchive, itemID, func(n *feed.Notification) bool {
		return feed.SetArchived(n, s.now())
	})
}

// Unarchive clears the notification's archived timestamp after the
// remote call succeeds.
func (s *Store) Unarchive(ctx context.Context, itemID string) error {
	return s.applyAction(ctx, feed.ActionUnarchive, itemID, feed.ClearArchived)
}

// MarkAllRead marks the whole feed read remotely, then stamps the read
// timestamp of every local notification that does not already have one.
func (s *Store) MarkAllRead(ctx context.Context) error {
	return s.applyBulkAction(ctx, feed.ActionMarkAllRead, func(n *feed.Notification, now time.Time) bool {
		return feed.SetReadIfUnset(n, now)
	})
}

// MarkAllSeen marks the whole feed seen remotely, then stamps the seen
// timestamp of every local notification that does not already have one.
func (s *Store) MarkAllSeen(ctx context.Context) error {
	return s.applyBulkAction(ctx, feed.ActionMarkAllSeen, func(n *feed.Notification, now time.Time) bool {
		return feed.SetSeenIfUnset(n, now)
	})
}

// Clear resets the store to its initial empty state without touching the
// remote feed.
func (s *Store) Clear() {
	s.reset()
	s.observer.Reloaded()
}

// applyAction runs a single-item action remotely and, on success,
// applies the transform to the local target. A missing local target is
// feed.ErrNotFoundLocally: unlike delete, the mutation has nowhere to
// land.
func (s *Store) applyAction(ctx context.Context, kind feed.ActionKind, itemID string, transform func(*feed.Notification) bool) error {
	if err := s.executor.PerformAction(ctx, kind, itemID); err != nil {
		return err
	}

	i := s.indexOf(itemID)
	if i < 0 {
		return feed.ErrNotFoundLocally
	}

	if transform(s.edges[i].Notification) {
		s.observer.Updated([]int{i})
	}
	return nil
}

// applyBulkAction runs a bulk action remotely and, on success, applies
// the transform to every local notification, reporting only the indices
// it actually changed.
func (s *Store) applyBulkAction(ctx context.Context, kind feed.ActionKind, transform func(*feed.Notification, time.Time) bool) error {
	if err := s.executor.PerformAction(ctx, kind, ""); err != nil {
		return err
	}

	now := s.now()
	var changed []int
	for i := range s.edges {
		if transform(s.edges[i].Notification, now) {
			changed = append(changed, i)
		}
	}
	if len(changed) > 0 {
		s.observer.Updated(changed)
	}
	return nil
}

// applyForwardPage appends a forward page and adopts its pagination
// metadata and counters.
func (s *Store) applyForwardPage(page *feed.PageResult) {
	s.edges = append(s.edges, page.Edges...)
	s.hasNextPage = page.PageInfo.HasNextPage
	if page.PageInfo.EndCursor != nil {
		cursor := *page.PageInfo.EndCursor
		s.nextCursor = &cursor
	}
	s.totalCount = page.TotalCount
	s.unreadCount = page.UnreadCount
	s.unseenCount = page.UnseenCount
}

func (s *Store) reset() {
	s.edges = nil
	s.totalCount = 0
	s.unreadCount = 0
	s.unseenCount = 0
	s.nextCursor = nil
	s.hasNextPage = true
}

func (s *Store) indexOf(itemID string) int {
	for i := range s.edges {
		if s.edges[i].Notification != nil && s.edges[i].Notification.ID == itemID {
			return i
		}
	}
	return -1
}

func indexRange(offset, n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = offset + i
	}
	return indices
}
