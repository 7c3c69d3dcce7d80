package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote failure")

// fakeFetcher replays a scripted sequence of pages and records every
// request it received.
type fakeFetcher struct {
	pages    []*feed.PageResult
	err      error
	requests []feed.PageRequest
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ feed.Predicate, req feed.PageRequest) (*feed.PageResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return &feed.PageResult{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

// fakeExecutor records actions and optionally fails.
type fakeExecutor struct {
	err     error
	actions []string
}

func (e *fakeExecutor) PerformAction(_ context.Context, kind feed.ActionKind, itemID string) error {
	e.actions = append(e.actions, string(kind)+":"+itemID)
	return e.err
}

func (e *fakeExecutor) DeleteItem(_ context.Context, itemID string) error {
	e.actions = append(e.actions, "delete:"+itemID)
	return e.err
}

// recordingObserver captures every event in arrival order.
type recordingObserver struct {
	events []string
}

func (o *recordingObserver) Reloaded() {
	o.events = append(o.events, "reloaded")
}

func (o *recordingObserver) Inserted(indices []int) {
	o.events = append(o.events, fmt.Sprintf("inserted%v", indices))
}

func (o *recordingObserver) Updated(indices []int) {
	o.events = append(o.events, fmt.Sprintf("updated%v", indices))
}

func (o *recordingObserver) Deleted(indices []int) {
	o.events = append(o.events, fmt.Sprintf("deleted%v", indices))
}

func strptr(s string) *string { return &s }

func edge(id string) feed.Edge {
	return feed.Edge{Cursor: "cur-" + id, Notification: &feed.Notification{ID: id}}
}

func page(hasNext bool, end string, edges ...feed.Edge) *feed.PageResult {
	p := &feed.PageResult{
		Edges:       edges,
		PageInfo:    feed.PageInfo{HasNextPage: hasNext},
		TotalCount:  len(edges),
		UnreadCount: len(edges),
	}
	if end != "" {
		p.PageInfo.EndCursor = strptr(end)
	}
	return p
}

func ids(edges []feed.Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Notification.ID
	}
	return out
}

func newStore(f *fakeFetcher, e *fakeExecutor, obs feed.Observer) *Store {
	return New(f, e, Config{
		PageSize: 20,
		Observer: obs,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func TestFetch_AppendsPagesInCallOrder(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(true, "c2", edge("n1"), edge("n2")),
		page(true, "c4", edge("n3"), edge("n4")),
		page(false, "c5", edge("n5")),
	}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Fetch(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "n5"}, ids(s.Edges()))
	assert.False(t, s.HasNextPage())

	// Cursor chaining: first page has no cursor, then each request
	// carries the previous page's end cursor.
	require.Len(t, fetcher.requests, 3)
	assert.Empty(t, fetcher.requests[0].After)
	assert.Equal(t, "c2", fetcher.requests[1].After)
	assert.Equal(t, "c4", fetcher.requests[2].After)
}

func TestRefresh_ResetsToFirstPage(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(true, "c3", edge("n1"), edge("n2"), edge("n3")),
		{
			Edges:       []feed.Edge{edge("m1")},
			PageInfo:    feed.PageInfo{HasNextPage: true, EndCursor: strptr("d1")},
			TotalCount:  41,
			UnreadCount: 7,
			UnseenCount: 3,
		},
	}}
	obs := &recordingObserver{}
	s := newStore(fetcher, &fakeExecutor{}, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	got, err := s.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, ids(got))
	assert.Equal(t, []string{"m1"}, ids(s.Edges()))
	assert.Equal(t, 41, s.TotalCount())
	assert.Equal(t, 7, s.UnreadCount())
	assert.Equal(t, 3, s.UnseenCount())
	assert.Equal(t, "reloaded", obs.events[len(obs.events)-1])

	// Pagination continues from the refreshed page, not the old cursor.
	_, err = s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d1", fetcher.requests[len(fetcher.requests)-1].After)
}

func TestRefresh_FailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c2", edge("n1"), edge("n2"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	fetcher.err = errRemote
	_, err = s.Refresh(ctx)

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"n1", "n2"}, ids(s.Edges()))
	assert.Equal(t, 2, s.TotalCount())
}

func TestFetch_TerminalPageShortCircuits(t *testing.T) {
	t.Parallel()
	// Scenario A: one short page, then idempotent terminal calls.
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(false, "c5", edge("n1"), edge("n2"), edge("n3"), edge("n4"), edge("n5")),
	}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	got, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 5, s.Len())

	got, err = s.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, fetcher.requests, 1, "terminal fetch must not hit the network")
}

func TestFetch_FailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{err: errRemote}
	s := newStore(fetcher, &fakeExecutor{}, nil)

	_, err := s.Fetch(context.Background())

	assert.ErrorIs(t, err, errRemote)
	assert.Zero(t, s.Len())
	assert.True(t, s.HasNextPage())
}

func TestFetchAllNewer_WalksBackwardAndPrependsOnce(t *testing.T) {
	t.Parallel()
	// P6: three backward pages, only the last reports no previous page.
	p3 := &feed.PageResult{
		Edges:       []feed.Edge{edge("p3a"), edge("p3b")},
		PageInfo:    feed.PageInfo{HasPreviousPage: true, StartCursor: strptr("s3")},
		TotalCount:  10,
		UnreadCount: 4,
	}
	p2 := &feed.PageResult{
		Edges:    []feed.Edge{edge("p2a")},
		PageInfo: feed.PageInfo{HasPreviousPage: true, StartCursor: strptr("s2")},
	}
	p1 := &feed.PageResult{
		Edges:       []feed.Edge{edge("p1a"), edge("p1b")},
		PageInfo:    feed.PageInfo{HasPreviousPage: false},
		TotalCount:  12,
		UnreadCount: 9,
		UnseenCount: 5,
	}
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(false, "c1", edge("old1"), edge("old2")),
		p3, p2, p1,
	}}
	obs := &recordingObserver{}
	s := newStore(fetcher, &fakeExecutor{}, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	got, err := s.FetchAllNewer(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1a", "p1b", "p2a", "p3a", "p3b"}, ids(got))
	assert.Equal(t, []string{"p1a", "p1b", "p2a", "p3a", "p3b", "old1", "old2"}, ids(s.Edges()))

	// Exactly three backward calls chained on start cursors, starting
	// from the head edge's own cursor.
	require.Len(t, fetcher.requests, 4)
	assert.Equal(t, "cur-old1", fetcher.requests[1].Before)
	assert.Equal(t, "s3", fetcher.requests[2].Before)
	assert.Equal(t, "s2", fetcher.requests[3].Before)

	// Last visited page's counters win.
	assert.Equal(t, 12, s.TotalCount())
	assert.Equal(t, 9, s.UnreadCount())
	assert.Equal(t, 5, s.UnseenCount())

	// One batched insert at the head.
	assert.Equal(t, "inserted[0 1 2 3 4]", obs.events[len(obs.events)-1])
}

func TestFetchAllNewer_EmptyStoreFails(t *testing.T) {
	t.Parallel()
	// Scenario D: no initial fetch, no network call.
	fetcher := &fakeFetcher{}
	s := newStore(fetcher, &fakeExecutor{}, nil)

	_, err := s.FetchAllNewer(context.Background())

	assert.ErrorIs(t, err, feed.ErrNoInitialFetch)
	assert.Empty(t, fetcher.requests)
}

func TestFetchAllNewer_MidTraversalFailureCommitsNothing(t *testing.T) {
	t.Parallel()
	p3 := &feed.PageResult{
		Edges:       []feed.Edge{edge("p3a")},
		PageInfo:    feed.PageInfo{HasPreviousPage: true, StartCursor: strptr("s3")},
		TotalCount:  99,
		UnreadCount: 99,
	}
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(false, "c1", edge("old1")),
		p3,
	}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	// Second backward step fails.
	fetcher.err = errRemote
	fetcher.pages = nil
	_, err = s.FetchAllNewer(ctx)

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"old1"}, ids(s.Edges()))
	assert.Equal(t, 1, s.TotalCount(), "counters from the aborted traversal must not leak")
}

func TestMarkAsRead_StampsReadAndSeen(t *testing.T) {
	t.Parallel()
	// Scenario B.
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(false, "c2", edge("n1"), edge("n2")),
	}}
	executor := &fakeExecutor{}
	obs := &recordingObserver{}
	s := newStore(fetcher, executor, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.MarkAsRead(ctx, "n1"))

	n1 := s.Get(0).Notification
	require.NotNil(t, n1.ReadAt)
	require.NotNil(t, n1.SeenAt)

	n2 := s.Get(1).Notification
	assert.Nil(t, n2.ReadAt)
	assert.Nil(t, n2.SeenAt)

	assert.Equal(t, []string{"mark_as_read:n1"}, executor.actions)
	assert.Equal(t, "updated[0]", obs.events[len(obs.events)-1])
}

func TestSingleItemAction_RemoteFailureMutatesNothing(t *testing.T) {
	t.Parallel()
	// P4: the target's fields are untouched on remote failure.
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	executor := &fakeExecutor{err: errRemote}
	s := newStore(fetcher, executor, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkAsRead(ctx, "n1"), errRemote)
	assert.ErrorIs(t, s.Archive(ctx, "n1"), errRemote)

	n := s.Get(0).Notification
	assert.Nil(t, n.ReadAt)
	assert.Nil(t, n.SeenAt)
	assert.Nil(t, n.ArchivedAt)
}

func TestSingleItemAction_MissingLocalTargetErrors(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkAsRead(ctx, "gone"), feed.ErrNotFoundLocally)
}

func TestArchiveAndUnarchive(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Archive(ctx, "n1"))
	require.NotNil(t, s.Get(0).Notification.ArchivedAt)

	require.NoError(t, s.Unarchive(ctx, "n1"))
	assert.Nil(t, s.Get(0).Notification.ArchivedAt)
}

func TestMarkAsUnread_KeepsSeen(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, s.MarkAsRead(ctx, "n1"))

	require.NoError(t, s.MarkAsUnread(ctx, "n1"))

	n := s.Get(0).Notification
	assert.Nil(t, n.ReadAt)
	assert.NotNil(t, n.SeenAt)
}

func TestMarkAllRead_NeverOverwritesExistingTimestamp(t *testing.T) {
	t.Parallel()
	// P5.
	earlier := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	already := edge("n2")
	already.Notification.ReadAt = &earlier

	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		{
			Edges:    []feed.Edge{edge("n1"), already, edge("n3")},
			PageInfo: feed.PageInfo{EndCursor: strptr("c3")},
		},
	}}
	executor := &fakeExecutor{}
	obs := &recordingObserver{}
	s := newStore(fetcher, executor, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.MarkAllRead(ctx))

	assert.Equal(t, []string{"mark_all_read:"}, executor.actions)
	assert.Equal(t, earlier, *s.Get(1).Notification.ReadAt)
	require.NotNil(t, s.Get(0).Notification.ReadAt)
	require.NotNil(t, s.Get(2).Notification.ReadAt)

	// Only the two actually changed indices are reported.
	assert.Equal(t, "updated[0 2]", obs.events[len(obs.events)-1])
}

func TestMarkAllSeen(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c2", edge("n1"), edge("n2"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.MarkAllSeen(ctx))

	assert.NotNil(t, s.Get(0).Notification.SeenAt)
	assert.NotNil(t, s.Get(1).Notification.SeenAt)
	assert.Nil(t, s.Get(0).Notification.ReadAt)
}

func TestBulkAction_RemoteFailureMutatesNothing(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	executor := &fakeExecutor{err: errRemote}
	s := newStore(fetcher, executor, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkAllRead(ctx), errRemote)
	assert.Nil(t, s.Get(0).Notification.ReadAt)
}

func TestDelete_RemovesEdgeAndLeavesCountersStale(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c3", edge("n1"), edge("n2"), edge("n3"))}}
	executor := &fakeExecutor{}
	obs := &recordingObserver{}
	s := newStore(fetcher, executor, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)
	total := s.TotalCount()

	require.NoError(t, s.Delete(ctx, "n2"))

	assert.Equal(t, []string{"n1", "n3"}, ids(s.Edges()))
	assert.Equal(t, "deleted[1]", obs.events[len(obs.events)-1])
	assert.Equal(t, total, s.TotalCount(), "counters stay stale until the next fetch")
}

func TestDelete_MissingLocalMatchIsNotAnError(t *testing.T) {
	t.Parallel()
	// Scenario C: remote already deleted it, local collection never had it.
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	obs := &recordingObserver{}
	s := newStore(fetcher, &fakeExecutor{}, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)
	before := len(obs.events)

	require.NoError(t, s.Delete(ctx, "missing-id"))

	assert.Equal(t, 1, s.Len())
	assert.Len(t, obs.events, before, "no delete event for a local miss")
}

func TestDelete_RemoteFailureKeepsEdge(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	executor := &fakeExecutor{err: errRemote}
	s := newStore(fetcher, executor, nil)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, "n1"), errRemote)
	assert.Equal(t, 1, s.Len())
}

func TestClear_ResetsEverything(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{
		page(true, "c2", edge("n1"), edge("n2")),
		page(false, "c3", edge("n3")),
	}}
	obs := &recordingObserver{}
	s := newStore(fetcher, &fakeExecutor{}, obs)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	s.Clear()

	assert.Zero(t, s.Len())
	assert.Zero(t, s.TotalCount())
	assert.Zero(t, s.UnreadCount())
	assert.Zero(t, s.UnseenCount())
	assert.True(t, s.HasNextPage())
	assert.Equal(t, "reloaded", obs.events[len(obs.events)-1])

	// After a clear the next fetch is a first-page request again.
	_, err = s.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, fetcher.requests[len(fetcher.requests)-1].After)
}

func TestEdges_ReturnsACopy(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: []*feed.PageResult{page(false, "c1", edge("n1"))}}
	s := newStore(fetcher, &fakeExecutor{}, nil)

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	got := s.Edges()
	got[0] = feed.Edge{}
	assert.Equal(t, "n1", s.Get(0).Notification.ID)
}
