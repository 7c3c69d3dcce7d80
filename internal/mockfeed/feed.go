package mockfeed

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/wshub"
	"github.com/google/uuid"
)

// Feed is an in-memory, newest-first notification feed with opaque
// monotonic cursors. It backs the mock server used by integration tests
// and the mockfeed binary. Persistence is deliberately absent; the feed
// lives and dies with the process.
type Feed struct {
	mu    sync.Mutex
	items []item
	seq   int
	hub   *wshub.Hub
}

type item struct {
	cursor       string
	notification *feed.Notification
}

// NewFeed creates an empty feed. Events for pushed notifications are
// broadcast on hub when it is non-nil.
func NewFeed(hub *wshub.Hub) *Feed {
	return &Feed{hub: hub}
}

// Push prepends a notification as the newest feed entry and broadcasts a
// realtime event. A missing ID or SentAt is filled in.
func (f *Feed) Push(n *feed.Notification) string {
	f.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}

	f.seq++
	cursor := encodeCursor(f.seq)
	f.items = append([]item{{cursor: cursor, notification: n}}, f.items...)
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast(wshub.Event{
			Event: "notification",
			Data:  map[string]string{"id": n.ID},
		})
	}
	return n.ID
}

// Seed pushes notifications oldest-first so the first element of the
// slice ends up at the bottom of the feed.
func (f *Feed) Seed(notifications []*feed.Notification) {
	for _, n := range notifications {
		f.Push(n)
	}
}

// Page resolves a cursor directive against the feed, scoped to the
// predicate, and returns the page plus predicate-wide counters.
func (f *Feed) Page(predicate feed.Predicate, req feed.PageRequest) (*feed.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := req.Size
	if size <= 0 {
		size = 20
	}

	matching := make([]item, 0, len(f.items))
	for _, it := range f.items {
		if predicate.Matches(it.notification) {
			matching = append(matching, it)
		}
	}

	var window []item
	result := &feed.PageResult{}

	switch {
	case req.After != "":
		idx := indexOfCursor(matching, req.After)
		if idx < 0 {
			return nil, fmt.Errorf("unknown cursor %q", req.After)
		}
		rest := matching[idx+1:]
		window = rest
		if len(rest) > size {
			window = rest[:size]
			result.PageInfo.HasNextPage = true
		}
		result.PageInfo.HasPreviousPage = true

	case req.Before != "":
		idx := indexOfCursor(matching, req.Before)
		if idx < 0 {
			return nil, fmt.Errorf("unknown cursor %q", req.Before)
		}
		newer := matching[:idx]
		window = newer
		if len(newer) > size {
			window = newer[len(newer)-size:]
			result.PageInfo.HasPreviousPage = true
		}
		result.PageInfo.HasNextPage = true

	default:
		window = matching
		if len(matching) > size {
			window = matching[:size]
			result.PageInfo.HasNextPage = true
		}
	}

	result.Edges = make([]feed.Edge, len(window))
	for i, it := range window {
		copied := *it.notification
		result.Edges[i] = feed.Edge{Cursor: it.cursor, Notification: &copied}
	}
	if len(window) > 0 {
		result.PageInfo.StartCursor = &result.Edges[0].Cursor
		result.PageInfo.EndCursor = &result.Edges[len(window)-1].Cursor
	}

	result.TotalCount = len(matching)
	for _, it := range matching {
		if !it.notification.IsRead() {
			result.UnreadCount++
		}
		if !it.notification.IsSeen() {
			result.UnseenCount++
		}
	}

	return result, nil
}

// Apply performs a single-item action and reports whether the target exists.
func (f *Feed) Apply(kind feed.ActionKind, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if kind.IsBulk() {
		for _, it := range f.items {
			applyKind(it.notification, kind, now)
		}
		return true, nil
	}

	for _, it := range f.items {
		if it.notification.ID == itemID {
			if !applyKind(it.notification, kind, now) {
				return true, feed.ErrInvalidActionKind
			}
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a notification, reporting whether it existed.
func (f *Feed) Delete(itemID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, it := range f.items {
		if it.notification.ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of notifications in the feed.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func applyKind(n *feed.Notification, kind feed.ActionKind, now time.Time) bool {
	switch kind {
	case feed.ActionMarkAsRead:
		feed.SetRead(n, now)
	case feed.ActionMarkAsUnread:
		feed.ClearRead(n)
	case feed.ActionArchive:
		feed.SetArchived(n, now)
	case feed.ActionUnarchive:
		feed.ClearArchived(n)
	case feed.ActionMarkAllRead:
		feed.SetReadIfUnset(n, now)
	case feed.ActionMarkAllSeen:
		feed.SetSeenIfUnset(n, now)
	default:
		return false
	}
	return true
}

func indexOfCursor(items []item, cursor string) int {
	for i, it := range items {
		if it.cursor == cursor {
			return i
		}
	}
	return -1
}

func encodeCursor(seq int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("cursor:%08d", seq)))
}
