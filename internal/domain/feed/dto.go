package feed

// ActionKind identifies a remote mutation on the feed
type ActionKind string

const (
	ActionMarkAsRead   ActionKind = "mark_as_read"
	ActionMarkAsUnread ActionKind = "mark_as_unread"
	ActionArchive      ActionKind = "archive"
	ActionUnarchive    ActionKind = "unarchive"

	// Bulk kinds apply to every notification under the predicate and
	// carry no item identifier.
	ActionMarkAllRead ActionKind = "mark_all_read"
	ActionMarkAllSeen ActionKind = "mark_all_seen"
)

// IsBulk reports whether the action kind targets the whole feed rather
// than a single notification.
func (k ActionKind) IsBulk() bool {
	return k == ActionMarkAllRead || k == ActionMarkAllSeen
}

// AllActionKinds returns every supported action kind
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionMarkAsRead,
		ActionMarkAsUnread,
		ActionArchive,
		ActionUnarchive,
		ActionMarkAllRead,
		ActionMarkAllSeen,
	}
}

// Predicate is an immutable filter scoping every fetch made by one store
// instance. Nil pointer fields mean "don't care". Fixed at store
// construction; reusing a store across different predicates is misuse.
type Predicate struct {
	Read       *bool    `json:"read,omitempty"`
	Seen       *bool    `json:"seen,omitempty"`
	Archived   *bool    `json:"archived,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Topics     []string `json:"topics,omitempty"`
}

// All returns the unfiltered predicate.
func All() Predicate {
	return Predicate{}
}

// Unread returns a predicate matching notifications without a read timestamp.
func Unread() Predicate {
	read := false
	return Predicate{Read: &read}
}

// Read returns a predicate matching notifications with a read timestamp.
func Read() Predicate {
	read := true
	return Predicate{Read: &read}
}

// Archived returns a predicate matching archived notifications.
func Archived() Predicate {
	archived := true
	return Predicate{Archived: &archived}
}

// Matches reports whether a notification satisfies the predicate.
func (p Predicate) Matches(n *Notification) bool {
	if p.Read != nil && n.IsRead() != *p.Read {
		return false
	}
	if p.Seen != nil && n.IsSeen() != *p.Seen {
		return false
	}
	if p.Archived != nil && n.IsArchived() != *p.Archived {
		return false
	}
	if len(p.Categories) > 0 && !contains(p.Categories, n.Category) {
		return false
	}
	if len(p.Topics) > 0 && !contains(p.Topics, n.Topic) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// PageRequest is a cursor directive: a first page (no cursor), the page
// after a cursor (forward pagination) or the page before a cursor
// (backward pagination, used for catching up on newer items). After and
// Before are mutually exclusive.
type PageRequest struct {
	Size   int    `json:"page_size"`
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
}

// PageInfo is the pagination metadata of one page.
type PageInfo struct {
	HasNextPage     bool    `json:"has_next_page"`
	HasPreviousPage bool    `json:"has_previous_page"`
	StartCursor     *string `json:"start_cursor,omitempty"`
	EndCursor       *string `json:"end_cursor,omitempty"`
}

// PageResult is one bounded batch of edges plus pagination metadata and
// the feed-wide counters as the server computed them at response time.
type PageResult struct {
	Edges       []Edge   `json:"edges"`
	PageInfo    PageInfo `json:"page_info"`
	TotalCount  int      `json:"total_count"`
	UnreadCount int      `json:"unread_count"`
	UnseenCount int      `json:"unseen_count"`
}
