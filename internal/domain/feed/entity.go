package feed

import (
	"time"
)

// Notification represents a single item in the remote feed. The store
// never constructs notifications; it only reads identifiers and rewrites
// the three state timestamps in place.
type Notification struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content,omitempty"`
	Category   string                 `json:"category,omitempty"`
	Topic      string                 `json:"topic,omitempty"`
	ActionURL  string                 `json:"action_url,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	SentAt     time.Time              `json:"sent_at"`
	ReadAt     *time.Time             `json:"read_at,omitempty"`
	SeenAt     *time.Time             `json:"seen_at,omitempty"`
	ArchivedAt *time.Time             `json:"archived_at,omitempty"`
}

// IsRead reports whether the notification has a read timestamp.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// IsSeen reports whether the notification has a seen timestamp.
func (n *Notification) IsSeen() bool {
	return n.SeenAt != nil
}

// IsArchived reports whether the notification has an archived timestamp.
func (n *Notification) IsArchived() bool {
	return n.ArchivedAt != nil
}

// Edge pairs a notification with the opaque pagination cursor the feed
// assigned to it. The store's local collection is an ordered sequence of
// edges in feed order (newest first).
type Edge struct {
	Cursor       string        `json:"cursor"`
	Notification *Notification `json:"notification"`
}
