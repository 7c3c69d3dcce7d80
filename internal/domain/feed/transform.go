package feed

import (
	"time"
)

// Field transforms applied by the store after a remote mutation
// succeeds. Each returns whether it changed the notification, so callers
// can report only real updates.

// SetRead stamps both the read and seen timestamps. Reading an item
// implies it was seen.
func SetRead(n *Notification, now time.Time) bool {
	n.ReadAt = &now
	n.SeenAt = &now
	return true
}

// ClearRead removes the read timestamp. The seen timestamp is kept; an
// item marked unread was still seen.
func ClearRead(n *Notification) bool {
	if n.ReadAt == nil {
		return false
	}
	n.ReadAt = nil
	return true
}

// SetArchived stamps the archived timestamp.
func SetArchived(n *Notification, now time.Time) bool {
	n.ArchivedAt = &now
	return true
}

// ClearArchived removes the archived timestamp.
func ClearArchived(n *Notification) bool {
	if n.ArchivedAt == nil {
		return false
	}
	n.ArchivedAt = nil
	return true
}

// SetReadIfUnset stamps the read timestamp only when it is unset, so a
// bulk mark-all-read never clobbers an earlier timestamp.
func SetReadIfUnset(n *Notification, now time.Time) bool {
	if n.ReadAt != nil {
		return false
	}
	n.ReadAt = &now
	return true
}

// SetSeenIfUnset stamps the seen timestamp only when it is unset.
func SetSeenIfUnset(n *Notification, now time.Time) bool {
	if n.SeenAt != nil {
		return false
	}
	n.SeenAt = &now
	return true
}
