package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Store kinds are published by the repository after a
// committed write; the payload is the id of the touched row when there is
// exactly one, otherwise nil.
const (
	KindStatusChanged = "session.status_changed"
	KindIdentity      = "session.identity"

	KindUsers    = "store.users"
	KindChats    = "store.chats"
	KindMessages = "store.messages"
	KindMedia    = "store.media"
	KindContacts = "store.contacts"

	KindSnapshot   = "sync.snapshot"
	KindSyncFailed = "sync.failed"
	KindOutbox     = "outbox.queued"
	KindPushSent   = "outbox.sent"
	KindPushFailed = "outbox.failed"

	KindTyping = "view.typing"
)

var now = time.Now
