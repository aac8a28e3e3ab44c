// Package realtime holds the live-session side of the service: the Session
// Registry tracking connected clients and the Broadcast Bus that fans
// committed changes out to them.
package realtime

import "time"

type EventKind string

const (
	EventTaskCreated  EventKind = "taskCreated"
	EventTaskUpdated  EventKind = "taskUpdated"
	EventTaskDeleted  EventKind = "taskDeleted"
	EventActionLogged EventKind = "actionLogged"
	EventUserCreated  EventKind = "userCreated"
	EventUserUpdated  EventKind = "userUpdated"
)

// Public reports whether sessions without an authenticated user may receive
// the event. Only deletions qualify, since their payload is a bare ID.
func (k EventKind) Public() bool {
	return k == EventTaskDeleted
}

// Event is one committed change. Seq is assigned by the Bus and is strictly
// increasing in publish order.
type Event struct {
	Seq         uint64    `json:"seq"`
	Kind        EventKind `json:"kind"`
	Payload     any       `json:"payload"`
	PublishedAt time.Time `json:"published_at"`
}
