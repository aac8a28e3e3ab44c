package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/yukikurage/kanban-sync/internal/logging"
)

// Bus fans events out to every live session of a Registry. Publish calls are
// serialized, so each session observes events in the order they were published.
// Delivery is at-most-once: a session whose queue is full is unregistered and
// is expected to re-list after reconnecting.
type Bus struct {
	mu       sync.Mutex
	seq      uint64
	registry *Registry
	logger   logging.Logger
}

func NewBus(registry *Registry, logger logging.Logger) *Bus {
	return &Bus{registry: registry, logger: logger}
}

func (b *Bus) Publish(ctx context.Context, kind EventKind, payload any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{
		Seq:         b.seq,
		Kind:        kind,
		Payload:     payload,
		PublishedAt: time.Now(),
	}

	b.registry.ForEachLive(func(s *Session) {
		if !s.Authenticated() && !kind.Public() {
			return
		}
		if s.deliver(ev) {
			return
		}
		if b.registry.Unregister(s.ID) {
			b.logger.Warn(ctx, "dropping session that fell behind", "session_id", s.ID, "seq", ev.Seq, "kind", kind)
		}
	})

	return ev
}

// Seq returns the sequence number of the last published event.
func (b *Bus) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}
