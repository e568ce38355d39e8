package engine

import (
	"sync"

	"github.com/google/uuid"
)

// ProcessEventType labels a schema change
type ProcessEventType string

const (
	ProcessCreated ProcessEventType = "process_created"
	ProcessUpdated ProcessEventType = "process_updated"
)

// ProcessEvent is pushed to subscribers whenever the process catalog
// changes, so open clients can refresh navigation without polling.
type ProcessEvent struct {
	Type      ProcessEventType `json:"type"`
	ProcessID uuid.UUID        `json:"process_id"`
	Name      string           `json:"name"`
}

// Notifier fans process events out to subscribers. Slow subscribers
// miss events rather than block publishers.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan ProcessEvent
	next int
}

// NewNotifier creates a new notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan ProcessEvent)}
}

// Subscribe registers a listener. The returned cancel func must be
// called when the listener goes away.
func (n *Notifier) Subscribe() (<-chan ProcessEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan ProcessEvent, 8)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking
func (n *Notifier) Publish(event ProcessEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
