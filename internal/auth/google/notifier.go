package google

import (
	"sync"
	"time"

	"github.com/pysugar/visionary-studio/internal/session"
)

// Authorized is published once a code exchange succeeds.
type Authorized struct {
	Tokens *session.Tokens
	At     time.Time
}

// Notifier fans authorization events out to subscribers. Sends never block:
// a subscriber that is not draining its channel misses the event.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Authorized
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Authorized)}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel.
func (n *Notifier) Subscribe() (<-chan Authorized, func()) {
	ch := make(chan Authorized, 1)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber. Safe on a nil receiver.
func (n *Notifier) Publish(ev Authorized) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
