package loader

import (
	"sync"

	"github.com/leapstack-labs/erdview/internal/store"
)

// Notifier fans completed reloads out to subscribers.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan store.Load]struct{}
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[chan store.Load]struct{})}
}

// Subscribe returns a channel that receives every reload. The caller must
// call Unsubscribe when done.
func (n *Notifier) Subscribe() chan store.Load {
	ch := make(chan store.Load, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (n *Notifier) Unsubscribe(ch chan store.Load) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast delivers load without blocking. A subscriber whose buffer is
// full misses it and sees the next one.
func (n *Notifier) Broadcast(load store.Load) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- load:
		default:
		}
	}
}
