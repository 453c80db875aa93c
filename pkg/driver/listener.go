package driver

import "sync"

// StateListener receives server state changes: a new description after each
// successful probe, or an error after a failed probe or invalidation.
// Callbacks run on scheduler goroutines and must not block.
type StateListener interface {
	// DescriptionUpdated is called with the node's new description.
	DescriptionUpdated(description *Description)

	// Error is called when a probe fails; the cached description has
	// already been cleared when this fires.
	Error(err error)
}

// listenerSet is a copy-on-write set of listeners. Registration may race
// with a broadcast; a broadcast iterates the snapshot taken at its start,
// so a listener added mid-broadcast is picked up by the next one.
type listenerSet struct {
	mu        sync.Mutex
	listeners []StateListener
}

// add registers a listener. Membership is identity-based; adding the same
// listener twice is a no-op.
func (s *listenerSet) add(l StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}

	next := make([]StateListener, len(s.listeners)+1)
	copy(next, s.listeners)
	next[len(s.listeners)] = l
	s.listeners = next
}

// snapshot returns the current listener slice. The slice is never mutated
// after publication, so callers may iterate it without holding the lock.
func (s *listenerSet) snapshot() []StateListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners
}

func (s *listenerSet) broadcastUpdated(description *Description) {
	for _, l := range s.snapshot() {
		l.DescriptionUpdated(description)
	}
}

func (s *listenerSet) broadcastError(err error) {
	for _, l := range s.snapshot() {
		l.Error(err)
	}
}
