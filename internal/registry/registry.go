package registry

import (
	"sync"

	"github.com/emrecanisildak/diet/pkg/log"
)

// Channel is a live, bidirectional delivery path to one connected user.
type Channel interface {
	// ID identifies the underlying connection, for logging.
	ID() string
	// Send queues data without blocking and reports whether it was accepted.
	Send(data []byte) bool
	// Close releases the connection. It must be safe to call more than once.
	Close()
}

// Registry maps each online user to their single live channel.
// All methods are safe for concurrent use and never perform I/O while
// holding the lock.
type Registry struct {
	mu       sync.Mutex
	channels map[string]Channel
	closed   bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register installs ch as userID's channel. A previous channel for the same
// user is closed. After Shutdown, ch is closed immediately instead.
func (r *Registry) Register(userID string, ch Channel) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		ch.Close()
		return
	}
	prev, ok := r.channels[userID]
	r.channels[userID] = ch
	r.mu.Unlock()

	if ok && prev != ch {
		l := log.L()
		l.Debug().
			Str(log.FieldUserID, userID).
			Str(log.FieldConnID, prev.ID()).
			Msg("replacing live connection")
		prev.Close()
	}
}

// Unregister removes userID's entry only if it is still ch, so a late
// disconnect of a replaced connection cannot evict its successor.
func (r *Registry) Unregister(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.channels[userID]; ok && cur == ch {
		delete(r.channels, userID)
		return true
	}
	return false
}

// Lookup returns userID's channel. found is false when the user is offline.
func (r *Registry) Lookup(userID string) (ch Channel, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, found = r.channels[userID]
	return ch, found
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Shutdown closes every registered channel and rejects later registrations.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]Channel)
	r.closed = true
	r.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	l := log.L()
	l.Info().Int("closed", len(channels)).Msg("connection registry shut down")
}
