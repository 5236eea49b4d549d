package loadable

import (
	"sync"

	"github.com/google/uuid"
)

// CancelFunc asks one in-flight operation to stop. Cancellation is
// cooperative: the operation is signalled, not killed.
type CancelFunc func()

// CancelGroup collects the cancellable handles of a single load attempt.
// Cancelling the group cancels every handle it holds and empties it.
// A cancelled group is terminal and rejects further handles.
//
// Each load attempt gets its own fresh group; groups are never shared
// between concurrent attempts for the same subject.
type CancelGroup struct {
	mu        sync.Mutex
	handles   map[uuid.UUID]CancelFunc
	cancelled bool
}

// NewCancelGroup creates an empty, live cancel group.
func NewCancelGroup() *CancelGroup {
	return &CancelGroup{handles: make(map[uuid.UUID]CancelFunc)}
}

// Add registers a handle and returns its id. If the group was already
// cancelled the handle is cancelled immediately and ok is false.
func (g *CancelGroup) Add(fn CancelFunc) (id uuid.UUID, ok bool) {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		fn()
		return uuid.Nil, false
	}
	id = uuid.New()
	g.handles[id] = fn
	g.mu.Unlock()
	return id, true
}

// Remove forgets a handle without cancelling it, typically after the
// operation it guards has completed.
func (g *CancelGroup) Remove(id uuid.UUID) {
	g.mu.Lock()
	delete(g.handles, id)
	g.mu.Unlock()
}

// Cancel cancels all registered handles, empties the group, and marks it
// terminal. Calling Cancel again is a no-op.
func (g *CancelGroup) Cancel() {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		return
	}
	g.cancelled = true
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	// Handles run outside the lock so a cancel callback may touch the
	// group without deadlocking.
	for _, fn := range handles {
		fn()
	}
}

// Cancelled reports whether the group has been cancelled.
func (g *CancelGroup) Cancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

// Len returns the number of handles currently held.
func (g *CancelGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}
