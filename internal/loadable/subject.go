package loadable

import (
	"sync"

	"github.com/google/uuid"
)

// Subject is the externally-owned holder of a Loadable that a fetch
// pipeline mutates. It serializes state transitions and broadcasts every
// distinct state to watchers in commit order.
//
// Equality for deduplication uses the payload comparator given at
// construction; per Loadable equality rules a refresh that only swaps the
// cancel group does not notify, but the stored state (and its group) is
// still replaced.
type Subject[T any] struct {
	mu       sync.Mutex
	current  Loadable[T]
	eq       func(T, T) bool
	watchers map[uuid.UUID]*watcher[T]
}

type watcher[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Loadable[T]
	closed bool
	done   chan struct{}
}

func newWatcher[T any]() *watcher[T] {
	w := &watcher[T]{done: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *watcher[T]) push(l Loadable[T]) {
	w.mu.Lock()
	if !w.closed {
		w.queue = append(w.queue, l)
		w.cond.Signal()
	}
	w.mu.Unlock()
}

func (w *watcher[T]) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
		w.cond.Signal()
	}
	w.mu.Unlock()
}

// NewSubject creates a Subject starting at NotRequested.
func NewSubject[T any](eq func(T, T) bool) *Subject[T] {
	return &Subject[T]{
		current:  NotRequested[T](),
		eq:       eq,
		watchers: make(map[uuid.UUID]*watcher[T]),
	}
}

// Get returns the current state.
func (s *Subject[T]) Get() Loadable[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the current state. Watchers are notified only when the new
// state differs under Loadable equality; the replacement itself always
// happens so a fresh cancel group takes effect either way.
func (s *Subject[T]) Set(l Loadable[T]) {
	s.mu.Lock()
	changed := !Equal(s.current, l, s.eq)
	s.current = l
	if changed {
		for _, w := range s.watchers {
			w.push(l)
		}
	}
	s.mu.Unlock()
}

// Apply runs a transition function against the current state and commits
// its result atomically, for read-modify-write transitions like Cancel.
func (s *Subject[T]) Apply(fn func(Loadable[T]) Loadable[T]) Loadable[T] {
	s.mu.Lock()
	next := fn(s.current)
	changed := !Equal(s.current, next, s.eq)
	s.current = next
	if changed {
		for _, w := range s.watchers {
			w.push(next)
		}
	}
	s.mu.Unlock()
	return next
}

// Cancel cancels an in-flight load on the subject, if any.
func (s *Subject[T]) Cancel() Loadable[T] {
	return s.Apply(Loadable[T].Cancel)
}

// Watch returns a channel that first replays the current state and then
// delivers every subsequent distinct state in commit order. The returned
// stop function unsubscribes and closes the channel; the channel never
// closes on its own.
func (s *Subject[T]) Watch() (<-chan Loadable[T], func()) {
	w := newWatcher[T]()
	ch := make(chan Loadable[T])

	s.mu.Lock()
	id := uuid.New()
	s.watchers[id] = w
	w.queue = append(w.queue, s.current)
	s.mu.Unlock()

	go func() {
		defer close(ch)
		for {
			w.mu.Lock()
			for len(w.queue) == 0 && !w.closed {
				w.cond.Wait()
			}
			if w.closed {
				w.mu.Unlock()
				return
			}
			next := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			select {
			case ch <- next:
			case <-w.done:
				return
			}
		}
	}()

	stop := func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		w.close()
	}
	return ch, stop
}
