// Package statestore implements a single observable holder of an
// application-state value. Field access goes through explicit Lens
// getter/setter pairs rather than reflection; every mutation is committed
// and broadcast under one lock, so subscribers see changes in commit
// order, deduplicated by value equality.
//
// The store is constructed once at bootstrap and passed explicitly to its
// consumers; it is not a package-level global.
package statestore

import (
	"sync"

	"github.com/google/uuid"
)

// Lens is an explicit accessor pair for one field of the state, with the
// equality used to suppress redundant commits and notifications.
type Lens[S, V any] struct {
	Get func(S) V
	Set func(S, V) S
	Eq  func(V, V) bool
}

// Field builds a Lens for a comparable field from its accessor pair.
func Field[S any, V comparable](get func(S) V, set func(S, V) S) Lens[S, V] {
	return Lens[S, V]{
		Get: get,
		Set: set,
		Eq:  func(a, b V) bool { return a == b },
	}
}

// Store holds the current state value and its subscribers.
type Store[S any] struct {
	mu    sync.Mutex
	state S
	subs  map[uuid.UUID]*subscriber[S]
}

type subscriber[S any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []S
	closed bool
	done   chan struct{}
}

func newSubscriber[S any]() *subscriber[S] {
	s := &subscriber[S]{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber[S]) push(state S) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, state)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber[S]) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// New creates a store holding the initial state.
func New[S any](initial S) *Store[S] {
	return &Store[S]{
		state: initial,
		subs:  make(map[uuid.UUID]*subscriber[S]),
	}
}

// Snapshot returns the current state value.
func (st *Store[S]) Snapshot() S {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Update applies an arbitrary mutation and commits the result as a single
// notification, regardless of how many fields the mutator touched.
func (st *Store[S]) Update(fn func(S) S) {
	st.mu.Lock()
	st.state = fn(st.state)
	st.broadcastLocked()
	st.mu.Unlock()
}

func (st *Store[S]) broadcastLocked() {
	for _, sub := range st.subs {
		sub.push(st.state)
	}
}

// Get reads one field through its lens.
func Get[S, V any](st *Store[S], lens Lens[S, V]) V {
	st.mu.Lock()
	defer st.mu.Unlock()
	return lens.Get(st.state)
}

// Set writes one field through its lens. When the new value equals the
// current one nothing is committed and nobody is notified.
func Set[S, V any](st *Store[S], lens Lens[S, V], value V) {
	st.mu.Lock()
	if lens.Eq(lens.Get(st.state), value) {
		st.mu.Unlock()
		return
	}
	st.state = lens.Set(st.state, value)
	st.broadcastLocked()
	st.mu.Unlock()
}

// Subscribe returns a stream of one field's value over time: the current
// value immediately, then every subsequent distinct change in commit
// order. The stream never terminates on its own; stop unsubscribes and
// closes the channel.
func Subscribe[S, V any](st *Store[S], lens Lens[S, V]) (<-chan V, func()) {
	sub := newSubscriber[S]()
	ch := make(chan V)

	st.mu.Lock()
	id := uuid.New()
	st.subs[id] = sub
	sub.queue = append(sub.queue, st.state)
	st.mu.Unlock()

	go func() {
		defer close(ch)
		var last V
		seeded := false
		for {
			sub.mu.Lock()
			for len(sub.queue) == 0 && !sub.closed {
				sub.cond.Wait()
			}
			if sub.closed {
				sub.mu.Unlock()
				return
			}
			state := sub.queue[0]
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()

			value := lens.Get(state)
			if seeded && lens.Eq(last, value) {
				continue
			}
			last = value
			seeded = true
			select {
			case ch <- value:
			case <-sub.done:
				return
			}
		}
	}()

	stop := func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
		sub.close()
	}
	return ch, stop
}
