// Package loadable implements the four-state container for values that
// must be fetched, plus the cancellation primitive and the observable
// subject the fetch pipeline mutates.
//
// A Loadable is a value type; transitions return a new value. The Subject
// serializes applying those transitions and broadcasting them, so the
// container itself stays free of locking.
package loadable

import (
	"git.home.luguber.info/inful/loadkit/internal/foundation"
	"git.home.luguber.info/inful/loadkit/internal/loaderr"
)

// State identifies the variant a Loadable currently holds.
type State uint8

const (
	StateNotRequested State = iota
	StateLoading
	StateLoaded
	StateFailed
)

// String returns the lowercase variant name, for logs.
func (s State) String() string {
	switch s {
	case StateNotRequested:
		return "not_requested"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loadable is a value that must be fetched: not requested yet, loading
// (with the last known good value preserved), loaded, or failed.
//
// Only the Loading variant owns a live CancelGroup. Transitioning out of
// Loading releases that ownership; the group is never carried into Loaded
// or Failed.
type Loadable[T any] struct {
	state    State
	value    T // payload for StateLoaded
	previous foundation.Option[T]
	group    *CancelGroup
	err      error
}

// NotRequested returns the initial state.
func NotRequested[T any]() Loadable[T] {
	return Loadable[T]{state: StateNotRequested}
}

// Loaded returns a terminal success state holding v.
func Loaded[T any](v T) Loadable[T] {
	return Loadable[T]{state: StateLoaded, value: v}
}

// Failed returns a terminal failure state holding err.
func Failed[T any](err error) Loadable[T] {
	return Loadable[T]{state: StateFailed, err: err}
}

// Loading returns an in-flight state carrying the last known good value
// and the group that cancels the attempt.
func Loading[T any](previous foundation.Option[T], group *CancelGroup) Loadable[T] {
	return Loadable[T]{state: StateLoading, previous: previous, group: group}
}

// State returns the current variant.
func (l Loadable[T]) State() State {
	return l.state
}

// IsLoading reports whether a load is in flight.
func (l Loadable[T]) IsLoading() bool {
	return l.state == StateLoading
}

// IsLoaded reports whether the value is available.
func (l Loadable[T]) IsLoaded() bool {
	return l.state == StateLoaded
}

// Value returns the payload for Loaded and the preserved previous value
// for Loading, so callers always have the best known value during a
// refresh. NotRequested and Failed yield None.
func (l Loadable[T]) Value() foundation.Option[T] {
	switch l.state {
	case StateLoaded:
		return foundation.Some(l.value)
	case StateLoading:
		return l.previous
	default:
		return foundation.None[T]()
	}
}

// Err returns the failure for Failed states, nil otherwise.
func (l Loadable[T]) Err() error {
	if l.state == StateFailed {
		return l.err
	}
	return nil
}

// Group returns the cancel group of a Loading state, nil otherwise.
func (l Loadable[T]) Group() *CancelGroup {
	if l.state == StateLoading {
		return l.group
	}
	return nil
}

// SetLoading transitions any state to Loading, preserving the best
// available previous value (Value() of the old state). Always legal.
func (l Loadable[T]) SetLoading(group *CancelGroup) Loadable[T] {
	return Loading(l.Value(), group)
}

// Cancel resolves an in-flight load: the group is cancelled, and the state
// falls back to Loaded(previous) when a previous value exists, otherwise
// Failed(cancelled). Calling Cancel on a non-Loading state is a no-op and
// returns the state unchanged.
func (l Loadable[T]) Cancel() Loadable[T] {
	if l.state != StateLoading {
		return l
	}
	if l.group != nil {
		l.group.Cancel()
	}
	if prev, ok := l.previous.Get(); ok {
		return Loaded(prev)
	}
	return Failed[T](loaderr.Cancelled())
}

// Map applies a structure-preserving transform. A failing fn turns any
// state into Failed, uniformly; for a Loading state this drops the cancel
// group from the result, so callers needing cancellation after a failed
// transform must keep the original state around.
func Map[T, U any](l Loadable[T], fn func(T) (U, error)) Loadable[U] {
	switch l.state {
	case StateNotRequested:
		return NotRequested[U]()
	case StateFailed:
		return Failed[U](l.err)
	case StateLoaded:
		u, err := fn(l.value)
		if err != nil {
			return Failed[U](err)
		}
		return Loaded(u)
	case StateLoading:
		prev, ok := l.previous.Get()
		if !ok {
			return Loading(foundation.None[U](), l.group)
		}
		u, err := fn(prev)
		if err != nil {
			return Failed[U](err)
		}
		return Loading(foundation.Some(u), l.group)
	default:
		return NotRequested[U]()
	}
}

// Unwrap lifts a Loadable of an optional into a Loadable of the value,
// failing with a value-missing error when the optional is empty.
func Unwrap[T any](l Loadable[foundation.Option[T]]) Loadable[T] {
	return Map(l, func(o foundation.Option[T]) (T, error) {
		if v, ok := o.Get(); ok {
			return v, nil
		}
		var zero T
		return zero, loaderr.ValueMissing()
	})
}

// Equal compares two Loadables using eq for payloads. Equality is about
// observed value, not operational identity: two Loading states are equal
// iff their previous values are equal, regardless of cancel groups. Failed
// states compare by error string. Cross-variant comparisons are unequal.
func Equal[T any](a, b Loadable[T], eq func(T, T) bool) bool {
	if a.state != b.state {
		return false
	}
	switch a.state {
	case StateNotRequested:
		return true
	case StateLoading:
		return foundation.EqualOption(a.previous, b.previous, eq)
	case StateLoaded:
		return eq(a.value, b.value)
	case StateFailed:
		return a.err.Error() == b.err.Error()
	default:
		return false
	}
}
