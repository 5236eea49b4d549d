// Package lazyseq implements a fixed-length, index-addressed sequence
// backed by an on-demand accessor, with optional per-index memoization
// that is safe under concurrent access.
package lazyseq

import (
	"iter"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/loadkit/internal/loaderr"
)

// Accessor produces the element at an index, or reports that the index
// cannot be answered. When caching is enabled the accessor must be
// deterministic for a given index; the cache will mask later divergence.
type Accessor[T any] func(index int) (T, bool)

// Sequence is a lazily-evaluated indexable sequence. Its length is fixed
// at construction; elements are computed on first access and, when
// caching is enabled, memoized forever (entries are never evicted).
type Sequence[T any] struct {
	count    int
	useCache bool
	accessor Accessor[T]

	mu     sync.RWMutex
	cache  map[int]T
	flight singleflight.Group
}

// New creates a sequence of count elements answered by accessor. The
// accessor must be able to answer every index in [0, count).
func New[T any](count int, useCache bool, accessor Accessor[T]) *Sequence[T] {
	s := &Sequence[T]{count: count, useCache: useCache, accessor: accessor}
	if useCache {
		s.cache = make(map[int]T)
	}
	return s
}

// Empty returns a zero-length sequence whose accessor always fails.
func Empty[T any]() *Sequence[T] {
	return New(0, false, func(int) (T, bool) {
		var zero T
		return zero, false
	})
}

// FromSlice wraps an in-memory slice. No cache is needed; access is a
// direct index.
func FromSlice[T any](items []T) *Sequence[T] {
	return New(len(items), false, func(i int) (T, bool) {
		return items[i], true
	})
}

// Len returns the fixed element count.
func (s *Sequence[T]) Len() int {
	return s.count
}

// Element returns the element at index. Indices outside [0, Len()) and
// accessor misses fail with an element-missing error. With caching
// enabled, concurrent first accesses to the same index are collapsed into
// one accessor call.
func (s *Sequence[T]) Element(index int) (T, error) {
	var zero T
	if index < 0 || index >= s.count {
		return zero, loaderr.ElementMissing(index)
	}
	if !s.useCache {
		v, ok := s.accessor(index)
		if !ok {
			return zero, loaderr.ElementMissing(index)
		}
		return v, nil
	}

	s.mu.RLock()
	v, hit := s.cache[index]
	s.mu.RUnlock()
	if hit {
		return v, nil
	}

	res, err, _ := s.flight.Do(strconv.Itoa(index), func() (any, error) {
		s.mu.RLock()
		cached, ok := s.cache[index]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
		computed, ok := s.accessor(index)
		if !ok {
			return nil, loaderr.ElementMissing(index)
		}
		s.mu.Lock()
		s.cache[index] = computed
		s.mu.Unlock()
		return computed, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// All iterates elements from index 0 upward. An access failure ends the
// iteration early instead of surfacing the error; callers needing the
// failure must use Element directly. The sequence is restartable.
func (s *Sequence[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range s.count {
			v, err := s.Element(i)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Values materializes the whole sequence, subject to the same early
// termination as All.
func (s *Sequence[T]) Values() []T {
	out := make([]T, 0, s.count)
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}

// Equal reports whether two sequences have the same length and pairwise
// equal elements, short-circuiting on the first mismatch or access
// failure.
func Equal[T any](a, b *Sequence[T], eq func(T, T) bool) bool {
	if a.count != b.count {
		return false
	}
	for i := range a.count {
		av, aerr := a.Element(i)
		bv, berr := b.Element(i)
		if aerr != nil || berr != nil {
			return false
		}
		if !eq(av, bv) {
			return false
		}
	}
	return true
}
