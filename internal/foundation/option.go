// Package foundation provides small generic building blocks shared by the
// loading kernel.
package foundation

import "fmt"

// Option represents a value that may or may not be present, replacing
// nullable pointers with explicit presence handling.
type Option[T any] struct {
	value   T
	present bool
}

// Some creates an Option holding a value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, present: true}
}

// None creates an empty Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsSome returns true if the Option contains a value.
func (o Option[T]) IsSome() bool {
	return o.present
}

// IsNone returns true if the Option is empty.
func (o Option[T]) IsNone() bool {
	return !o.present
}

// Unwrap returns the value if present, panics if None.
// Use this only when you're certain the Option contains a value.
func (o Option[T]) Unwrap() T {
	if !o.present {
		panic("called Unwrap on None option")
	}
	return o.value
}

// UnwrapOr returns the value if present, otherwise returns the fallback.
func (o Option[T]) UnwrapOr(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// Get returns the value and a presence flag, mirroring map access.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.present
}

// MapOption transforms an Option[T] to Option[U] using the given function.
// None maps to None.
func MapOption[T, U any](o Option[T], fn func(T) U) Option[U] {
	if o.present {
		return Some(fn(o.value))
	}
	return None[U]()
}

// EqualOption compares two Options using eq for the contained values.
// Two None values are equal; None never equals Some.
func EqualOption[T any](a, b Option[T], eq func(T, T) bool) bool {
	if a.present != b.present {
		return false
	}
	if !a.present {
		return true
	}
	return eq(a.value, b.value)
}

// FromPointer creates an Option from a pointer: Some(*ptr) if non-nil.
func FromPointer[T any](ptr *T) Option[T] {
	if ptr != nil {
		return Some(*ptr)
	}
	return None[T]()
}

// String provides a string representation of the Option.
func (o Option[T]) String() string {
	if o.present {
		return fmt.Sprintf("Some(%v)", o.value)
	}
	return "None"
}
