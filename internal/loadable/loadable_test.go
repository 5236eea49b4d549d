package loadable

import (
	"errors"
	"strconv"
	"testing"

	"git.home.luguber.info/inful/loadkit/internal/foundation"
	"git.home.luguber.info/inful/loadkit/internal/loaderr"
)

func intEq(a, b int) bool { return a == b }

func TestNotRequestedMapYieldsNothing(t *testing.T) {
	l := NotRequested[int]()
	mapped := Map(l, func(v int) (string, error) { return strconv.Itoa(v), nil })

	if mapped.State() != StateNotRequested {
		t.Fatalf("expected NotRequested, got %v", mapped.State())
	}
	if mapped.Value().IsSome() {
		t.Errorf("expected no value, got %v", mapped.Value())
	}
	if mapped.Err() != nil {
		t.Errorf("expected no error, got %v", mapped.Err())
	}
}

func TestMapLoadedSuccess(t *testing.T) {
	mapped := Map(Loaded(21), func(v int) (int, error) { return v * 2, nil })

	if !mapped.IsLoaded() {
		t.Fatalf("expected Loaded, got %v", mapped.State())
	}
	if got := mapped.Value().Unwrap(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestMapLoadedFailure(t *testing.T) {
	boom := errors.New("boom")
	mapped := Map(Loaded(21), func(int) (int, error) { return 0, boom })

	if mapped.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", mapped.State())
	}
	if !errors.Is(mapped.Err(), boom) {
		t.Errorf("expected boom, got %v", mapped.Err())
	}
}

func TestMapFailedPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	mapped := Map(Failed[int](boom), func(v int) (int, error) { return v, nil })

	if mapped.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", mapped.State())
	}
	if !errors.Is(mapped.Err(), boom) {
		t.Errorf("expected boom, got %v", mapped.Err())
	}
}

func TestMapLoadingCarriesGroupAndMapsPrevious(t *testing.T) {
	group := NewCancelGroup()
	l := Loading(foundation.Some(10), group)

	mapped := Map(l, func(v int) (int, error) { return v + 1, nil })
	if !mapped.IsLoading() {
		t.Fatalf("expected Loading, got %v", mapped.State())
	}
	if got := mapped.Value().Unwrap(); got != 11 {
		t.Errorf("expected previous 11, got %d", got)
	}
	if mapped.Group() != group {
		t.Errorf("expected the group to be carried over, not duplicated")
	}
}

func TestMapLoadingTransformFailure(t *testing.T) {
	group := NewCancelGroup()
	l := Loading(foundation.Some(10), group)

	mapped := Map(l, func(int) (int, error) { return 0, errors.New("boom") })
	if mapped.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", mapped.State())
	}
	if mapped.Group() != nil {
		t.Errorf("failed map must not carry a cancel group")
	}
}

func TestSetLoadingPreservesPrevious(t *testing.T) {
	l := Loaded(5).SetLoading(NewCancelGroup())

	if !l.IsLoading() {
		t.Fatalf("expected Loading, got %v", l.State())
	}
	if got := l.Value().Unwrap(); got != 5 {
		t.Errorf("expected previous value 5, got %d", got)
	}
}

func TestSetLoadingFromNotRequested(t *testing.T) {
	l := NotRequested[int]().SetLoading(NewCancelGroup())

	if !l.IsLoading() {
		t.Fatalf("expected Loading, got %v", l.State())
	}
	if l.Value().IsSome() {
		t.Errorf("expected no previous value, got %v", l.Value())
	}
}

func TestCancelWithPreviousYieldsLoaded(t *testing.T) {
	group := NewCancelGroup()
	cancelled := false
	_, _ = group.Add(func() { cancelled = true })

	result := Loading(foundation.Some(5), group).Cancel()
	if !result.IsLoaded() {
		t.Fatalf("expected Loaded, got %v", result.State())
	}
	if got := result.Value().Unwrap(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if !cancelled {
		t.Errorf("expected the group's handles to be cancelled")
	}
}

func TestCancelWithoutPreviousYieldsFailed(t *testing.T) {
	result := Loading(foundation.None[int](), NewCancelGroup()).Cancel()

	if result.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", result.State())
	}
	if !loaderr.IsCategory(result.Err(), loaderr.CategoryCancelled) {
		t.Errorf("expected cancelled error, got %v", result.Err())
	}
}

func TestCancelOnTerminalStateIsNoop(t *testing.T) {
	l := Loaded(7)
	if got := l.Cancel(); !Equal(l, got, intEq) {
		t.Errorf("expected Cancel on Loaded to return the state unchanged")
	}
}

func TestUnwrap(t *testing.T) {
	some := Unwrap(Loaded(foundation.Some(3)))
	if !some.IsLoaded() || some.Value().Unwrap() != 3 {
		t.Fatalf("expected Loaded(3), got %v value %v", some.State(), some.Value())
	}

	none := Unwrap(Loaded(foundation.None[int]()))
	if none.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", none.State())
	}
	if !loaderr.IsCategory(none.Err(), loaderr.CategoryValueMissing) {
		t.Errorf("expected value-missing error, got %v", none.Err())
	}
}

func TestEqualityRules(t *testing.T) {
	groupA := NewCancelGroup()
	groupB := NewCancelGroup()

	cases := []struct {
		name string
		a, b Loadable[int]
		want bool
	}{
		{"not requested", NotRequested[int](), NotRequested[int](), true},
		{"loaded equal", Loaded(1), Loaded(1), true},
		{"loaded unequal", Loaded(1), Loaded(2), false},
		// equality is about observed value, not operational identity
		{"loading ignores groups", Loading(foundation.Some(1), groupA), Loading(foundation.Some(1), groupB), true},
		{"loading previous differs", Loading(foundation.Some(1), groupA), Loading(foundation.Some(2), groupA), false},
		{"failed same message", Failed[int](errors.New("x")), Failed[int](errors.New("x")), true},
		{"failed different message", Failed[int](errors.New("x")), Failed[int](errors.New("y")), false},
		{"cross variant", Loaded(1), Loading(foundation.Some(1), groupA), false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b, intEq); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
