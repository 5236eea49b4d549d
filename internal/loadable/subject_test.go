package loadable

import (
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/loadkit/internal/foundation"
)

func recvState(t *testing.T, ch <-chan Loadable[int]) Loadable[int] {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a state")
		return Loadable[int]{}
	}
}

func TestSubjectWatchReplaysCurrentState(t *testing.T) {
	subject := NewSubject(intEq)
	subject.Set(Loaded(5))

	ch, stop := subject.Watch()
	defer stop()

	first := recvState(t, ch)
	if !first.IsLoaded() || first.Value().Unwrap() != 5 {
		t.Fatalf("expected replay of Loaded(5), got %v", first.State())
	}
}

func TestSubjectWatchDeliversDistinctStatesInOrder(t *testing.T) {
	subject := NewSubject(intEq)
	ch, stop := subject.Watch()
	defer stop()

	if got := recvState(t, ch); got.State() != StateNotRequested {
		t.Fatalf("expected NotRequested replay, got %v", got.State())
	}

	group := NewCancelGroup()
	subject.Set(NotRequested[int]().SetLoading(group))
	subject.Set(Loaded(1))
	subject.Set(Failed[int](errors.New("boom")))

	if got := recvState(t, ch); got.State() != StateLoading {
		t.Errorf("expected Loading, got %v", got.State())
	}
	if got := recvState(t, ch); got.State() != StateLoaded {
		t.Errorf("expected Loaded, got %v", got.State())
	}
	if got := recvState(t, ch); got.State() != StateFailed {
		t.Errorf("expected Failed, got %v", got.State())
	}
}

func TestSubjectSetEqualStateDoesNotNotify(t *testing.T) {
	subject := NewSubject(intEq)
	subject.Set(Loaded(1))

	ch, stop := subject.Watch()
	defer stop()
	recvState(t, ch) // replay

	// Equal under Loadable equality: same payload, and for Loading states
	// the groups are ignored.
	subject.Set(Loaded(1))
	subject.Set(Loading(foundation.Some(1), NewCancelGroup()))
	subject.Set(Loading(foundation.Some(1), NewCancelGroup()))

	got := recvState(t, ch)
	if got.State() != StateLoading {
		t.Fatalf("expected one Loading notification, got %v", got.State())
	}

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra notification: %v", extra.State())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubjectSetEqualStateStillSwapsGroup(t *testing.T) {
	subject := NewSubject(intEq)

	first := NewCancelGroup()
	second := NewCancelGroup()
	subject.Set(Loading(foundation.Some(1), first))
	subject.Set(Loading(foundation.Some(1), second))

	if got := subject.Get().Group(); got != second {
		t.Errorf("expected the stored group to be replaced even without a notification")
	}
}

func TestSubjectCancel(t *testing.T) {
	subject := NewSubject(intEq)
	group := NewCancelGroup()
	subject.Set(Loading(foundation.Some(9), group))

	result := subject.Cancel()
	if !result.IsLoaded() || result.Value().Unwrap() != 9 {
		t.Fatalf("expected Loaded(9) after cancel, got %v", result.State())
	}
	if !group.Cancelled() {
		t.Errorf("expected the group to be cancelled")
	}
}
