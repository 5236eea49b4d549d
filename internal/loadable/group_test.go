package loadable

import (
	"sync/atomic"
	"testing"
)

func TestCancelGroupCancelsAndEmpties(t *testing.T) {
	group := NewCancelGroup()

	var calls atomic.Int32
	for range 3 {
		_, ok := group.Add(func() { calls.Add(1) })
		if !ok {
			t.Fatalf("expected Add to succeed on a live group")
		}
	}
	if group.Len() != 3 {
		t.Fatalf("expected 3 handles, got %d", group.Len())
	}

	group.Cancel()
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 cancellations, got %d", got)
	}
	if group.Len() != 0 {
		t.Errorf("expected empty group after cancel, got %d handles", group.Len())
	}
	if !group.Cancelled() {
		t.Errorf("expected group to report cancelled")
	}
}

func TestCancelGroupIsTerminal(t *testing.T) {
	group := NewCancelGroup()
	group.Cancel()

	called := false
	_, ok := group.Add(func() { called = true })
	if ok {
		t.Errorf("expected Add to fail on a cancelled group")
	}
	if !called {
		t.Errorf("expected the late handle to be cancelled immediately")
	}

	// Second cancel is a no-op.
	group.Cancel()
}

func TestCancelGroupRemove(t *testing.T) {
	group := NewCancelGroup()

	called := false
	id, _ := group.Add(func() { called = true })
	group.Remove(id)

	group.Cancel()
	if called {
		t.Errorf("expected removed handle not to be cancelled")
	}
}
