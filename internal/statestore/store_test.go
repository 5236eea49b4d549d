package statestore

import (
	"testing"
	"time"
)

type appState struct {
	Loaded  bool
	Counter int
}

var (
	lensLoaded = Field(
		func(s appState) bool { return s.Loaded },
		func(s appState, v bool) appState { s.Loaded = v; return s },
	)
	lensCounter = Field(
		func(s appState) int { return s.Counter },
		func(s appState, v int) appState { s.Counter = v; return s },
	)
)

func recv[V any](t *testing.T, ch <-chan V) V {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a value")
		var zero V
		return zero
	}
}

func expectNothing[V any](t *testing.T, ch <-chan V) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected notification: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGetSet(t *testing.T) {
	store := New(appState{})

	if Get(store, lensLoaded) {
		t.Fatalf("expected initial false")
	}
	Set(store, lensLoaded, true)
	if !Get(store, lensLoaded) {
		t.Errorf("expected true after set")
	}
	if store.Snapshot().Counter != 0 {
		t.Errorf("expected untouched fields to keep their value")
	}
}

func TestSetSameValueProducesNoNotification(t *testing.T) {
	store := New(appState{Counter: 7})

	ch, stop := Subscribe(store, lensCounter)
	defer stop()
	if got := recv(t, ch); got != 7 {
		t.Fatalf("expected replay of 7, got %d", got)
	}

	Set(store, lensCounter, 7)
	expectNothing(t, ch)
}

func TestSetDifferentValueProducesExactlyOneNotification(t *testing.T) {
	store := New(appState{})

	ch, stop := Subscribe(store, lensCounter)
	defer stop()
	recv(t, ch) // replay

	Set(store, lensCounter, 3)
	if got := recv(t, ch); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	expectNothing(t, ch)
}

func TestSubscribeIsDeduplicatedPerField(t *testing.T) {
	store := New(appState{})

	ch, stop := Subscribe(store, lensCounter)
	defer stop()
	recv(t, ch) // replay

	// A commit that does not touch the watched field is filtered out.
	Set(store, lensLoaded, true)
	expectNothing(t, ch)

	Set(store, lensCounter, 1)
	if got := recv(t, ch); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestUpdateCommitsOnce(t *testing.T) {
	store := New(appState{})

	loadedCh, stopLoaded := Subscribe(store, lensLoaded)
	defer stopLoaded()
	counterCh, stopCounter := Subscribe(store, lensCounter)
	defer stopCounter()
	recv(t, loadedCh)
	recv(t, counterCh)

	store.Update(func(s appState) appState {
		s.Loaded = true
		s.Counter = 5
		return s
	})

	if got := recv(t, loadedCh); !got {
		t.Errorf("expected loaded=true")
	}
	if got := recv(t, counterCh); got != 5 {
		t.Errorf("expected counter=5, got %d", got)
	}
	expectNothing(t, loadedCh)
	expectNothing(t, counterCh)
}

func TestChangesDeliverInCommitOrder(t *testing.T) {
	store := New(appState{})

	ch, stop := Subscribe(store, lensCounter)
	defer stop()
	recv(t, ch)

	for i := 1; i <= 5; i++ {
		Set(store, lensCounter, i)
	}
	for i := 1; i <= 5; i++ {
		if got := recv(t, ch); got != i {
			t.Fatalf("expected %d in order, got %d", i, got)
		}
	}
}
