package retry

import (
	"testing"
	"time"
)

func TestNewPolicyFallsBackOnInvalidInput(t *testing.T) {
	p := NewPolicy("jittered", 0, 0, -1)

	def := DefaultPolicy()
	if p.Mode != def.Mode || p.Initial != def.Initial || p.Max != def.Max || p.MaxRetries != def.MaxRetries {
		t.Errorf("expected defaults for invalid input, got %+v", p)
	}
}

func TestNewPolicyClampsInitialToMax(t *testing.T) {
	p := NewPolicy(BackoffFixed, 10*time.Second, time.Second, 1)
	if p.Initial != time.Second {
		t.Errorf("expected initial clamped to max, got %v", p.Initial)
	}
}

func TestDelayFixed(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Second, time.Minute, 3)
	for _, attempt := range []int{1, 2, 5} {
		if got := p.Delay(attempt); got != time.Second {
			t.Errorf("attempt %d: expected 1s, got %v", attempt, got)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	p := NewPolicy(BackoffLinear, time.Second, 3*time.Second, 5)

	cases := map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 3 * time.Second,
		4: 3 * time.Second, // capped
	}
	for attempt, want := range cases {
		if got := p.Delay(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestDelayExponential(t *testing.T) {
	p := NewPolicy(BackoffExponential, time.Second, 10*time.Second, 5)

	cases := map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 8 * time.Second,
		5: 10 * time.Second, // capped
	}
	for attempt, want := range cases {
		if got := p.Delay(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestDelayNonPositiveAttempt(t *testing.T) {
	p := DefaultPolicy()
	if got := p.Delay(0); got != 0 {
		t.Errorf("expected no delay for attempt 0, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy must validate: %v", err)
	}
	bad := Policy{Mode: BackoffFixed, Initial: 0, Max: time.Second}
	if err := bad.Validate(); err == nil {
		t.Errorf("expected zero initial to be rejected")
	}
}
