package status

import (
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, SignedOut},
		{Booting, Connecting},
		{Booting, Error},
		{SignedOut, Connecting},
		{Connecting, Syncing},
		{Connecting, Degraded},
		{Syncing, Ready},
		{Ready, Degraded},
		{Ready, SignedOut},
		{Degraded, Connecting},
		{Degraded, Syncing},
		{Degraded, SignedOut},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Ready},
		{SignedOut, Syncing},
		{Ready, Syncing},
		{Error, Ready},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err == nil {
				t.Errorf("Transition(%s -> %s) should fail", tt.from, tt.to)
			}
			if m.Current() != tt.from {
				t.Errorf("state = %s, want %s (unchanged)", m.Current(), tt.from)
			}
		})
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(SignedOut); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != SignedOut {
		t.Errorf("change = %v -> %v, want BOOTING -> SIGNED_OUT", change.From, change.To)
	}
}

func TestEnsureSameStateIsSilent(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)
	walkTo(t, m, Ready)

	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	if err := m.Ensure(Ready); err != nil {
		t.Fatalf("Ensure(READY) from READY: %v", err)
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	if err := m.Ensure(Syncing); err == nil {
		t.Error("Ensure(SYNCING) from READY should fail")
	}
}

// TestSignInLifecycle walks the first sign-in:
// BOOTING → SIGNED_OUT → CONNECTING → SYNCING → READY
func TestSignInLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{SignedOut, Connecting, Syncing, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// TestDirectoryOutageCycle verifies the recovery loop:
// READY → DEGRADED → CONNECTING → SYNCING → READY
func TestDirectoryOutageCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	m.Fail(errors.New("nats: connection closed"))
	if m.Current() != Degraded {
		t.Fatalf("state = %s, want DEGRADED", m.Current())
	}
	if got := m.Health().LastError; got != "nats: connection closed" {
		t.Errorf("LastError = %q", got)
	}

	for _, s := range []State{Connecting, Syncing, Ready} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if got := m.Health().LastError; got != "" {
		t.Errorf("LastError after READY = %q, want empty", got)
	}
}

func TestFailWhileSignedOutIsIgnored(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, SignedOut)

	m.Fail(errors.New("late error"))
	h := m.Health()
	if h.State != SignedOut {
		t.Errorf("state = %s, want SIGNED_OUT", h.State)
	}
	if h.LastError != "" {
		t.Errorf("LastError = %q, want empty", h.LastError)
	}
}

func TestHealthSnapshotTime(t *testing.T) {
	m := NewMachine(nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.RecordSnapshot(at)
	if got := m.Health().LastSnapshot; !got.Equal(at) {
		t.Errorf("LastSnapshot = %v, want %v", got, at)
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:    {},
		SignedOut:  {SignedOut},
		Connecting: {SignedOut, Connecting},
		Syncing:    {Connecting, Syncing},
		Ready:      {Connecting, Syncing, Ready},
		Degraded:   {Connecting, Syncing, Degraded},
		Error:      {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
