package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	Booting    State = "BOOTING"
	SignedOut  State = "SIGNED_OUT"
	Connecting State = "CONNECTING"
	Syncing    State = "SYNCING"
	Ready      State = "READY"
	Degraded   State = "DEGRADED"
	Error      State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:    {SignedOut, Connecting, Error},
	SignedOut:  {Connecting, Error},
	Connecting: {Syncing, SignedOut, Degraded, Error},
	Syncing:    {Ready, Degraded, SignedOut, Error},
	Ready:      {Degraded, SignedOut, Error},
	Degraded:   {Connecting, Syncing, Ready, SignedOut, Error},
	Error:      {Booting},
}

// Machine tracks and enforces daemon runtime state transitions. It also
// carries the directory health that goes with the state.
type Machine struct {
	mu           sync.RWMutex
	current      State
	since        time.Time
	lastErr      error
	lastSnapshot time.Time
	bus          *bus.Bus
	now          func() time.Time
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		bus:     b,
		now:     time.Now,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

// Ensure is Transition that treats the current state as already reached.
func (m *Machine) Ensure(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == to {
		return nil
	}
	return m.transitionLocked(to)
}

func (m *Machine) transitionLocked(to State) error {
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = m.now()
	if to == Ready || to == SignedOut {
		m.lastErr = nil
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindStatusChanged,
			Timestamp: m.since,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// Fail moves to Degraded, keeping err as the last error. It is a no-op when
// Degraded is unreachable from the current state (e.g. SIGNED_OUT).
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != Degraded {
		if transErr := m.transitionLocked(Degraded); transErr != nil {
			return
		}
	}
	m.lastErr = err
}

// RecordSnapshot stores the time the last directory snapshot was applied.
func (m *Machine) RecordSnapshot(at time.Time) {
	m.mu.Lock()
	m.lastSnapshot = at
	m.mu.Unlock()
}

// Health is a point-in-time view of the machine.
type Health struct {
	State        State
	Since        time.Time
	LastError    string
	LastSnapshot time.Time
}

// Health returns the current state with the directory health fields.
func (m *Machine) Health() Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := Health{
		State:        m.current,
		Since:        m.since,
		LastSnapshot: m.lastSnapshot,
	}
	if m.lastErr != nil {
		h.LastError = m.lastErr.Error()
	}
	return h
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
