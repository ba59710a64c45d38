package timer

import "fmt"

// State is a timer's lifecycle state.
type State int

// Timer lifecycle states (spec §4.8).
const (
	StateActive State = iota
	StatePaused
	StateCompleted
	StateCancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StatePaused:
		return "Paused"
	case StateCompleted:
		return "Completed"
	case StateCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Kind distinguishes a one-shot timer from a periodic one.
type Kind int

// Timer kinds.
const (
	KindOneShot Kind = iota
	KindPeriodic
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindOneShot:
		return "OneShot"
	case KindPeriodic:
		return "Periodic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Callback is invoked when a timer fires. user is the opaque value
// passed at start time.
type Callback func(user any)

// Timer is one named, tick-driven countdown (spec §3).
type Timer struct {
	name      string
	id        uint16
	initialMs uint32
	remaining uint32
	state     State
	kind      Kind
	callback  Callback
	user      any
	expired   bool
}

// Name returns the timer's registered name.
func (t *Timer) Name() string { return t.name }

// State returns the timer's current lifecycle state.
func (t *Timer) State() State { return t.state }

// Kind returns whether the timer is one-shot or periodic.
func (t *Timer) Kind() Kind { return t.kind }

// Remaining returns the milliseconds left before the next fire.
func (t *Timer) Remaining() uint32 { return t.remaining }

// Expired reports whether the timer fired on its most recent tick.
// The flag is cleared at the start of every tick, before timers are
// advanced, so it only ever reflects the immediately preceding tick.
func (t *Timer) Expired() bool { return t.expired }
