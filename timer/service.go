package timer

import (
	"github.com/jondurrant/tst-telemetry/engine"
	"github.com/jondurrant/tst-telemetry/internal/hashmap"
	"github.com/jondurrant/tst-telemetry/pkg"
)

// Service is an independent collection of named timers, advanced by
// Tick. There is no process-wide timer state; a host creates one
// Service and passes it to whatever drives its tick loop.
type Service struct {
	timers *hashmap.Map[*Timer]
}

// NewService returns an empty Service.
func NewService() *Service {
	return &Service{timers: hashmap.New[*Timer](4)}
}

func (s *Service) start(name string, kind Kind, durationMs uint32, cb Callback, user any) error {
	if name == "" || durationMs == 0 {
		return pkg.ErrInvalidParameter
	}
	id := engine.HashID(name)
	s.timers.Put(uint32(id), &Timer{
		name:      name,
		id:        id,
		initialMs: durationMs,
		remaining: durationMs,
		state:     StateActive,
		kind:      kind,
		callback:  cb,
		user:      user,
	})
	pkg.LogDebug(pkg.ComponentTimer, "timer started", "name", name, "kind", kind.String(), "duration_ms", durationMs)
	return nil
}

// StartOneShot arms a timer that fires once after durationMs and then
// completes. Starting a timer under a name that already exists
// replaces it in place: new duration, kind, callback and user data,
// remaining reset to durationMs.
func (s *Service) StartOneShot(name string, durationMs uint32, cb Callback, user any) error {
	return s.start(name, KindOneShot, durationMs, cb, user)
}

// StartPeriodic arms a timer that fires every durationMs and reloads
// indefinitely until paused, stopped, or restarted.
func (s *Service) StartPeriodic(name string, durationMs uint32, cb Callback, user any) error {
	return s.start(name, KindPeriodic, durationMs, cb, user)
}

// Tick advances every active timer by elapsedMs. A timer whose
// remaining time is at or below elapsedMs fires: its callback (if any)
// is invoked, Expired is set until the next Tick, and it
// either reloads (periodic) or completes (one-shot). Expired is
// cleared for every timer at the start of the call, so it only ever
// reflects the tick just performed — a timer that does not fire this
// tick reports Expired() == false regardless of whether it fired on a
// previous one.
func (s *Service) Tick(elapsedMs uint32) {
	s.timers.Each(func(_ uint32, t *Timer) bool {
		t.expired = false
		if t.state != StateActive {
			return true
		}
		if t.remaining <= elapsedMs {
			t.remaining = 0
			t.expired = true
			if t.callback != nil {
				t.callback(t.user)
			}
			if t.kind == KindPeriodic {
				t.remaining = t.initialMs
			} else {
				t.state = StateCompleted
			}
		} else {
			t.remaining -= elapsedMs
		}
		return true
	})
}

func (s *Service) lookup(name string) (*Timer, bool) {
	return s.timers.Get(uint32(engine.HashID(name)))
}

// Pause moves an Active timer to Paused; Tick skips paused timers.
func (s *Service) Pause(name string) error {
	t, ok := s.lookup(name)
	if !ok {
		return pkg.ErrNotFound
	}
	if t.state != StateActive {
		return pkg.ErrInvalidParameter
	}
	t.state = StatePaused
	return nil
}

// Resume moves a Paused timer back to Active, remaining time intact.
func (s *Service) Resume(name string) error {
	t, ok := s.lookup(name)
	if !ok {
		return pkg.ErrNotFound
	}
	if t.state != StatePaused {
		return pkg.ErrInvalidParameter
	}
	t.state = StateActive
	return nil
}

// Stop removes a timer from the service entirely, regardless of its
// current state (spec §4.8: stop is atomic removal from the map, not a
// state transition to Cancelled that lingers).
func (s *Service) Stop(name string) error {
	id := engine.HashID(name)
	if !s.timers.Delete(uint32(id)) {
		return pkg.ErrNotFound
	}
	return nil
}

// Exists reports whether a timer named name is currently registered.
func (s *Service) Exists(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

// Expired reports whether the named timer fired on the most recent
// Tick call. Returns false for an unknown timer.
func (s *Service) Expired(name string) bool {
	t, ok := s.lookup(name)
	if !ok {
		return false
	}
	return t.expired
}

// Remaining returns the milliseconds left before the named timer's
// next fire, and false if no such timer exists.
func (s *Service) Remaining(name string) (uint32, bool) {
	t, ok := s.lookup(name)
	if !ok {
		return 0, false
	}
	return t.remaining, true
}

// State returns the named timer's lifecycle state, and false if no
// such timer exists.
func (s *Service) State(name string) (State, bool) {
	t, ok := s.lookup(name)
	if !ok {
		return 0, false
	}
	return t.state, true
}

// ActiveCount returns the number of timers currently in the Active
// state (not Paused, Completed, or removed by Stop).
func (s *Service) ActiveCount() int {
	count := 0
	s.timers.Each(func(_ uint32, t *Timer) bool {
		if t.state == StateActive {
			count++
		}
		return true
	})
	return count
}
