package sim

import "fmt"

// Event is a one-shot synchronization primitive. Firing it resumes every
// waiting process in the same virtual-time tick. An event can fire once;
// processes that need to be signalled again must replace their reference
// with a fresh event from Engine.NewEvent.
type Event struct {
	engine   *Engine
	name     string
	fired    bool
	consumed bool // fired and delivered to at least one waiter
	value    float64
	firedAt  float64
	waiters  []*Process
}

// NewEvent creates an unfired event bound to the engine.
func (e *Engine) NewEvent(name string) *Event {
	return &Event{engine: e, name: name}
}

// Name returns the event's label, used in traces and panics.
func (ev *Event) Name() string {
	return ev.name
}

// Fired reports whether Succeed has been called.
func (ev *Event) Fired() bool {
	return ev.fired
}

// Value returns the value the event fired with.
// By convention it is the clock time at the instant of firing.
func (ev *Event) Value() float64 {
	return ev.value
}

// Succeed fires the event with the given value and schedules all current
// waiters to resume at the current clock time. Firing an event twice panics.
func (ev *Event) Succeed(value float64) {
	if ev.fired {
		panic(fmt.Sprintf("event %q fired twice without replacement", ev.name))
	}
	ev.fired = true
	ev.value = value
	ev.firedAt = ev.engine.now
	if len(ev.waiters) == 0 {
		return
	}
	ev.consumed = true
	for _, p := range ev.waiters {
		ev.engine.scheduleReady(p, ev)
	}
	ev.waiters = nil
}

func (ev *Event) addWaiter(p *Process) {
	if ev.consumed {
		panic(fmt.Sprintf("process %q waits on consumed event %q", p.name, ev.name))
	}
	if ev.fired {
		// Fired before anyone listened: deliver in the current tick.
		ev.consumed = true
		ev.engine.scheduleReady(p, ev)
		return
	}
	ev.waiters = append(ev.waiters, p)
}
