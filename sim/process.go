package sim

import "fmt"

// ProcessState is the lifecycle state of a Process.
type ProcessState int

const (
	// Runnable processes hold control or are queued to receive it.
	Runnable ProcessState = iota
	// Suspended processes wait on exactly one event or timed delay.
	Suspended
	// Terminated processes never run again.
	Terminated
)

func (s ProcessState) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Suspended:
		return "suspended"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}

// Wake describes why a process was resumed.
// Event is nil when the process was started or woken by Hold/Defer.
type Wake struct {
	Time  float64
	Event *Event
}

// Behavior is the body of a process, written as an explicit state machine.
// Resume is called each time the process is granted control. Before returning
// it must suspend the process exactly once (Wait, Hold or Defer) or Exit.
type Behavior interface {
	Resume(p *Process, w Wake)
}

// BehaviorFunc adapts a plain function to the Behavior interface.
type BehaviorFunc func(p *Process, w Wake)

// Resume calls f(p, w).
func (f BehaviorFunc) Resume(p *Process, w Wake) {
	f(p, w)
}

// Process is a cooperative unit of control driven by the Engine.
type Process struct {
	engine   *Engine
	name     string
	behavior Behavior
	state    ProcessState
	waitsOn  *Event
	resumes  int
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.name
}

// State returns the current lifecycle state.
func (p *Process) State() ProcessState {
	return p.state
}

// WaitingOn returns the event the process is parked on, if any.
func (p *Process) WaitingOn() *Event {
	return p.waitsOn
}

// Engine returns the engine driving the process.
func (p *Process) Engine() *Engine {
	return p.engine
}

// Now is shorthand for p.Engine().Now().
func (p *Process) Now() float64 {
	return p.engine.now
}

// Wait suspends the process until ev fires.
func (p *Process) Wait(ev *Event) {
	p.mustBeRunnable("Wait")
	if ev.engine != p.engine {
		panic(fmt.Sprintf("process %q waits on event %q of another engine", p.name, ev.name))
	}
	p.state = Suspended
	p.waitsOn = ev
	ev.addWaiter(p)
}

// Hold suspends the process for delay units of virtual time.
// A zero delay yields to the other processes runnable in this tick.
func (p *Process) Hold(delay float64) {
	p.mustBeRunnable("Hold")
	if delay < 0 {
		panic(fmt.Sprintf("process %q holds for negative delay %v", p.name, delay))
	}
	p.state = Suspended
	if delay == 0 {
		p.engine.scheduleReady(p, nil)
		return
	}
	p.engine.scheduleTimed(p, p.engine.now+delay)
}

// Defer suspends the process until every other zero-delay wake-up of the
// current tick has run, then resumes it before the clock advances.
func (p *Process) Defer() {
	p.mustBeRunnable("Defer")
	p.state = Suspended
	p.engine.scheduleDeferred(p)
}

// Exit terminates the process.
func (p *Process) Exit() {
	p.mustBeRunnable("Exit")
	p.state = Terminated
}

// AssertInstant panics unless ev fired with the current clock time. Processes
// woken by a signal call it to check they were granted control in the same tick.
func (p *Process) AssertInstant(ev *Event) {
	if ev.value != p.engine.now {
		panic(fmt.Sprintf("process %q should be granted control instantly: event %q fired with %v, now %v",
			p.name, ev.name, ev.value, p.engine.now))
	}
}

func (p *Process) mustBeRunnable(op string) {
	if p.state != Runnable {
		panic(fmt.Sprintf("process %q calls %s while %s", p.name, op, p.state))
	}
}
