package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Engine holds the virtual clock and drives processes in strict time order.
//
// Three queues feed the loop:
//   - ready: zero-delay wake-ups (event firings, Hold(0), process starts), FIFO
//   - timed: future wake-ups ordered by (time, scheduling order)
//   - deferred: end-of-tick wake-ups, run once ready is empty and no timed
//     wake-up is due at the current time
//
// The clock advances only when both zero-delay queues are empty, so every
// process woken by an event runs in the tick the event fired.
type Engine struct {
	HookableBase

	now      float64
	seq      uint64
	timed    *wakeHeap
	ready    []wakeup
	deferred []wakeup
	procs    []*Process
	running  *Process
	resumes  uint64
}

// NewEngine creates an Engine with the clock at zero.
func NewEngine() *Engine {
	return &Engine{timed: newWakeHeap()}
}

// Now returns the current virtual time.
func (e *Engine) Now() float64 {
	return e.now
}

// Resumes returns the number of times any process has been granted control.
func (e *Engine) Resumes() uint64 {
	return e.resumes
}

// Processes returns every process spawned since the last Reset.
func (e *Engine) Processes() []*Process {
	return e.procs
}

// Reset drops all processes and pending wake-ups and rewinds the clock.
// Hooks stay registered.
func (e *Engine) Reset() {
	e.now = 0
	e.seq = 0
	e.timed = newWakeHeap()
	e.ready = nil
	e.deferred = nil
	e.procs = nil
	e.running = nil
	e.resumes = 0
}

// Spawn registers a process and schedules its first resumption in the current tick.
func (e *Engine) Spawn(name string, b Behavior) *Process {
	p := &Process{engine: e, name: name, behavior: b, state: Suspended}
	e.procs = append(e.procs, p)
	e.scheduleReady(p, nil)
	return p
}

func (e *Engine) nextSeq() uint64 {
	e.seq++
	return e.seq
}

func (e *Engine) scheduleReady(p *Process, ev *Event) {
	e.ready = append(e.ready, wakeup{time: e.now, seq: e.nextSeq(), proc: p, event: ev})
}

func (e *Engine) scheduleDeferred(p *Process) {
	e.deferred = append(e.deferred, wakeup{time: e.now, seq: e.nextSeq(), proc: p})
}

func (e *Engine) scheduleTimed(p *Process, t float64) {
	e.timed.schedule(wakeup{time: t, seq: e.nextSeq(), proc: p})
}

// Pending reports whether any wake-up remains queued.
func (e *Engine) Pending() bool {
	return len(e.ready) > 0 || len(e.deferred) > 0 || e.timed.Len() > 0
}

// Run processes wake-ups until none remain or the next one lies beyond
// horizon. The clock is left at horizon unless it already passed it.
func (e *Engine) Run(horizon float64) {
	if e.running != nil {
		panic("Engine.Run called from inside a process")
	}
	for {
		w, ok := e.next(horizon)
		if !ok {
			break
		}
		e.dispatch(w)
	}
	logrus.Debugf("[t=%09.3f] engine idle, %d resumes", e.now, e.resumes)
}

// Step dispatches exactly one wake-up regardless of horizon.
// It returns false when nothing is pending.
func (e *Engine) Step() bool {
	w, ok := e.next(-1)
	if !ok {
		return false
	}
	e.dispatch(w)
	return true
}

// next pops the next wake-up. A negative horizon means unbounded.
func (e *Engine) next(horizon float64) (wakeup, bool) {
	if len(e.ready) > 0 {
		w := e.ready[0]
		e.ready = e.ready[1:]
		return w, true
	}
	if e.timed.Len() > 0 && e.timed.peek().time <= e.now {
		return e.timed.popNext(), true
	}
	if len(e.deferred) > 0 {
		w := e.deferred[0]
		e.deferred = e.deferred[1:]
		return w, true
	}
	if e.timed.Len() == 0 {
		if horizon >= 0 && e.now < horizon {
			e.now = horizon
		}
		return wakeup{}, false
	}
	if horizon >= 0 && e.timed.peek().time > horizon {
		if e.now < horizon {
			e.now = horizon
		}
		return wakeup{}, false
	}
	w := e.timed.popNext()
	if w.time < e.now {
		panic(fmt.Sprintf("clock went backwards: %v < %v", w.time, e.now))
	}
	e.now = w.time
	return w, true
}

func (e *Engine) dispatch(w wakeup) {
	p := w.proc
	if p.state == Terminated {
		panic(fmt.Sprintf("wake-up for terminated process %q", p.name))
	}
	if w.event != nil {
		if w.event.firedAt != e.now {
			panic(fmt.Sprintf("process %q resumed at %v by event %q fired at %v",
				p.name, e.now, w.event.name, w.event.firedAt))
		}
		if p.waitsOn != w.event {
			panic(fmt.Sprintf("process %q woken by %q while waiting on another event", p.name, w.event.name))
		}
	}

	p.state = Runnable
	p.waitsOn = nil
	p.resumes++
	e.resumes++
	e.running = p

	ctx := HookCtx{Domain: e, Now: e.now, Pos: HookPosBeforeResume, Item: p}
	e.InvokeHook(ctx)

	p.behavior.Resume(p, Wake{Time: e.now, Event: w.event})

	e.running = nil
	if p.state == Runnable {
		panic(fmt.Sprintf("process %q returned control without suspending", p.name))
	}
	ctx.Pos = HookPosAfterResume
	e.InvokeHook(ctx)
}
