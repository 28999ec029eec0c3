package sim

import "fmt"

// Resource is an exclusive unit of capacity one with a FIFO wait queue.
// Holding time is accumulated for utilization reporting; acquire and release
// also invoke the registered hooks with the Resource as the item.
type Resource struct {
	HookableBase

	engine *Engine
	name   string
	holder *Process
	queue  []resourceRequest

	busyTime     float64
	lastAcquired float64
	acquisitions int
}

type resourceRequest struct {
	proc    *Process
	granted *Event
}

// NewResource creates a free resource unit.
func (e *Engine) NewResource(name string) *Resource {
	return &Resource{engine: e, name: name}
}

// Name returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

// Available reports whether the unit is free. It never blocks.
func (r *Resource) Available() bool {
	return r.holder == nil
}

// Holder returns the process holding the unit, or nil.
func (r *Resource) Holder() *Process {
	return r.holder
}

// QueueLen returns the number of requesters waiting for the unit.
func (r *Resource) QueueLen() int {
	return len(r.queue)
}

// Request asks for the unit on behalf of p. The returned event fires with the
// grant time once p holds the unit: immediately when the unit is free,
// otherwise when it reaches the head of the queue.
func (r *Resource) Request(p *Process) *Event {
	if r.holder == p {
		panic(fmt.Sprintf("process %q requests resource %q it already holds", p.Name(), r.name))
	}
	for _, q := range r.queue {
		if q.proc == p {
			panic(fmt.Sprintf("process %q requests resource %q twice", p.Name(), r.name))
		}
	}
	granted := r.engine.NewEvent(r.name + ".granted")
	if r.holder == nil {
		r.acquire(p)
		granted.Succeed(r.engine.now)
		return granted
	}
	r.queue = append(r.queue, resourceRequest{proc: p, granted: granted})
	return granted
}

// Release frees the unit held by p and grants it to the next queued requester.
func (r *Resource) Release(p *Process) {
	if r.holder != p {
		panic(fmt.Sprintf("process %q releases resource %q it does not hold", p.Name(), r.name))
	}
	now := r.engine.now
	r.busyTime += now - r.lastAcquired
	r.holder = nil
	r.InvokeHook(HookCtx{Domain: r, Now: now, Pos: HookPosRelease, Item: r})

	if len(r.queue) == 0 {
		return
	}
	next := r.queue[0]
	r.queue = r.queue[1:]
	r.acquire(next.proc)
	next.granted.Succeed(now)
}

func (r *Resource) acquire(p *Process) {
	r.holder = p
	r.lastAcquired = r.engine.now
	r.acquisitions++
	r.InvokeHook(HookCtx{Domain: r, Now: r.engine.now, Pos: HookPosAcquire, Item: r})
}

// BusyTime returns the total time the unit has been held up to now.
func (r *Resource) BusyTime() float64 {
	if r.holder != nil {
		return r.busyTime + r.engine.now - r.lastAcquired
	}
	return r.busyTime
}

// IdleTime returns the time the unit has been free since the clock started.
func (r *Resource) IdleTime() float64 {
	return r.engine.now - r.BusyTime()
}

// Acquisitions returns how many times the unit has been granted.
func (r *Resource) Acquisitions() int {
	return r.acquisitions
}

// Reset frees the unit, drops queued requests and clears the accumulators.
func (r *Resource) Reset() {
	r.holder = nil
	r.queue = nil
	r.busyTime = 0
	r.lastAcquired = 0
	r.acquisitions = 0
}
