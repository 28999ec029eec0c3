package line

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/linesim/linesim/sim"
)

// BrokerState is the protocol state of a Broker.
type BrokerState int

const (
	BrokerIdle BrokerState = iota
	BrokerWaitingForRouter
	BrokerOperating
)

func (s BrokerState) String() string {
	switch s {
	case BrokerIdle:
		return "Idle"
	case BrokerWaitingForRouter:
		return "WaitingForRouter"
	case BrokerOperating:
		return "Operating"
	default:
		return fmt.Sprintf("BrokerState(%d)", int(s))
	}
}

type brokerStep int

const (
	brokerStart brokerStep = iota
	brokerAwaitCall
	brokerAwaitRouter
	brokerAwaitUnit
	brokerAwaitRelease
)

// Broker acquires and releases an operator on behalf of one station.
//
// The station calls the broker, then waits on its BrokerIsSet event. When the
// station needs an operator and others may compete, the broker registers the
// station's entity as pending, wakes the Router and waits for a grant. Once
// it holds the operator it hands control back. The next call, made when the
// station no longer needs the operator, releases it.
type Broker struct {
	victim  Operated
	arbiter *ArbiterState
	proc    *sim.Process
	engine  *sim.Engine

	state   BrokerState
	step    brokerStep
	pending *Entity
	unit    *Operator

	isCalled          *sim.Event
	resourceAvailable *sim.Event

	WaitForOperator            bool
	TimeWaitForOperatorStarted float64
	TimeOperationStarted       float64
	TimeLastOperationEnded     float64
}

// NewBroker creates the broker of victim.
func NewBroker(victim Operated) *Broker {
	return &Broker{victim: victim}
}

// Victim returns the station the broker serves.
func (b *Broker) Victim() Operated {
	return b.victim
}

// State returns the protocol state.
func (b *Broker) State() BrokerState {
	return b.state
}

// Process returns the broker's process.
func (b *Broker) Process() *sim.Process {
	return b.proc
}

// Initialize resets the broker and spawns its process on l's engine.
func (b *Broker) Initialize(l *Line) {
	b.arbiter = l.Arbiter
	b.engine = l.Engine
	b.state = BrokerIdle
	b.step = brokerStart
	b.pending = nil
	b.unit = nil
	b.WaitForOperator = false
	b.TimeWaitForOperatorStarted = 0
	b.TimeOperationStarted = 0
	b.TimeLastOperationEnded = 0
	b.isCalled = l.Engine.NewEvent(b.victim.ID() + ".broker.isCalled")
	b.resourceAvailable = l.Engine.NewEvent(b.victim.ID() + ".broker.resourceAvailable")
	b.proc = l.Engine.Spawn(b.victim.ID()+".broker", b)
}

// Call wakes the broker. The victim then waits on its BrokerIsSet event.
func (b *Broker) Call(now float64) {
	b.isCalled.Succeed(now)
}

// grant is invoked by the Router when it reserves an operator for the victim.
func (b *Broker) grant(now float64) {
	if !b.WaitForOperator || b.resourceAvailable.Fired() {
		panic(fmt.Sprintf("broker %s granted while %s", b.victim.ID(), b.state))
	}
	b.resourceAvailable.Succeed(now)
}

// granted reports whether a grant is in flight for this broker.
func (b *Broker) granted() bool {
	return b.resourceAvailable.Fired()
}

// Resume implements sim.Behavior.
func (b *Broker) Resume(p *sim.Process, w sim.Wake) {
	now := w.Time
	switch b.step {
	case brokerStart:
		b.awaitCall(p)

	case brokerAwaitCall:
		p.AssertInstant(b.isCalled)
		b.isCalled = b.engine.NewEvent(b.isCalled.Name())
		if !b.victim.IsOperated() || !requiresOperator(b.victim.OperationTypes()) {
			b.victim.BrokerIsSet().Succeed(now)
			b.awaitCall(p)
			return
		}
		b.TimeWaitForOperatorStarted = now
		if len(b.victim.Queue()) > 0 {
			b.pending = b.victim.CurrentEntity()
			b.arbiter.addPending(b.pending, b)
			b.WaitForOperator = true
			b.state = BrokerWaitingForRouter
			b.arbiter.Signal(now)
			b.step = brokerAwaitRouter
			p.Wait(b.resourceAvailable)
			return
		}
		b.acquire(p)

	case brokerAwaitRouter:
		p.AssertInstant(b.resourceAvailable)
		b.resourceAvailable = b.engine.NewEvent(b.resourceAvailable.Name())
		b.arbiter.removePending(b.pending)
		b.pending = nil
		b.WaitForOperator = false
		b.acquire(p)

	case brokerAwaitUnit:
		b.TimeOperationStarted = now
		b.unit.startWork(b.victim.ID(), now)
		logrus.Debugf("[t=%09.3f] %s acquired operator %s after waiting %.3f",
			now, b.victim.ID(), b.unit.ID, now-b.TimeWaitForOperatorStarted)
		b.TimeWaitForOperatorStarted = 0
		b.victim.BrokerIsSet().Succeed(now)
		b.step = brokerAwaitRelease
		p.Wait(b.isCalled)

	case brokerAwaitRelease:
		p.AssertInstant(b.isCalled)
		b.isCalled = b.engine.NewEvent(b.isCalled.Name())
		if b.victim.IsOperated() {
			b.victim.BrokerIsSet().Succeed(now)
			p.Wait(b.isCalled)
			return
		}
		b.release(p, now)
		b.victim.BrokerIsSet().Succeed(now)
		b.awaitCall(p)

	default:
		panic(fmt.Sprintf("broker %s in unknown step %d", b.victim.ID(), b.step))
	}
}

func (b *Broker) awaitCall(p *sim.Process) {
	b.step = brokerAwaitCall
	p.Wait(b.isCalled)
}

func (b *Broker) acquire(p *sim.Process) {
	if b.victim.CurrentOperator() != nil || b.unit != nil {
		panic(fmt.Sprintf("broker %s requests an operator while holding one", b.victim.ID()))
	}
	op := b.victim.OperatorPool().FindAvailableOperator(b.victim)
	if op == nil {
		panic(fmt.Sprintf("broker %s: there is no available operator to request", b.victim.ID()))
	}
	b.victim.SetCurrentOperator(op)
	b.unit = op
	b.state = BrokerOperating
	b.step = brokerAwaitUnit
	p.Wait(op.resource.Request(p))
}

func (b *Broker) release(p *sim.Process, now float64) {
	op := b.unit
	op.finishWork(now)
	op.resource.Release(p)
	b.TimeLastOperationEnded = now
	b.victim.SetCurrentOperator(nil)
	b.unit = nil
	b.state = BrokerIdle
	logrus.Debugf("[t=%09.3f] %s released operator %s", now, b.victim.ID(), op.ID)
	if b.arbiter.HasPending() {
		b.arbiter.Signal(now)
	}
}
