package line

import (
	"fmt"
	"math/rand"

	"github.com/linesim/linesim/sim"
)

// MachineConfig describes a machine's timing and operator needs.
type MachineConfig struct {
	ProcessingTime Distribution
	// SetupTime and LoadTime add a phase before processing when set.
	SetupTime *Distribution
	LoadTime  *Distribution
	// OperationTypes lists the phases that need an operator.
	OperationTypes []OperationType
	// Pool is the set of operators the machine may use. Nil means unattended.
	Pool *OperatorPool
}

type machineStep int

const (
	machineStart machineStep = iota
	machineAwaitEntity
	machineAwaitOperator
	machineWorking
	machineAwaitRelease
)

type machinePhase struct {
	kind     OperationType
	duration Distribution
}

// Machine processes one entity at a time. It pulls from its predecessors,
// runs load, setup and processing phases, and pushes the entity on. Phases
// listed in OperationTypes run with an operator obtained through the Broker.
type Machine struct {
	stationBase
	operationTypes []OperationType
	pool           *OperatorPool
	phases         []machinePhase
	acquireAt      int
	releaseAfter   int

	broker      *Broker
	brokerIsSet *sim.Event
	isRequested *sim.Event
	proc        *sim.Process
	engine      *sim.Engine
	rng         *rand.Rand

	step               machineStep
	phase              int
	operated           bool
	currentOperator    *Operator
	timeLastEntityLeft float64
	phaseStarted       float64
	waitStarted        float64
	next               int

	processed        int
	workingTime      float64
	waitOperatorTime float64

	// Per-replication samples.
	NumProcessed       []int
	Working            []float64
	WaitingForOperator []float64
}

// NewMachine creates a machine. A broker is attached when the machine has an
// operator pool and at least one operated phase.
func NewMachine(id, name string, cfg MachineConfig) *Machine {
	m := &Machine{
		stationBase:    stationBase{id: id, name: name},
		operationTypes: cfg.OperationTypes,
		pool:           cfg.Pool,
		acquireAt:      -1,
		releaseAfter:   -1,
	}
	if cfg.LoadTime != nil {
		m.phases = append(m.phases, machinePhase{kind: OperationLoad, duration: *cfg.LoadTime})
	}
	if cfg.SetupTime != nil {
		m.phases = append(m.phases, machinePhase{kind: OperationSetup, duration: *cfg.SetupTime})
	}
	m.phases = append(m.phases, machinePhase{kind: OperationProcessing, duration: cfg.ProcessingTime})

	if cfg.Pool != nil && requiresOperator(cfg.OperationTypes) {
		for i, ph := range m.phases {
			if !hasOperationType(cfg.OperationTypes, ph.kind) {
				continue
			}
			if m.acquireAt < 0 {
				m.acquireAt = i
			}
			m.releaseAfter = i
		}
		if m.acquireAt >= 0 {
			m.broker = NewBroker(m)
		}
	}
	return m
}

// IsOperated implements Operated.
func (m *Machine) IsOperated() bool { return m.operated }

// OperationTypes implements Operated.
func (m *Machine) OperationTypes() []OperationType { return m.operationTypes }

// OperatorPool implements Operated.
func (m *Machine) OperatorPool() *OperatorPool { return m.pool }

// CurrentOperator implements Operated.
func (m *Machine) CurrentOperator() *Operator { return m.currentOperator }

// SetCurrentOperator implements Operated.
func (m *Machine) SetCurrentOperator(op *Operator) { m.currentOperator = op }

// TimeLastEntityLeft implements Operated.
func (m *Machine) TimeLastEntityLeft() float64 { return m.timeLastEntityLeft }

// Broker implements Operated. Nil for unattended machines.
func (m *Machine) Broker() *Broker { return m.broker }

// BrokerIsSet implements Operated.
func (m *Machine) BrokerIsSet() *sim.Event { return m.brokerIsSet }

// CurrentEntity implements Operated.
func (m *Machine) CurrentEntity() *Entity {
	if len(m.queue) == 0 {
		return nil
	}
	return m.queue[0]
}

// Initialize implements Station.
func (m *Machine) Initialize(l *Line) {
	m.reset(l)
	m.engine = l.Engine
	m.rng = l.RNG(sim.SubsystemStation(m.id))
	m.step = machineStart
	m.phase = 0
	m.operated = false
	m.currentOperator = nil
	m.timeLastEntityLeft = 0
	m.phaseStarted = 0
	m.waitStarted = 0
	m.next = 0
	m.processed = 0
	m.workingTime = 0
	m.waitOperatorTime = 0
	m.brokerIsSet = l.Engine.NewEvent(m.id + ".brokerIsSet")
	m.isRequested = l.Engine.NewEvent(m.id + ".isRequested")
	m.proc = l.Engine.Spawn(m.id, m)
}

func (m *Machine) notify(now float64) {
	if m.step == machineAwaitEntity && !m.isRequested.Fired() {
		m.isRequested.Succeed(now)
	}
}

// Resume implements sim.Behavior.
func (m *Machine) Resume(p *sim.Process, w sim.Wake) {
	now := w.Time
	switch m.step {
	case machineStart:
		m.pull(p, now)
	case machineAwaitEntity:
		p.AssertInstant(m.isRequested)
		m.isRequested = m.engine.NewEvent(m.isRequested.Name())
		m.pull(p, now)
	case machineAwaitOperator:
		p.AssertInstant(m.brokerIsSet)
		m.brokerIsSet = m.engine.NewEvent(m.brokerIsSet.Name())
		m.waitOperatorTime += now - m.waitStarted
		m.runPhase(p, now)
	case machineWorking:
		m.endPhase(p, now)
	case machineAwaitRelease:
		p.AssertInstant(m.brokerIsSet)
		m.brokerIsSet = m.engine.NewEvent(m.brokerIsSet.Name())
		m.phase++
		m.nextPhase(p, now)
	default:
		panic(fmt.Sprintf("machine %s in unknown step %d", m.id, m.step))
	}
}

func (m *Machine) pull(p *sim.Process, now float64) {
	for _, pred := range m.predecessors {
		g, ok := pred.(Giver)
		if !ok || !g.HasEntity() {
			continue
		}
		e := g.Take(now)
		e.Enter(m.id, now)
		m.queue = []*Entity{e}
		m.phase = 0
		m.nextPhase(p, now)
		return
	}
	m.step = machineAwaitEntity
	p.Wait(m.isRequested)
}

func (m *Machine) nextPhase(p *sim.Process, now float64) {
	if m.phase >= len(m.phases) {
		m.finish(p, now)
		return
	}
	if m.phase == m.acquireAt {
		m.operated = true
		m.waitStarted = now
		m.step = machineAwaitOperator
		m.broker.Call(now)
		p.Wait(m.brokerIsSet)
		return
	}
	m.runPhase(p, now)
}

func (m *Machine) runPhase(p *sim.Process, now float64) {
	m.phaseStarted = now
	m.step = machineWorking
	p.Hold(m.phases[m.phase].duration.Sample(m.rng))
}

func (m *Machine) endPhase(p *sim.Process, now float64) {
	m.workingTime += now - m.phaseStarted
	if m.phase == m.releaseAfter {
		m.operated = false
		m.step = machineAwaitRelease
		m.broker.Call(now)
		p.Wait(m.brokerIsSet)
		return
	}
	m.phase++
	m.nextPhase(p, now)
}

func (m *Machine) finish(p *sim.Process, now float64) {
	e := m.queue[0]
	m.queue = nil
	e.leave(m.id)
	m.successorFor(e).Receive(e, now)
	m.timeLastEntityLeft = now
	m.processed++
	m.pull(p, now)
}

// successorFor follows the entity's route when it names a successor, else
// rotates over the successors.
func (m *Machine) successorFor(e *Entity) Receiver {
	if len(m.successors) == 0 {
		panic(fmt.Sprintf("machine %s has no successor", m.id))
	}
	var succ Station
	if len(e.RemainingRoute) > 0 {
		for _, s := range m.successors {
			for _, id := range e.RemainingRoute[0].StationIDs {
				if s.ID() == id {
					succ = s
					break
				}
			}
			if succ != nil {
				break
			}
		}
	}
	if succ == nil {
		succ = m.successors[m.next%len(m.successors)]
		m.next++
	}
	r, ok := succ.(Receiver)
	if !ok {
		panic(fmt.Sprintf("machine %s: successor %s does not accept entities", m.id, succ.ID()))
	}
	return r
}

// Processed returns the entities finished in the current replication.
func (m *Machine) Processed() int {
	return m.processed
}

// PostProcessing implements Station.
func (m *Machine) PostProcessing(horizon float64) {
	working := m.workingTime
	if m.step == machineWorking {
		working += horizon - m.phaseStarted
	}
	waiting := m.waitOperatorTime
	if m.step == machineAwaitOperator {
		waiting += horizon - m.waitStarted
	}
	m.NumProcessed = append(m.NumProcessed, m.processed)
	if horizon > 0 {
		m.Working = append(m.Working, 100*working/horizon)
		m.WaitingForOperator = append(m.WaitingForOperator, 100*waiting/horizon)
	}
}
