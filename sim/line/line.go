package line

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/linesim/linesim/sim"
	"github.com/linesim/linesim/sim/trace"
)

// Line is a built production line: arenas of stations and operators, their
// brokers, the shared arbiter state and the engine that drives them.
type Line struct {
	Engine  *sim.Engine
	Arbiter *ArbiterState
	Router  *Router
	// Trace collects arbitration decisions when enabled. May be nil.
	Trace *trace.SimulationTrace

	stations  []Station
	byID      map[string]Station
	operators []*Operator
	opByID    map[string]*Operator
	brokers   []*Broker
	rng       *sim.PartitionedRNG

	replications int
}

// New creates an empty line. Sorting enables scheduling-rule ordering in the Router.
func New(sorting bool) *Line {
	l := &Line{
		Engine:  sim.NewEngine(),
		Arbiter: NewArbiterState(sorting),
		byID:    make(map[string]Station),
		opByID:  make(map[string]*Operator),
	}
	l.Router = NewRouter(l)
	l.Arbiter.router = l.Router
	return l
}

// AddOperator registers op and binds its exclusive unit to the engine.
func (l *Line) AddOperator(op *Operator) error {
	if _, dup := l.opByID[op.ID]; dup {
		return fmt.Errorf("duplicate operator id %q", op.ID)
	}
	op.bind(l.Engine.NewResource(op.ID), OperatorIndex(len(l.operators)))
	l.operators = append(l.operators, op)
	l.opByID[op.ID] = op
	return nil
}

// AddStation registers s. Operated stations get their broker registered too.
func (l *Line) AddStation(s Station) error {
	if _, dup := l.byID[s.ID()]; dup {
		return fmt.Errorf("duplicate station id %q", s.ID())
	}
	s.setIndex(StationIndex(len(l.stations)))
	l.stations = append(l.stations, s)
	l.byID[s.ID()] = s
	if o, ok := s.(Operated); ok && o.Broker() != nil {
		l.brokers = append(l.brokers, o.Broker())
	}
	return nil
}

// Stations returns the stations in registration order.
func (l *Line) Stations() []Station {
	return l.stations
}

// Station returns the station with the given id.
func (l *Line) Station(id string) (Station, bool) {
	s, ok := l.byID[id]
	return s, ok
}

// Operators returns the operators in registration order.
func (l *Line) Operators() []*Operator {
	return l.operators
}

// Operator returns the operator with the given id.
func (l *Line) Operator(id string) (*Operator, bool) {
	op, ok := l.opByID[id]
	return op, ok
}

// Brokers returns the brokers in station order.
func (l *Line) Brokers() []*Broker {
	return l.brokers
}

// Replications returns the number of completed replications.
func (l *Line) Replications() int {
	return l.replications
}

// RNG returns the stream named subsystem for the current replication.
func (l *Line) RNG(subsystem string) *rand.Rand {
	return l.rng.ForSubsystem(subsystem)
}

func (l *Line) ruleContext(now float64) RuleContext {
	return RuleContext{
		Now: now,
		QueueLength: func(id string) (int, bool) {
			s, ok := l.byID[id]
			if !ok {
				return 0, false
			}
			return len(s.Queue()), true
		},
	}
}

// Initialize prepares a replication: rewinds the engine, clears the arbiter,
// reseeds the random streams and restarts every station, broker and the Router.
func (l *Line) Initialize(key sim.SimulationKey) {
	l.Engine.Reset()
	l.Arbiter.Reset()
	l.rng = sim.NewPartitionedRNG(key)
	for _, op := range l.operators {
		op.initialize()
	}
	l.Router.Initialize()
	for _, s := range l.stations {
		s.Initialize(l)
	}
	for _, b := range l.brokers {
		b.Initialize(l)
	}
}

// Run advances the engine up to horizon.
func (l *Line) Run(horizon float64) {
	l.Engine.Run(horizon)
}

// PostProcessing records this replication's statistics.
func (l *Line) PostProcessing(horizon float64) {
	for _, s := range l.stations {
		s.PostProcessing(horizon)
	}
	for _, op := range l.operators {
		op.PostProcessing(horizon)
	}
	l.replications++
}

// RunReplications runs n independent replications of horizon time units.
// Replication i is seeded with baseSeed+i+1.
func (l *Line) RunReplications(n int, horizon float64, baseSeed int64) {
	for i := 0; i < n; i++ {
		if l.Trace != nil {
			l.Trace.StartReplication(i)
		}
		l.Initialize(sim.ReplicationKey(baseSeed, i))
		l.Run(horizon)
		l.PostProcessing(horizon)
		logrus.Infof("replication %d/%d finished at t=%.3f after %d router rounds",
			i+1, n, l.Engine.Now(), l.Router.Rounds())
	}
}
