package line

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linesim/linesim/sim"
)

// scriptedStation becomes ready at readyAt, asks its broker for an operator,
// works for workFor with it and releases it.
type scriptedStation struct {
	stationBase
	pool        *OperatorPool
	broker      *Broker
	brokerIsSet *sim.Event
	engine      *sim.Engine
	entity      *Entity
	readyAt     float64
	workFor     float64

	operated bool
	current  *Operator
	step     int

	grantedAt  float64
	releasedAt float64
	grantedOp  *Operator
}

func newScriptedStation(id string, pool *OperatorPool, e *Entity, readyAt, workFor float64) *scriptedStation {
	s := &scriptedStation{
		stationBase: stationBase{id: id, name: id},
		pool:        pool,
		entity:      e,
		readyAt:     readyAt,
		workFor:     workFor,
		grantedAt:   -1,
		releasedAt:  -1,
	}
	s.broker = NewBroker(s)
	return s
}

func (s *scriptedStation) IsOperated() bool                { return s.operated }
func (s *scriptedStation) OperationTypes() []OperationType { return []OperationType{OperationProcessing} }
func (s *scriptedStation) OperatorPool() *OperatorPool     { return s.pool }
func (s *scriptedStation) CurrentOperator() *Operator      { return s.current }
func (s *scriptedStation) SetCurrentOperator(op *Operator) { s.current = op }
func (s *scriptedStation) TimeLastEntityLeft() float64     { return 0 }
func (s *scriptedStation) Broker() *Broker                 { return s.broker }
func (s *scriptedStation) BrokerIsSet() *sim.Event         { return s.brokerIsSet }
func (s *scriptedStation) PostProcessing(float64)          {}

func (s *scriptedStation) CurrentEntity() *Entity {
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

func (s *scriptedStation) Initialize(l *Line) {
	s.reset(l)
	s.engine = l.Engine
	s.step = 0
	s.operated = false
	s.current = nil
	s.grantedAt, s.releasedAt, s.grantedOp = -1, -1, nil
	s.brokerIsSet = l.Engine.NewEvent(s.id + ".brokerIsSet")
	l.Engine.Spawn(s.id, s)
}

func (s *scriptedStation) Resume(p *sim.Process, w sim.Wake) {
	switch s.step {
	case 0:
		s.step = 1
		p.Hold(s.readyAt)
	case 1:
		s.queue = []*Entity{s.entity}
		s.operated = true
		s.broker.Call(w.Time)
		s.step = 2
		p.Wait(s.brokerIsSet)
	case 2:
		p.AssertInstant(s.brokerIsSet)
		s.brokerIsSet = s.engine.NewEvent(s.brokerIsSet.Name())
		s.grantedAt = w.Time
		s.grantedOp = s.current
		s.step = 3
		p.Hold(s.workFor)
	case 3:
		s.operated = false
		s.queue = nil
		s.broker.Call(w.Time)
		s.step = 4
		p.Wait(s.brokerIsSet)
	case 4:
		p.AssertInstant(s.brokerIsSet)
		s.brokerIsSet = s.engine.NewEvent(s.brokerIsSet.Name())
		s.releasedAt = w.Time
		p.Exit()
	}
}

func mustOperator(t *testing.T, l *Line, id, rule string) *Operator {
	t.Helper()
	op, err := NewOperator(id, "", rule)
	require.NoError(t, err)
	require.NoError(t, l.AddOperator(op))
	return op
}

func enteredAt(id, station string, t float64) *Entity {
	e := &Entity{ID: id, CanProceed: true}
	e.Enter(station, t)
	return e
}
