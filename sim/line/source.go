package line

import (
	"fmt"
	"math/rand"

	"github.com/linesim/linesim/sim"
)

// EntityTemplate describes the entities a Source creates.
type EntityTemplate struct {
	Priority      int
	DueDateOffset float64
	IsCritical    bool
	Manager       *Operator
	Route         []RouteStep
}

// Source creates entities at sampled interarrival times and pushes them to
// its successors in turn.
type Source struct {
	stationBase
	interarrival Distribution
	template     EntityTemplate

	rng     *rand.Rand
	proc    *sim.Process
	created int
	next    int

	// Created holds one sample per replication.
	Created []int
}

// NewSource creates a source.
func NewSource(id, name string, interarrival Distribution, tmpl EntityTemplate) *Source {
	return &Source{stationBase: stationBase{id: id, name: name}, interarrival: interarrival, template: tmpl}
}

// Initialize implements Station.
func (s *Source) Initialize(l *Line) {
	s.reset(l)
	s.created = 0
	s.next = 0
	s.rng = l.RNG(sim.SubsystemStation(s.id))
	s.proc = l.Engine.Spawn(s.id, s)
}

// Resume creates one entity and sleeps until the next arrival.
func (s *Source) Resume(p *sim.Process, w sim.Wake) {
	e := s.newEntity(w.Time)
	s.successor().Receive(e, w.Time)
	p.Hold(s.interarrival.Sample(s.rng))
}

func (s *Source) newEntity(now float64) *Entity {
	s.created++
	route := make([]RouteStep, len(s.template.Route))
	copy(route, s.template.Route)
	return &Entity{
		ID:             fmt.Sprintf("%s_%d", s.id, s.created),
		Priority:       s.template.Priority,
		DueDate:        now + s.template.DueDateOffset,
		OrderDate:      now,
		IsCritical:     s.template.IsCritical,
		Manager:        s.template.Manager,
		CanProceed:     true,
		RemainingRoute: route,
		CreationTime:   now,
	}
}

func (s *Source) successor() Receiver {
	if len(s.successors) == 0 {
		panic(fmt.Sprintf("source %s has no successor", s.id))
	}
	succ := s.successors[s.next%len(s.successors)]
	s.next++
	r, ok := succ.(Receiver)
	if !ok {
		panic(fmt.Sprintf("source %s: successor %s does not accept entities", s.id, succ.ID()))
	}
	return r
}

// PostProcessing implements Station.
func (s *Source) PostProcessing(float64) {
	s.Created = append(s.Created, s.created)
}
