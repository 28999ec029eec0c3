package line

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/linesim/linesim/sim"
	"github.com/linesim/linesim/sim/trace"
)

type routerStep int

const (
	routerStart routerStep = iota
	routerAwaitCall
	routerAwaitEndOfTick
)

// Router arbitrates operators among waiting brokers. It runs one round per
// wake-up, deferred to the end of the tick so every same-tick request is seen.
type Router struct {
	line   *Line
	proc   *sim.Process
	step   routerStep
	rounds int

	isCalled *sim.Event
}

// NewRouter creates the Router of l.
func NewRouter(l *Line) *Router {
	return &Router{line: l}
}

// Rounds returns the number of rounds run in the current replication.
func (r *Router) Rounds() int {
	return r.rounds
}

// Initialize resets the router and spawns its process.
func (r *Router) Initialize() {
	r.step = routerStart
	r.rounds = 0
	r.isCalled = r.line.Engine.NewEvent("router.isCalled")
	r.proc = r.line.Engine.Spawn("router", r)
}

// Resume implements sim.Behavior.
func (r *Router) Resume(p *sim.Process, w sim.Wake) {
	switch r.step {
	case routerStart:
		r.step = routerAwaitCall
		p.Wait(r.isCalled)
	case routerAwaitCall:
		p.AssertInstant(r.isCalled)
		r.isCalled = r.line.Engine.NewEvent(r.isCalled.Name())
		r.step = routerAwaitEndOfTick
		p.Defer()
	case routerAwaitEndOfTick:
		r.round(w.Time)
		r.step = routerAwaitCall
		p.Wait(r.isCalled)
	}
}

type grant struct {
	op       *Operator
	station  Operated
	entity   *Entity
	degraded bool
}

// round snapshots waiting brokers and idle operators, ranks candidates, picks
// one station per operator and commits the grants.
func (r *Router) round(now float64) {
	st := r.line.Arbiter
	st.beginRound()
	r.rounds++

	var waiting []*Broker
	for _, b := range r.line.brokers {
		if b.WaitForOperator && !b.granted() {
			waiting = append(waiting, b)
		}
	}
	var idle []*Operator
	for _, op := range r.line.operators {
		op.clearCandidates()
		if op.Available() && op.IsAssignedTo() == nil {
			idle = append(idle, op)
		}
	}

	ctx := r.line.ruleContext(now)
	for _, op := range idle {
		for _, b := range waiting {
			e := b.pending
			if !b.victim.OperatorPool().Contains(op) {
				continue
			}
			if e != nil && e.Manager != nil && e.Manager != op {
				continue
			}
			op.candidateStations = append(op.candidateStations, StationCandidate{
				Station:     b.victim,
				TimeWaiting: now - b.TimeWaitForOperatorStarted,
				Entity:      e,
				Critical:    e != nil && e.IsCritical,
			})
		}
		for _, e := range st.PendingEntities {
			if e.Manager != op || !e.CanProceed {
				continue
			}
			// The registering broker only acquires from its own pool.
			b, ok := st.pendingBy[e]
			if !ok || b.granted() || !b.victim.OperatorPool().Contains(op) {
				continue
			}
			op.candidateEntities = append(op.candidateEntities, e)
		}
		if st.Sorting {
			op.sortCandidates(ctx, st.IsPreemptive(op))
		}
	}

	// Operators with fewer options choose first.
	order := append([]*Operator(nil), idle...)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].numCandidates() < order[j].numCandidates()
	})

	var grants []grant
	for _, op := range order {
		if op.numCandidates() == 0 {
			continue
		}
		if len(op.candidateEntities) > 0 {
			if g, ok := r.pickEntity(op, st); ok {
				grants = append(grants, g)
				continue
			}
		}
		s, degraded := op.findCandidateStation(st)
		if s == nil {
			logrus.Debugf("[t=%09.3f] operator %s has no available station", now, op.ID)
			continue
		}
		st.claimedStations[s.Index()] = true
		st.OccupiedReceivers[s.Index()] = true
		grants = append(grants, grant{op: op, station: s, entity: s.CurrentEntity(), degraded: degraded})
	}

	r.commit(now, grants, waiting, idle)
}

func (r *Router) pickEntity(op *Operator, st *ArbiterState) (grant, bool) {
	e, degraded := op.findCandidateEntity(st)
	if e == nil {
		return grant{}, false
	}
	b, ok := st.pendingBy[e]
	if !ok || b.granted() {
		return grant{}, false
	}
	if recv := st.freeReceiver(e); recv != nil {
		st.OccupiedReceivers[recv.Index()] = true
	}
	st.claimedEntities[e] = true
	st.claimedStations[b.victim.Index()] = true
	return grant{op: op, station: b.victim, entity: e, degraded: degraded}, true
}

func (r *Router) commit(now float64, grants []grant, waiting []*Broker, idle []*Operator) {
	st := r.line.Arbiter
	tr := r.line.Trace
	committed := make(map[StationIndex]bool, len(grants))
	n := 0
	for _, g := range grants {
		idx := g.station.Index()
		if committed[idx] {
			logrus.Warnf("[t=%09.3f] operator %s dropped: station %s already granted this round",
				now, g.op.ID, g.station.ID())
			r.recordGrant(tr, now, g, true)
			continue
		}
		committed[idx] = true
		g.op.AssignTo(g.station)
		g.station.Broker().grant(now)
		n++
		logrus.Debugf("[t=%09.3f] round %d: operator %s -> %s", now, r.rounds, g.op.ID, g.station.ID())
		r.recordGrant(tr, now, g, false)
	}
	if n == 0 && len(waiting) > 0 {
		logrus.Debugf("[t=%09.3f] round %d: %d stations waiting, no operator available", now, r.rounds, len(waiting))
	}
	if tr.Enabled() {
		rec := trace.RoundRecord{Round: r.rounds, Clock: now, Grants: n}
		for _, b := range waiting {
			rec.WaitingStations = append(rec.WaitingStations, b.victim.ID())
		}
		for _, op := range idle {
			rec.IdleOperators = append(rec.IdleOperators, op.ID)
		}
		tr.RecordRound(rec)
	}
	st.Invoked = false
}

func (r *Router) recordGrant(tr *trace.SimulationTrace, now float64, g grant, conflict bool) {
	if !tr.Enabled() {
		return
	}
	rec := trace.GrantRecord{
		Round:    r.rounds,
		Clock:    now,
		Operator: g.op.ID,
		Station:  g.station.ID(),
		Rule:     g.op.Policy.Name,
		Degraded: g.degraded,
		Conflict: conflict,
	}
	if g.entity != nil {
		rec.Entity = g.entity.ID
	}
	for _, c := range g.op.candidateStations {
		rec.Candidates = append(rec.Candidates, trace.CandidateRecord{
			ID:          c.Station.ID(),
			TimeWaiting: c.TimeWaiting,
			Critical:    c.Critical,
		})
	}
	tr.RecordGrant(rec)
}
