package line

import (
	"fmt"

	"github.com/linesim/linesim/sim"
)

// OperatorIndex identifies an operator within its Line.
type OperatorIndex int

// Operator is a scarce worker shared by stations. Its exclusive unit is a
// sim.Resource; the Router reserves it for a station with AssignTo and the
// station's Broker then acquires it.
type Operator struct {
	ID     string
	Name   string
	Policy SchedulingPolicy

	index    OperatorIndex
	resource *sim.Resource

	candidateStations []StationCandidate
	candidateEntities []*Entity
	candidateStation  Operated
	candidateEntity   *Entity
	assignedTo        Operated

	totalWorkingTime         float64
	timeLastOperationStarted float64
	working                  bool
	operations               int

	// Schedule lists the operations of the current replication in start order.
	// The last interval has End < 0 while it is still in progress.
	Schedule []WorkInterval

	// Working and Waiting hold one percentage sample per replication.
	Working []float64
	Waiting []float64
}

// WorkInterval is one operation performed by an operator at a station.
type WorkInterval struct {
	Station string
	Start   float64
	End     float64
}

// NewOperator creates an operator ranking its candidates by rule.
// An unrecognized rule name is an error.
func NewOperator(id, name, rule string) (*Operator, error) {
	policy, err := ParseSchedulingPolicy(rule)
	if err != nil {
		return nil, fmt.Errorf("operator %s: %w", id, err)
	}
	if name == "" {
		name = id
	}
	return &Operator{ID: id, Name: name, Policy: policy}, nil
}

// Index returns the operator's arena index.
func (o *Operator) Index() OperatorIndex {
	return o.index
}

// Resource returns the operator's exclusive unit.
func (o *Operator) Resource() *sim.Resource {
	return o.resource
}

// Available reports whether the operator's unit is free.
func (o *Operator) Available() bool {
	return o.resource == nil || o.resource.Available()
}

// AssignTo reserves the operator for s until its broker acquires it.
func (o *Operator) AssignTo(s Operated) {
	if s == nil {
		panic(fmt.Sprintf("operator %s assigned to nil station", o.ID))
	}
	o.assignedTo = s
}

// UnAssign clears the reservation.
func (o *Operator) UnAssign() {
	o.assignedTo = nil
}

// IsAssignedTo returns the station the operator is reserved for, or nil.
func (o *Operator) IsAssignedTo() Operated {
	return o.assignedTo
}

// HasOneOption reports whether exactly one station or entity competes for the operator.
func (o *Operator) HasOneOption() bool {
	return len(o.candidateStations)+len(o.candidateEntities) == 1
}

// CandidateStations returns the stations ranked in the current round.
func (o *Operator) CandidateStations() []Operated {
	out := make([]Operated, len(o.candidateStations))
	for i, c := range o.candidateStations {
		out[i] = c.Station
	}
	return out
}

// CandidateEntities returns the entities ranked in the current round.
func (o *Operator) CandidateEntities() []*Entity {
	return o.candidateEntities
}

// CandidateStation returns the station chosen in the current round, or nil.
func (o *Operator) CandidateStation() Operated {
	return o.candidateStation
}

// CandidateEntity returns the entity chosen in the current round, or nil.
func (o *Operator) CandidateEntity() *Entity {
	return o.candidateEntity
}

// Operations returns how many times the operator has been acquired this replication.
func (o *Operator) Operations() int {
	return o.operations
}

func (o *Operator) clearCandidates() {
	o.candidateStations = o.candidateStations[:0]
	o.candidateEntities = o.candidateEntities[:0]
	o.candidateStation = nil
	o.candidateEntity = nil
}

func (o *Operator) numCandidates() int {
	return len(o.candidateStations) + len(o.candidateEntities)
}

func (o *Operator) sortCandidates(ctx RuleContext, preemptive bool) {
	SortStations(o.candidateStations, o.Policy, ctx, preemptive)
	SortEntities(o.candidateEntities, o.Policy, ctx)
}

// findCandidateStation picks the first ranked station not yet claimed this
// round. With sorting disabled and every station claimed, it falls back to
// the first candidate and flags it as conflicting.
func (o *Operator) findCandidateStation(st *ArbiterState) (s Operated, degraded bool) {
	for _, c := range o.candidateStations {
		idx := c.Station.Index()
		if st.claimedStations[idx] || st.ConflictingStations[idx] {
			continue
		}
		o.candidateStation = c.Station
		return c.Station, false
	}
	if st.Sorting || len(o.candidateStations) == 0 {
		return nil, false
	}
	s = o.candidateStations[0].Station
	st.ConflictingStations[s.Index()] = true
	o.candidateStation = s
	return s, true
}

// findAvailableEntity walks the ranked entities once and returns the first
// one with a free receiver. Entities found blocked are remembered so later
// operators in the same round skip them.
func (o *Operator) findAvailableEntity(st *ArbiterState) *Entity {
	for _, e := range o.candidateEntities {
		if st.EntitiesWithOccupiedReceivers[e] || st.ConflictingEntities[e] || st.claimedEntities[e] {
			continue
		}
		if st.freeReceiver(e) != nil {
			return e
		}
		st.EntitiesWithOccupiedReceivers[e] = true
	}
	return nil
}

// findCandidateEntity picks the entity the operator should serve. With
// sorting disabled and nothing available, it falls back to the first
// candidate and flags it as conflicting.
func (o *Operator) findCandidateEntity(st *ArbiterState) (e *Entity, degraded bool) {
	e = o.findAvailableEntity(st)
	if e == nil && !st.Sorting && len(o.candidateEntities) > 0 {
		e = o.candidateEntities[0]
		st.ConflictingEntities[e] = true
		degraded = true
	}
	o.candidateEntity = e
	return e, degraded
}

func (o *Operator) bind(r *sim.Resource, i OperatorIndex) {
	o.resource = r
	o.index = i
}

func (o *Operator) initialize() {
	if o.resource != nil {
		o.resource.Reset()
	}
	o.clearCandidates()
	o.assignedTo = nil
	o.totalWorkingTime = 0
	o.timeLastOperationStarted = 0
	o.working = false
	o.operations = 0
	o.Schedule = nil
}

func (o *Operator) startWork(station string, now float64) {
	o.assignedTo = nil
	o.working = true
	o.timeLastOperationStarted = now
	o.operations++
	o.Schedule = append(o.Schedule, WorkInterval{Station: station, Start: now, End: -1})
}

func (o *Operator) finishWork(now float64) {
	o.totalWorkingTime += now - o.timeLastOperationStarted
	o.working = false
	if n := len(o.Schedule); n > 0 {
		o.Schedule[n-1].End = now
	}
}

// TotalWorkingTime returns the time spent working up to now, counting an
// operation still in progress.
func (o *Operator) TotalWorkingTime(now float64) float64 {
	if o.working {
		return o.totalWorkingTime + now - o.timeLastOperationStarted
	}
	return o.totalWorkingTime
}

// PostProcessing appends this replication's working and waiting percentages.
func (o *Operator) PostProcessing(horizon float64) {
	if horizon <= 0 {
		return
	}
	working := o.TotalWorkingTime(horizon)
	o.Working = append(o.Working, 100*working/horizon)
	o.Waiting = append(o.Waiting, 100*(horizon-working)/horizon)
}

// WorkingRatio returns the working percentage of the last replication.
func (o *Operator) WorkingRatio() float64 {
	if len(o.Working) == 0 {
		return 0
	}
	return o.Working[len(o.Working)-1]
}

// WaitingRatio returns the waiting percentage of the last replication.
func (o *Operator) WaitingRatio() float64 {
	if len(o.Waiting) == 0 {
		return 0
	}
	return o.Waiting[len(o.Waiting)-1]
}
