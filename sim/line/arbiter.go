package line

import "fmt"

// ArbiterState is the process-wide bookkeeping shared by brokers and the
// Router. It is only touched from inside engine ticks and needs no locking.
type ArbiterState struct {
	// Invoked is true from the moment a round is requested until its grants are committed.
	Invoked bool
	// Sorting enables scheduling-rule ordering. Without it the Router falls
	// back to the degraded first-candidate tie-break.
	Sorting bool

	// PendingEntities are entities whose stations wait for an operator, in registration order.
	PendingEntities []*Entity

	ConflictingStations           map[StationIndex]bool
	ConflictingEntities           map[*Entity]bool
	OccupiedReceivers             map[StationIndex]bool
	EntitiesWithOccupiedReceivers map[*Entity]bool

	preemptive      map[OperatorIndex]bool
	pendingBy       map[*Entity]*Broker
	claimedStations map[StationIndex]bool
	claimedEntities map[*Entity]bool
	router          *Router
}

// NewArbiterState creates an empty state.
func NewArbiterState(sorting bool) *ArbiterState {
	s := &ArbiterState{Sorting: sorting, preemptive: make(map[OperatorIndex]bool)}
	s.Reset()
	return s
}

// Reset clears per-replication state. The preemptive set is kept.
func (s *ArbiterState) Reset() {
	s.Invoked = false
	s.PendingEntities = nil
	s.pendingBy = make(map[*Entity]*Broker)
	s.beginRound()
}

func (s *ArbiterState) beginRound() {
	s.ConflictingStations = make(map[StationIndex]bool)
	s.ConflictingEntities = make(map[*Entity]bool)
	s.OccupiedReceivers = make(map[StationIndex]bool)
	s.EntitiesWithOccupiedReceivers = make(map[*Entity]bool)
	s.claimedStations = make(map[StationIndex]bool)
	s.claimedEntities = make(map[*Entity]bool)
}

// SetPreemptive marks op as preemptive: it serves stations holding critical
// entities ahead of its scheduling rule.
func (s *ArbiterState) SetPreemptive(op *Operator, on bool) {
	if on {
		s.preemptive[op.index] = true
		return
	}
	delete(s.preemptive, op.index)
}

// IsPreemptive reports whether op is in the preemptive set.
func (s *ArbiterState) IsPreemptive(op *Operator) bool {
	return s.preemptive[op.index]
}

// Signal requests an arbitration round unless one is already pending.
// It reports whether this call woke the Router.
func (s *ArbiterState) Signal(now float64) bool {
	if s.Invoked {
		return false
	}
	if s.router == nil {
		panic("arbiter signalled without a router")
	}
	s.Invoked = true
	s.router.isCalled.Succeed(now)
	return true
}

// HasPending reports whether any broker waits for an operator.
func (s *ArbiterState) HasPending() bool {
	return len(s.PendingEntities) > 0
}

func (s *ArbiterState) addPending(e *Entity, b *Broker) {
	if _, ok := s.pendingBy[e]; ok {
		panic(fmt.Sprintf("entity %s registered twice as pending", e.ID))
	}
	s.PendingEntities = append(s.PendingEntities, e)
	s.pendingBy[e] = b
}

func (s *ArbiterState) removePending(e *Entity) {
	delete(s.pendingBy, e)
	for i, p := range s.PendingEntities {
		if p == e {
			s.PendingEntities = append(s.PendingEntities[:i], s.PendingEntities[i+1:]...)
			return
		}
	}
}

// receivers returns the stations that could take e: its declared candidate
// receivers, or the station whose broker registered it.
func (s *ArbiterState) receivers(e *Entity) []Station {
	if len(e.CandidateReceivers) > 0 {
		return e.CandidateReceivers
	}
	if b, ok := s.pendingBy[e]; ok {
		return []Station{b.victim}
	}
	return nil
}

// freeReceiver returns the first receiver of e not occupied this round.
func (s *ArbiterState) freeReceiver(e *Entity) Station {
	for _, r := range s.receivers(e) {
		if !s.OccupiedReceivers[r.Index()] {
			return r
		}
	}
	return nil
}
