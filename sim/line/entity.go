package line

// RouteStep is one remaining stop of an entity's route: the stations that can
// perform it and the mean processing time it needs there.
type RouteStep struct {
	StationIDs     []string
	ProcessingTime float64
}

// ScheduleEntry records an entity entering a station.
type ScheduleEntry struct {
	StationID string
	EnterTime float64
}

// Entity is a work item moving through the line. The kernel only reads it:
// scheduling rules rank entities by these fields and the Router uses Manager,
// CanProceed and CandidateReceivers for entity-level arbitration.
type Entity struct {
	ID         string
	Priority   int
	DueDate    float64
	OrderDate  float64
	IsCritical bool

	RemainingRoute []RouteStep
	Schedule       []ScheduleEntry

	// Manager, when set, is the only operator allowed to handle the entity.
	Manager *Operator
	// CanProceed marks the entity as ready to compete for its manager.
	CanProceed bool
	// CandidateReceivers are the stations that could take the entity next.
	CandidateReceivers []Station

	CreationTime float64
}

// Enter appends a schedule entry for stationID at time t.
func (e *Entity) Enter(stationID string, t float64) {
	e.Schedule = append(e.Schedule, ScheduleEntry{StationID: stationID, EnterTime: t})
}

// LastScheduleTime returns the time of the most recent schedule entry,
// or the creation time when the entity has not entered any station.
func (e *Entity) LastScheduleTime() float64 {
	if len(e.Schedule) == 0 {
		return e.CreationTime
	}
	return e.Schedule[len(e.Schedule)-1].EnterTime
}

// RemainingProcessingTime sums the mean processing times of the remaining route.
func (e *Entity) RemainingProcessingTime() float64 {
	var total float64
	for _, step := range e.RemainingRoute {
		total += step.ProcessingTime
	}
	return total
}

// NextStepProcessingTime returns the mean processing time of the immediate
// next step, or zero when the route is exhausted.
func (e *Entity) NextStepProcessingTime() float64 {
	if len(e.RemainingRoute) == 0 {
		return 0
	}
	return e.RemainingRoute[0].ProcessingTime
}

// NextDestinations returns the station ids of the step after the current one.
func (e *Entity) NextDestinations() []string {
	if len(e.RemainingRoute) < 2 {
		return nil
	}
	return e.RemainingRoute[1].StationIDs
}

// Slack is the due date minus the remaining processing time.
func (e *Entity) Slack() float64 {
	return e.DueDate - e.RemainingProcessingTime()
}

// leave pops the head route step if it belongs to stationID.
func (e *Entity) leave(stationID string) {
	if len(e.RemainingRoute) == 0 {
		return
	}
	for _, id := range e.RemainingRoute[0].StationIDs {
		if id == stationID {
			e.RemainingRoute = e.RemainingRoute[1:]
			return
		}
	}
}
