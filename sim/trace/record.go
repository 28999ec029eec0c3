// Package trace provides decision-trace recording for operator arbitration.
// It does not import sim/ or sim/line/ and stores plain data types.
package trace

// RoundRecord captures one Router arbitration round.
type RoundRecord struct {
	Replication     int
	Round           int
	Clock           float64
	WaitingStations []string
	IdleOperators   []string
	Grants          int
}

// CandidateRecord captures a station or entity an operator could have chosen,
// in the order the scheduling rule ranked it.
type CandidateRecord struct {
	ID          string
	TimeWaiting float64
	Critical    bool
}

// GrantRecord captures a single operator-to-station grant.
type GrantRecord struct {
	Replication int
	Round       int
	Clock       float64
	Operator    string
	Station     string
	Entity      string // empty when the station held no entity
	Rule        string
	Candidates  []CandidateRecord // ranked candidates seen by the operator (nil if none)
	Degraded    bool              // chosen by the last-resort tie-break
	Conflict    bool              // the station was already granted this round; grant dropped
}
