package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every arbitration round and grant.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// MaxCandidates caps the ranked candidates kept per grant (0 keeps none).
	MaxCandidates int
}

// SimulationTrace collects decision records across replications.
type SimulationTrace struct {
	Config      TraceConfig
	Rounds      []RoundRecord
	Grants      []GrantRecord
	replication int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Rounds: make([]RoundRecord, 0),
		Grants: make([]GrantRecord, 0),
	}
}

// Enabled reports whether records should be collected.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// StartReplication stamps subsequent records with replication i.
func (st *SimulationTrace) StartReplication(i int) {
	st.replication = i
}

// RecordRound appends a round record.
func (st *SimulationTrace) RecordRound(record RoundRecord) {
	record.Replication = st.replication
	st.Rounds = append(st.Rounds, record)
}

// RecordGrant appends a grant record, trimming its candidates to MaxCandidates.
func (st *SimulationTrace) RecordGrant(record GrantRecord) {
	record.Replication = st.replication
	if len(record.Candidates) > st.Config.MaxCandidates {
		record.Candidates = record.Candidates[:st.Config.MaxCandidates]
	}
	if len(record.Candidates) == 0 {
		record.Candidates = nil
	}
	st.Grants = append(st.Grants, record)
}
