package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRounds         int
	EmptyRounds         int // rounds that granted nothing
	TotalGrants         int
	DegradedGrants      int
	Conflicts           int
	MeanGrantsPerRound  float64
	StationDistribution map[string]int // station ID → grants received
	OperatorWorkload    map[string]int // operator ID → grants made
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		StationDistribution: make(map[string]int),
		OperatorWorkload:    make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRounds = len(st.Rounds)
	for _, r := range st.Rounds {
		if r.Grants == 0 {
			summary.EmptyRounds++
		}
	}

	for _, g := range st.Grants {
		if g.Conflict {
			summary.Conflicts++
			continue
		}
		summary.TotalGrants++
		if g.Degraded {
			summary.DegradedGrants++
		}
		summary.StationDistribution[g.Station]++
		summary.OperatorWorkload[g.Operator]++
	}

	if summary.TotalRounds > 0 {
		summary.MeanGrantsPerRound = float64(summary.TotalGrants) / float64(summary.TotalRounds)
	}
	return summary
}
