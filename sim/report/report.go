// Package report summarizes replications of a line into per-element
// statistics with Student-t confidence intervals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/linesim/linesim/sim/line"
	"github.com/linesim/linesim/sim/trace"
)

// Interval is a sample mean with its confidence bounds.
type Interval struct {
	LB  float64 `json:"lb"`
	Avg float64 `json:"avg"`
	UB  float64 `json:"ub"`
}

// ConfidenceInterval returns the two-sided Student-t interval of the sample
// mean at the given level. With fewer than two samples, or no spread, the
// bounds collapse onto the mean.
func ConfidenceInterval(samples []float64, level float64) Interval {
	n := len(samples)
	if n == 0 {
		return Interval{}
	}
	mean, sd := stat.MeanStdDev(samples, nil)
	if n < 2 || sd == 0 || math.IsNaN(sd) {
		return Interval{LB: mean, Avg: mean, UB: mean}
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile((1 + level) / 2)
	half := t * sd / math.Sqrt(float64(n))
	return Interval{LB: mean - half, Avg: mean, UB: mean + half}
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// OperatorResult holds an operator's utilization across replications.
type OperatorResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Rule    string   `json:"scheduling_rule"`
	Working Interval `json:"working_ratio"`
	Waiting Interval `json:"waiting_ratio"`
}

// MachineResult holds a machine's output and utilization across replications.
type MachineResult struct {
	ID                 string   `json:"id"`
	Processed          Interval `json:"processed"`
	Working            Interval `json:"working_ratio"`
	WaitingForOperator Interval `json:"waiting_for_operator_ratio"`
}

// ExitResult holds throughput and mean lifespan across replications.
type ExitResult struct {
	ID         string   `json:"id"`
	Throughput Interval `json:"throughput"`
	Lifespan   Interval `json:"lifespan"`
}

// Results is the outcome of a multi-replication run.
type Results struct {
	Model           string              `json:"model,omitempty"`
	Replications    int                 `json:"replications"`
	Horizon         float64             `json:"horizon"`
	ConfidenceLevel float64             `json:"confidence_level"`
	Operators       []OperatorResult    `json:"operators"`
	Machines        []MachineResult     `json:"machines"`
	Exits           []ExitResult        `json:"exits"`
	Trace           *trace.TraceSummary `json:"trace,omitempty"`
}

// Build collects the per-replication samples recorded on l.
func Build(l *line.Line, horizon, level float64) *Results {
	r := &Results{
		Replications:    l.Replications(),
		Horizon:         horizon,
		ConfidenceLevel: level,
		Operators:       []OperatorResult{},
		Machines:        []MachineResult{},
		Exits:           []ExitResult{},
	}
	for _, op := range l.Operators() {
		r.Operators = append(r.Operators, OperatorResult{
			ID:      op.ID,
			Name:    op.Name,
			Rule:    op.Policy.Name,
			Working: ConfidenceInterval(op.Working, level),
			Waiting: ConfidenceInterval(op.Waiting, level),
		})
	}
	for _, s := range l.Stations() {
		switch st := s.(type) {
		case *line.Machine:
			r.Machines = append(r.Machines, MachineResult{
				ID:                 st.ID(),
				Processed:          ConfidenceInterval(toFloats(st.NumProcessed), level),
				Working:            ConfidenceInterval(st.Working, level),
				WaitingForOperator: ConfidenceInterval(st.WaitingForOperator, level),
			})
		case *line.Exit:
			r.Exits = append(r.Exits, ExitResult{
				ID:         st.ID(),
				Throughput: ConfidenceInterval(toFloats(st.Exits), level),
				Lifespan:   ConfidenceInterval(st.Lifespans, level),
			})
		}
	}
	if l.Trace.Enabled() {
		r.Trace = trace.Summarize(l.Trace)
	}
	return r
}

// Print writes a human-readable summary.
func (r *Results) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Results ===")
	if r.Model != "" {
		fmt.Fprintf(w, "Model                : %s\n", r.Model)
	}
	fmt.Fprintf(w, "Replications         : %d\n", r.Replications)
	fmt.Fprintf(w, "Horizon              : %.2f\n", r.Horizon)
	fmt.Fprintf(w, "Confidence Level     : %.2f\n", r.ConfidenceLevel)
	for _, op := range r.Operators {
		fmt.Fprintf(w, "Operator %-12s: working %s%%, waiting %s%% (%s)\n",
			op.ID, op.Working, op.Waiting, op.Rule)
	}
	for _, m := range r.Machines {
		fmt.Fprintf(w, "Machine %-13s: processed %s, working %s%%, waiting for operator %s%%\n",
			m.ID, m.Processed, m.Working, m.WaitingForOperator)
	}
	for _, x := range r.Exits {
		fmt.Fprintf(w, "Exit %-16s: throughput %s, lifespan %s\n", x.ID, x.Throughput, x.Lifespan)
	}
	if r.Trace != nil {
		fmt.Fprintf(w, "Router Rounds        : %d (%d empty)\n", r.Trace.TotalRounds, r.Trace.EmptyRounds)
		fmt.Fprintf(w, "Grants               : %d (%d degraded, %d conflicts)\n",
			r.Trace.TotalGrants, r.Trace.DegradedGrants, r.Trace.Conflicts)
	}
}

// String formats the interval as "avg [lb, ub]".
func (i Interval) String() string {
	if i.LB == i.UB {
		return fmt.Sprintf("%.2f", i.Avg)
	}
	return fmt.Sprintf("%.2f [%.2f, %.2f]", i.Avg, i.LB, i.UB)
}

// SaveJSON writes the results as indented JSON.
func (r *Results) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
