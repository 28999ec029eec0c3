package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesim/linesim/sim"
)

// buildSerialLine wires Source -> Q -> M (operated by W) -> Exit.
func buildSerialLine(t *testing.T, interarrival, processing Distribution) (*Line, *Machine, *Exit, *Operator) {
	t.Helper()
	l := New(true)
	w := mustOperator(t, l, "W", "FIFO")
	src := NewSource("S", "Source", interarrival, EntityTemplate{})
	q := NewQueue("Q", "Queue")
	m := NewMachine("M", "Machine", MachineConfig{
		ProcessingTime: processing,
		OperationTypes: []OperationType{OperationProcessing},
		Pool:           NewOperatorPool("M.pool", []*Operator{w}),
	})
	x := NewExit("E", "Exit")
	for _, s := range []Station{src, q, m, x} {
		require.NoError(t, l.AddStation(s))
	}
	src.DefineRouting(nil, []Station{q})
	q.DefineRouting([]Station{src}, []Station{m})
	m.DefineRouting([]Station{q}, []Station{x})
	x.DefineRouting([]Station{m}, nil)
	return l, m, x, w
}

func TestLine_SerialFixedTimes_ThroughputAndUtilization(t *testing.T) {
	// GIVEN one arrival per time unit and half a unit of operated processing
	l, m, x, w := buildSerialLine(t, FixedTime(1), FixedTime(0.5))

	// WHEN one replication of 10 units runs
	l.RunReplications(1, 10, 0)

	// THEN entities 0..9 leave and the operator works half the time
	assert.Equal(t, []int{10}, x.Exits)
	assert.InDelta(t, 0.5, x.Lifespans[0], 1e-9)
	assert.Equal(t, []int{10}, m.NumProcessed)
	assert.InDelta(t, 50.0, w.WorkingRatio(), 1e-9)
	assert.InDelta(t, 50.0, w.WaitingRatio(), 1e-9)
	assert.InDelta(t, 5.0, w.Resource().BusyTime(), 1e-9)
	assert.Equal(t, 11, w.Operations())
	require.Len(t, w.Schedule, 11)
	assert.Equal(t, WorkInterval{Station: "M", Start: 0, End: 0.5}, w.Schedule[0])
	assert.Equal(t, WorkInterval{Station: "M", Start: 10, End: -1}, w.Schedule[10])
	assert.Equal(t, 1, l.Replications())
}

func TestLine_Replications_IndependentSamples(t *testing.T) {
	l, m, x, w := buildSerialLine(t, Distribution{Kind: Exp, Mean: 1}, Distribution{Kind: Exp, Mean: 0.5})

	l.RunReplications(3, 50, 42)

	assert.Len(t, x.Exits, 3)
	assert.Len(t, m.Working, 3)
	assert.Len(t, w.Working, 3)
	assert.Len(t, w.Waiting, 3)
	for i := range w.Working {
		assert.InDelta(t, 100.0, w.Working[i]+w.Waiting[i], 1e-9)
	}
	assert.NotEqual(t, x.Exits[0], 0)
}

func TestLine_SameSeed_IdenticalResults(t *testing.T) {
	run := func() ([]int, []float64) {
		l, _, x, w := buildSerialLine(t, Distribution{Kind: Exp, Mean: 1}, Distribution{Kind: Exp, Mean: 0.8})
		l.RunReplications(2, 100, 7)
		return x.Exits, w.Working
	}
	exits1, working1 := run()
	exits2, working2 := run()

	assert.Equal(t, exits1, exits2)
	assert.Equal(t, working1, working2)
}

func TestLine_SharedOperator_TwoMachinesNeverOverlap(t *testing.T) {
	// GIVEN two parallel machines fed in pairs by two sources, sharing one
	// operator for their setups
	l := New(true)
	w := mustOperator(t, l, "W", "MC-EDD-SPT")
	pool := NewOperatorPool("pool", []*Operator{w})
	src := NewSource("S", "", FixedTime(1), EntityTemplate{DueDateOffset: 5})
	src2 := NewSource("S2", "", FixedTime(1), EntityTemplate{DueDateOffset: 3})
	q := NewQueue("Q", "")
	setup := FixedTime(0.25)
	m1 := NewMachine("M1", "", MachineConfig{ProcessingTime: FixedTime(1.5), SetupTime: &setup,
		OperationTypes: []OperationType{OperationSetup}, Pool: pool})
	m2 := NewMachine("M2", "", MachineConfig{ProcessingTime: FixedTime(1.5), SetupTime: &setup,
		OperationTypes: []OperationType{OperationSetup}, Pool: pool})
	x := NewExit("E", "")
	for _, s := range []Station{src, src2, q, m1, m2, x} {
		require.NoError(t, l.AddStation(s))
	}
	src.DefineRouting(nil, []Station{q})
	src2.DefineRouting(nil, []Station{q})
	q.DefineRouting([]Station{src, src2}, []Station{m1, m2})
	m1.DefineRouting([]Station{q}, []Station{x})
	m2.DefineRouting([]Station{q}, []Station{x})
	x.DefineRouting([]Station{m1, m2}, nil)

	holders, maxHolders := 0, 0
	w.Resource().AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos == sim.HookPosAcquire {
			holders++
		} else if ctx.Pos == sim.HookPosRelease {
			holders--
		}
		if holders > maxHolders {
			maxHolders = holders
		}
	}))

	// WHEN the line runs
	l.RunReplications(1, 40, 1)

	// THEN the operator only serves setups, one at a time, and both machines work
	assert.Equal(t, 1, maxHolders)
	assert.Positive(t, m1.NumProcessed[0])
	assert.Positive(t, m2.NumProcessed[0])
	busy := w.Resource().BusyTime()
	assert.LessOrEqual(t, busy, 0.25*float64(w.Operations())+1e-9)
	assert.GreaterOrEqual(t, busy, 0.25*float64(w.Operations()-1)-1e-9)
	assert.Positive(t, m1.WaitingForOperator[0]+m2.WaitingForOperator[0])
	assert.Len(t, l.Brokers(), 2)
}

func TestLine_UnattendedMachine_HasNoBroker(t *testing.T) {
	m := NewMachine("M", "", MachineConfig{ProcessingTime: FixedTime(1)})
	assert.Nil(t, m.Broker())

	op, err := NewOperator("W", "", "")
	require.NoError(t, err)
	noTypes := NewMachine("N", "", MachineConfig{ProcessingTime: FixedTime(1), Pool: NewOperatorPool("p", []*Operator{op})})
	assert.Nil(t, noTypes.Broker())
}

func TestParseOperationTypes(t *testing.T) {
	types, err := ParseOperationTypes("MT-Load-Setup")
	require.NoError(t, err)
	assert.Equal(t, []OperationType{OperationLoad, OperationSetup}, types)

	types, err = ParseOperationTypes("Processing")
	require.NoError(t, err)
	assert.Equal(t, []OperationType{OperationProcessing}, types)

	_, err = ParseOperationTypes("MT-Load-Repair")
	assert.Error(t, err)
}
