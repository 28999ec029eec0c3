package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesim/linesim/sim"
)

func newTestLine(t *testing.T, sorting bool, operators ...string) (*Line, []*Operator) {
	t.Helper()
	l := New(sorting)
	var ops []*Operator
	for _, id := range operators {
		ops = append(ops, mustOperator(t, l, id, "FIFO"))
	}
	return l, ops
}

func TestOperatorPool_FindAvailableOperator_ReservedFirst(t *testing.T) {
	// GIVEN two free operators, the second reserved for station S
	l, ops := newTestLine(t, true, "W1", "W2")
	pool := NewOperatorPool("P", ops)
	s := NewMachine("S", "", MachineConfig{ProcessingTime: FixedTime(1), Pool: pool, OperationTypes: []OperationType{OperationProcessing}})
	other := NewMachine("O", "", MachineConfig{ProcessingTime: FixedTime(1), Pool: pool, OperationTypes: []OperationType{OperationProcessing}})
	require.NoError(t, l.AddStation(s))
	require.NoError(t, l.AddStation(other))
	ops[1].AssignTo(s)

	// THEN S gets its reservation and the other station gets the unreserved unit
	assert.Same(t, ops[1], pool.FindAvailableOperator(s))
	assert.Same(t, ops[0], pool.FindAvailableOperator(other))
	assert.True(t, pool.CheckAvailable())
	assert.Equal(t, 2, pool.Capacity())
}

func TestOperatorPool_FindAvailableOperator_NoneWhenAllReservedElsewhere(t *testing.T) {
	l, ops := newTestLine(t, true, "W")
	pool := NewOperatorPool("P", ops)
	a := NewMachine("A", "", MachineConfig{ProcessingTime: FixedTime(1), Pool: pool, OperationTypes: []OperationType{OperationProcessing}})
	b := NewMachine("B", "", MachineConfig{ProcessingTime: FixedTime(1), Pool: pool, OperationTypes: []OperationType{OperationProcessing}})
	require.NoError(t, l.AddStation(a))
	require.NoError(t, l.AddStation(b))
	ops[0].AssignTo(a)

	assert.Nil(t, pool.FindAvailableOperator(b))
}

func TestOperator_AssignmentHelpers(t *testing.T) {
	op, err := NewOperator("W", "Worker", "EDD")
	require.NoError(t, err)
	m := NewMachine("M", "", MachineConfig{ProcessingTime: FixedTime(1)})

	assert.Nil(t, op.IsAssignedTo())
	op.AssignTo(m)
	assert.Same(t, m, op.IsAssignedTo())
	op.UnAssign()
	assert.Nil(t, op.IsAssignedTo())
	assert.Panics(t, func() { op.AssignTo(nil) })

	op.candidateEntities = []*Entity{{ID: "e"}}
	assert.True(t, op.HasOneOption())
	op.candidateStations = []StationCandidate{{Station: m}}
	assert.False(t, op.HasOneOption())
}

func TestOperator_FindAvailableEntity_TerminatesAndMarksBlocked(t *testing.T) {
	// GIVEN N candidate entities whose receivers are all occupied except the last
	l, ops := newTestLine(t, true, "W")
	op := ops[0]
	st := l.Arbiter
	const n = 6
	var receivers []Station
	for i := 0; i < n; i++ {
		q := NewQueue(string(rune('A'+i)), "")
		require.NoError(t, l.AddStation(q))
		receivers = append(receivers, q)
	}
	for i := 0; i < n; i++ {
		op.candidateEntities = append(op.candidateEntities, &Entity{ID: string(rune('a' + i)), CandidateReceivers: []Station{receivers[i]}})
		if i < n-1 {
			st.OccupiedReceivers[receivers[i].Index()] = true
		}
	}

	// WHEN searching
	e := op.findAvailableEntity(st)

	// THEN the only entity with a free receiver is found and the rest are marked
	require.NotNil(t, e)
	assert.Equal(t, "f", e.ID)
	assert.Len(t, st.EntitiesWithOccupiedReceivers, n-1)

	// WHEN the last receiver is occupied too
	st.OccupiedReceivers[receivers[n-1].Index()] = true
	e, degraded := op.findCandidateEntity(st)

	// THEN the search ends with nothing
	assert.Nil(t, e)
	assert.False(t, degraded)
	assert.Len(t, st.EntitiesWithOccupiedReceivers, n)
}

func TestOperator_FindCandidateEntity_DegradedPicksFirst(t *testing.T) {
	l, ops := newTestLine(t, false, "W")
	op := ops[0]
	q := NewQueue("Q", "")
	require.NoError(t, l.AddStation(q))
	e := &Entity{ID: "e", CandidateReceivers: []Station{q}}
	op.candidateEntities = []*Entity{e}
	l.Arbiter.OccupiedReceivers[q.Index()] = true

	got, degraded := op.findCandidateEntity(l.Arbiter)

	assert.Same(t, e, got)
	assert.True(t, degraded)
	assert.True(t, l.Arbiter.ConflictingEntities[e])
}

func TestOperator_FindCandidateStation_SkipsClaimed(t *testing.T) {
	l, ops := newTestLine(t, true, "W")
	op := ops[0]
	a := NewMachine("A", "", MachineConfig{ProcessingTime: FixedTime(1)})
	b := NewMachine("B", "", MachineConfig{ProcessingTime: FixedTime(1)})
	require.NoError(t, l.AddStation(a))
	require.NoError(t, l.AddStation(b))
	op.candidateStations = []StationCandidate{{Station: a}, {Station: b}}
	l.Arbiter.claimedStations[a.Index()] = true

	got, degraded := op.findCandidateStation(l.Arbiter)
	assert.Same(t, b, got)
	assert.False(t, degraded)

	l.Arbiter.ConflictingStations[b.Index()] = true
	got, _ = op.findCandidateStation(l.Arbiter)
	assert.Nil(t, got)
}

func TestOperator_PostProcessing_RatiosCountOpenOperation(t *testing.T) {
	l, ops := newTestLine(t, true, "W")
	op := ops[0]
	l.Initialize(sim.NewSimulationKey(1))

	op.startWork("M1", 2)
	op.finishWork(5)
	op.startWork("M2", 8)
	op.PostProcessing(10)

	assert.InDelta(t, 50.0, op.WorkingRatio(), 1e-9)
	assert.InDelta(t, 50.0, op.WaitingRatio(), 1e-9)
	assert.Equal(t, 2, op.Operations())
	assert.Equal(t, []WorkInterval{
		{Station: "M1", Start: 2, End: 5},
		{Station: "M2", Start: 8, End: -1},
	}, op.Schedule)
}

func TestLine_DuplicateIDs_Error(t *testing.T) {
	l, _ := newTestLine(t, true, "W")
	dup, err := NewOperator("W", "", "")
	require.NoError(t, err)
	assert.Error(t, l.AddOperator(dup))

	require.NoError(t, l.AddStation(NewQueue("Q", "")))
	assert.Error(t, l.AddStation(NewExit("Q", "")))
}
