package line

import (
	"fmt"
	"strings"

	"github.com/linesim/linesim/sim"
)

// StationIndex identifies a station within its Line.
type StationIndex int

// Station is a node of the line graph driven by its own process.
type Station interface {
	ID() string
	Index() StationIndex
	// DefineRouting wires the station to its neighbours. Called once at build time.
	DefineRouting(predecessors, successors []Station)
	// Initialize resets per-replication state and spawns the station's processes.
	Initialize(l *Line)
	// PostProcessing records per-replication statistics at the horizon.
	PostProcessing(horizon float64)
	// Queue returns the entities currently held, head first.
	Queue() []*Entity

	setIndex(i StationIndex)
}

// Receiver is a station that accepts entities pushed to it.
type Receiver interface {
	Station
	Receive(e *Entity, now float64)
}

// Giver is a station that entities are pulled from.
type Giver interface {
	Station
	HasEntity() bool
	Take(now float64) *Entity
}

// Operated is a station that may need an operator and talks to a Broker.
type Operated interface {
	Station
	// IsOperated reports whether the station currently needs an operator.
	IsOperated() bool
	OperationTypes() []OperationType
	OperatorPool() *OperatorPool
	CurrentOperator() *Operator
	SetCurrentOperator(op *Operator)
	// CurrentEntity is the entity the station would work on next.
	CurrentEntity() *Entity
	TimeLastEntityLeft() float64
	Broker() *Broker
	// BrokerIsSet is the event the station waits on after calling its broker.
	BrokerIsSet() *sim.Event
}

// OperationType is a phase of work that may require an operator.
type OperationType string

const (
	OperationLoad       OperationType = "Load"
	OperationSetup      OperationType = "Setup"
	OperationProcessing OperationType = "Processing"
)

var validOperationTypes = map[OperationType]bool{
	OperationLoad:       true,
	OperationSetup:      true,
	OperationProcessing: true,
}

// ParseOperationTypes parses "Processing" or a multi-type list such as
// "MT-Load-Setup". Empty means no operator is needed.
func ParseOperationTypes(s string) ([]OperationType, error) {
	if s == "" {
		return nil, nil
	}
	tokens := []string{s}
	if strings.HasPrefix(s, "MT-") {
		tokens = strings.Split(strings.TrimPrefix(s, "MT-"), "-")
	}
	types := make([]OperationType, 0, len(tokens))
	for _, tok := range tokens {
		t := OperationType(tok)
		if !validOperationTypes[t] {
			return nil, fmt.Errorf("unknown operation type %q in %q", tok, s)
		}
		types = append(types, t)
	}
	return types, nil
}

// requiresOperator reports whether any of types is Load, Setup or Processing.
func requiresOperator(types []OperationType) bool {
	for _, t := range types {
		if validOperationTypes[t] {
			return true
		}
	}
	return false
}

func hasOperationType(types []OperationType, want OperationType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// stationBase carries identity, routing and the entity buffer shared by all stations.
type stationBase struct {
	id           string
	name         string
	index        StationIndex
	predecessors []Station
	successors   []Station
	queue        []*Entity
	line         *Line
}

func (s *stationBase) ID() string              { return s.id }
func (s *stationBase) Name() string            { return s.name }
func (s *stationBase) Index() StationIndex     { return s.index }
func (s *stationBase) setIndex(i StationIndex) { s.index = i }
func (s *stationBase) Queue() []*Entity        { return s.queue }
func (s *stationBase) Predecessors() []Station { return s.predecessors }
func (s *stationBase) Successors() []Station   { return s.successors }

func (s *stationBase) DefineRouting(predecessors, successors []Station) {
	s.predecessors = predecessors
	s.successors = successors
}

func (s *stationBase) reset(l *Line) {
	s.line = l
	s.queue = nil
}
