package model

import (
	"fmt"

	"github.com/linesim/linesim/sim/line"
)

// Build turns a validated model into a line. Predecessors are derived from
// the successor lists in station order.
func Build(m *Model) (*line.Line, error) {
	sorting := m.General.Sorting == nil || *m.General.Sorting
	l := line.New(sorting)

	for _, spec := range m.Operators {
		op, err := line.NewOperator(spec.ID, spec.Name, spec.SchedulingRule)
		if err != nil {
			return nil, err
		}
		if err := l.AddOperator(op); err != nil {
			return nil, err
		}
		l.Arbiter.SetPreemptive(op, spec.Preemptive)
	}

	for _, spec := range m.Stations {
		s, err := buildStation(l, spec)
		if err != nil {
			return nil, err
		}
		if err := l.AddStation(s); err != nil {
			return nil, err
		}
	}

	setTopology(l, m.Stations)
	return l, nil
}

func setTopology(l *line.Line, specs []StationSpec) {
	predecessors := make(map[string][]line.Station)
	for _, spec := range specs {
		from, _ := l.Station(spec.ID)
		for _, id := range spec.Successors {
			predecessors[id] = append(predecessors[id], from)
		}
	}
	for _, spec := range specs {
		s, _ := l.Station(spec.ID)
		var successors []line.Station
		for _, id := range spec.Successors {
			succ, _ := l.Station(id)
			successors = append(successors, succ)
		}
		s.DefineRouting(predecessors[spec.ID], successors)
	}
}

func buildStation(l *line.Line, spec StationSpec) (line.Station, error) {
	switch spec.Class {
	case ClassSource:
		interarrival, err := distribution(spec.InterarrivalTime)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.ID, err)
		}
		tmpl, err := entityTemplate(l, spec.Entity)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.ID, err)
		}
		return line.NewSource(spec.ID, spec.Name, interarrival, tmpl), nil
	case ClassQueue:
		return line.NewQueue(spec.ID, spec.Name), nil
	case ClassExit:
		return line.NewExit(spec.ID, spec.Name), nil
	case ClassMachine:
		return buildMachine(l, spec)
	default:
		return nil, fmt.Errorf("station %s: unknown class %q", spec.ID, spec.Class)
	}
}

func buildMachine(l *line.Line, spec StationSpec) (line.Station, error) {
	processing, err := distribution(spec.ProcessingTime)
	if err != nil {
		return nil, fmt.Errorf("machine %s: %w", spec.ID, err)
	}
	cfg := line.MachineConfig{ProcessingTime: processing}
	if spec.SetupTime != nil {
		d, err := distribution(spec.SetupTime)
		if err != nil {
			return nil, fmt.Errorf("machine %s: setup: %w", spec.ID, err)
		}
		cfg.SetupTime = &d
	}
	if spec.LoadTime != nil {
		d, err := distribution(spec.LoadTime)
		if err != nil {
			return nil, fmt.Errorf("machine %s: load: %w", spec.ID, err)
		}
		cfg.LoadTime = &d
	}
	cfg.OperationTypes, err = line.ParseOperationTypes(spec.OperationType)
	if err != nil {
		return nil, fmt.Errorf("machine %s: %w", spec.ID, err)
	}
	if len(spec.Operators) > 0 {
		ops := make([]*line.Operator, 0, len(spec.Operators))
		for _, id := range spec.Operators {
			op, ok := l.Operator(id)
			if !ok {
				return nil, fmt.Errorf("machine %s: unknown operator %q", spec.ID, id)
			}
			ops = append(ops, op)
		}
		cfg.Pool = line.NewOperatorPool(spec.ID+".pool", ops)
	}
	return line.NewMachine(spec.ID, spec.Name, cfg), nil
}

func distribution(spec *DistributionSpec) (line.Distribution, error) {
	return line.NewDistribution(line.DistributionKind(spec.Distribution), spec.Mean, spec.Stdev, spec.Min, spec.Max)
}

func entityTemplate(l *line.Line, spec *EntitySpec) (line.EntityTemplate, error) {
	if spec == nil {
		return line.EntityTemplate{}, nil
	}
	tmpl := line.EntityTemplate{
		Priority:      spec.Priority,
		DueDateOffset: spec.DueDate,
		IsCritical:    spec.Critical,
	}
	if spec.Manager != "" {
		op, ok := l.Operator(spec.Manager)
		if !ok {
			return tmpl, fmt.Errorf("unknown entity manager %q", spec.Manager)
		}
		tmpl.Manager = op
	}
	for _, step := range spec.Route {
		tmpl.Route = append(tmpl.Route, line.RouteStep{StationIDs: step.Stations, ProcessingTime: step.ProcessingTime})
	}
	return tmpl, nil
}
