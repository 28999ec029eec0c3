package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linesim/linesim/sim/line"
)

// Validator is a wrapper around go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with the line-model rules registered.
func NewValidator() *Validator {
	v := validator.New()
	rules := map[string]validator.Func{
		"schedulingrule": func(fl validator.FieldLevel) bool {
			return line.IsValidSchedulingRule(fl.Field().String())
		},
		"operationtype": func(fl validator.FieldLevel) bool {
			_, err := line.ParseOperationTypes(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("registering validation %q: %v", tag, err))
		}
	}
	return &Validator{validate: v}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func (v *Validator) formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation: %s (value: '%v')",
				e.Namespace(),
				e.Tag(),
				e.Value(),
			))
		}
		return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return err
}

// Validate checks field constraints, then the line topology.
func (m *Model) Validate() error {
	if err := NewValidator().Validate(m); err != nil {
		return err
	}
	return m.checkTopology()
}

func (m *Model) checkTopology() error {
	operators := make(map[string]bool, len(m.Operators))
	for _, op := range m.Operators {
		if operators[op.ID] {
			return fmt.Errorf("duplicate operator id %q", op.ID)
		}
		operators[op.ID] = true
	}
	classes := make(map[string]string, len(m.Stations))
	pools := make(map[string][]string, len(m.Stations))
	for _, s := range m.Stations {
		if _, dup := classes[s.ID]; dup {
			return fmt.Errorf("duplicate station id %q", s.ID)
		}
		classes[s.ID] = s.Class
		if s.Class == ClassMachine && s.OperationType != "" {
			pools[s.ID] = s.Operators
		}
	}

	for _, s := range m.Stations {
		for _, succ := range s.Successors {
			class, ok := classes[succ]
			if !ok {
				return fmt.Errorf("station %s: unknown successor %q", s.ID, succ)
			}
			if !allowedSuccessor(s.Class, class) {
				return fmt.Errorf("station %s: a %s cannot feed %s %s", s.ID, s.Class, class, succ)
			}
		}
		for _, id := range s.Operators {
			if !operators[id] {
				return fmt.Errorf("station %s: unknown operator %q", s.ID, id)
			}
		}
		if err := checkClassFields(s); err != nil {
			return err
		}
		if s.Entity != nil {
			if s.Entity.Manager != "" && !operators[s.Entity.Manager] {
				return fmt.Errorf("station %s: unknown entity manager %q", s.ID, s.Entity.Manager)
			}
			for _, step := range s.Entity.Route {
				for _, id := range step.Stations {
					if _, ok := classes[id]; !ok {
						return fmt.Errorf("station %s: route names unknown station %q", s.ID, id)
					}
				}
			}
			if err := checkManagerReach(m, s, pools); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkManagerReach requires a source's entity manager to be in the pool of
// every operated machine its entities can reach, either on their route or by
// being pulled downstream.
func checkManagerReach(m *Model, src StationSpec, pools map[string][]string) error {
	manager := src.Entity.Manager
	if manager == "" {
		return nil
	}
	succ := make(map[string][]string, len(m.Stations))
	for _, s := range m.Stations {
		succ[s.ID] = s.Successors
	}
	reach := []string{}
	for _, step := range src.Entity.Route {
		reach = append(reach, step.Stations...)
	}
	seen := map[string]bool{src.ID: true}
	for frontier := succ[src.ID]; len(frontier) > 0; {
		var next []string
		for _, id := range frontier {
			if seen[id] {
				continue
			}
			seen[id] = true
			reach = append(reach, id)
			next = append(next, succ[id]...)
		}
		frontier = next
	}
	for _, id := range reach {
		if pool, operated := pools[id]; operated && !slices.Contains(pool, manager) {
			return fmt.Errorf("station %s: entity manager %q is not in the operators of %s", src.ID, manager, id)
		}
	}
	return nil
}

func checkClassFields(s StationSpec) error {
	switch s.Class {
	case ClassSource:
		if s.InterarrivalTime == nil {
			return fmt.Errorf("source %s: interarrivalTime is required", s.ID)
		}
		if len(s.Successors) == 0 {
			return fmt.Errorf("source %s: needs at least one successor", s.ID)
		}
	case ClassMachine:
		if s.ProcessingTime == nil {
			return fmt.Errorf("machine %s: processingTime is required", s.ID)
		}
		if len(s.Successors) == 0 {
			return fmt.Errorf("machine %s: needs at least one successor", s.ID)
		}
		if s.OperationType != "" && len(s.Operators) == 0 {
			return fmt.Errorf("machine %s: operationType %q needs operators", s.ID, s.OperationType)
		}
	case ClassQueue:
		if len(s.Successors) == 0 {
			return fmt.Errorf("queue %s: needs at least one successor", s.ID)
		}
	case ClassExit:
		if len(s.Successors) > 0 {
			return fmt.Errorf("exit %s: cannot have successors", s.ID)
		}
	}
	if s.Class != ClassSource && s.Entity != nil {
		return fmt.Errorf("station %s: only sources describe entities", s.ID)
	}
	return nil
}

// allowedSuccessor reports whether a station of class from may push or be
// pulled into a station of class to.
func allowedSuccessor(from, to string) bool {
	switch from {
	case ClassSource, ClassMachine:
		return to == ClassQueue || to == ClassExit
	case ClassQueue:
		return to == ClassMachine
	default:
		return false
	}
}
