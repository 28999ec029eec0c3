// Package model loads production-line models from YAML and builds them into
// runnable lines.
package model

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model is the top-level line description.
type Model struct {
	General   General        `yaml:"general"`
	Operators []OperatorSpec `yaml:"operators" validate:"dive"`
	Stations  []StationSpec  `yaml:"stations" validate:"required,min=1,dive"`
}

// General holds run-wide settings. Zero values are replaced by ApplyDefaults.
type General struct {
	Name                 string  `yaml:"name"`
	MaxSimTime           float64 `yaml:"maxSimTime" validate:"gt=0"`
	NumberOfReplications int     `yaml:"numberOfReplications" validate:"gte=0"`
	ConfidenceLevel      float64 `yaml:"confidenceLevel" validate:"gte=0,lt=1"`
	Seed                 int64   `yaml:"seed"`
	// Sorting enables scheduling-rule ordering in the Router. Defaults to true.
	Sorting *bool  `yaml:"sorting"`
	Trace   string `yaml:"trace" validate:"omitempty,oneof=none decisions"`
}

// OperatorSpec describes one operator.
type OperatorSpec struct {
	ID             string `yaml:"id" validate:"required"`
	Name           string `yaml:"name"`
	SchedulingRule string `yaml:"schedulingRule" validate:"omitempty,schedulingrule"`
	Preemptive     bool   `yaml:"preemptive"`
}

// DistributionSpec describes a sampled duration.
type DistributionSpec struct {
	Distribution string  `yaml:"distribution" validate:"required,oneof=Fixed Exp Normal Uniform"`
	Mean         float64 `yaml:"mean" validate:"gte=0"`
	Stdev        float64 `yaml:"stdev" validate:"gte=0"`
	Min          float64 `yaml:"min" validate:"gte=0"`
	Max          float64 `yaml:"max" validate:"gte=0"`
}

// RouteStepSpec is one step of an entity route.
type RouteStepSpec struct {
	Stations       []string `yaml:"stations" validate:"required,min=1"`
	ProcessingTime float64  `yaml:"processingTime" validate:"gte=0"`
}

// EntitySpec describes the entities a source creates.
type EntitySpec struct {
	Priority int             `yaml:"priority"`
	DueDate  float64         `yaml:"dueDate" validate:"gte=0"`
	Critical bool            `yaml:"critical"`
	Manager  string          `yaml:"manager"`
	Route    []RouteStepSpec `yaml:"route" validate:"dive"`
}

// StationSpec describes one station. Which fields apply depends on Class.
type StationSpec struct {
	ID               string            `yaml:"id" validate:"required"`
	Name             string            `yaml:"name"`
	Class            string            `yaml:"class" validate:"required,oneof=Source Queue Machine Exit"`
	Successors       []string          `yaml:"successors"`
	InterarrivalTime *DistributionSpec `yaml:"interarrivalTime"`
	ProcessingTime   *DistributionSpec `yaml:"processingTime"`
	SetupTime        *DistributionSpec `yaml:"setupTime"`
	LoadTime         *DistributionSpec `yaml:"loadTime"`
	OperationType    string            `yaml:"operationType" validate:"omitempty,operationtype"`
	Operators        []string          `yaml:"operators"`
	Entity           *EntitySpec       `yaml:"entity"`
}

// Station classes.
const (
	ClassSource  = "Source"
	ClassQueue   = "Queue"
	ClassMachine = "Machine"
	ClassExit    = "Exit"
)

// Load reads, parses, defaults and validates a YAML line model.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading line model: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML line model. Unknown fields are rejected.
func Parse(data []byte) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing line model: %w", err)
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyDefaults fills unset general settings.
func (m *Model) ApplyDefaults() {
	if m.General.NumberOfReplications == 0 {
		m.General.NumberOfReplications = 1
	}
	if m.General.ConfidenceLevel == 0 {
		m.General.ConfidenceLevel = 0.95
	}
	if m.General.Sorting == nil {
		on := true
		m.General.Sorting = &on
	}
	if m.General.Trace == "" {
		m.General.Trace = "none"
	}
}
