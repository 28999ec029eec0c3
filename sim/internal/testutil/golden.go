// Package testutil provides shared test infrastructure for the line simulator.
// It holds the golden dataset types and assertion helpers used by the model
// package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is a line model whose results are known in closed form.
type GoldenTestCase struct {
	Name  string `json:"name"`
	Model string `json:"model"` // relative to testdata/
	// Seed overrides general.seed when non-zero.
	Seed    int64         `json:"seed"`
	Metrics GoldenMetrics `json:"metrics"`
}

// GoldenMetrics are the expected per-replication results of a golden case.
type GoldenMetrics struct {
	// Exact match: entities leaving each exit in every replication.
	Exits map[string]int `json:"exits"`
	// Operator working ratio in percent, compared with relative tolerance.
	OperatorWorking map[string]float64 `json:"operator_working"`
	// Operations performed by each operator in the last replication.
	OperatorOperations map[string]int `json:"operator_operations"`
}

// testdataDir resolves the repo root testdata/ relative to this source file.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()
	path := filepath.Join(testdataDir(t), "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}

// ModelPath returns the absolute path of a golden case's model file.
func (tc GoldenTestCase) ModelPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testdataDir(t), tc.Model)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
