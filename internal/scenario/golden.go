package scenario

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// TraceSnapshot is the golden-file form of a scenario trace.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// MarshalTrace returns the canonical golden-file bytes for a result.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	return model.MarshalCanonical(TraceSnapshot{ScenarioName: name, Trace: result.Trace})
}
