package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
steps:
  - invoke: create
    as: board
    args:
      name: Board
assertions:
  - type: trace_contains
    command: create
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", s.Name)
	assert.Len(t, s.Steps, 1)
	assert.Len(t, s.Assertions, 1)
	assert.Equal(t, "create", s.Steps[0].Invoke)
	assert.Equal(t, "board", s.Steps[0].As)
	assert.Equal(t, "Board", s.Steps[0].Args["name"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: x\nsteps:\n  - invoke: audit\n",
			wantErr: "name is required",
		},
		{
			name:    "missing steps",
			content: "name: x\ndescription: x\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown command",
			content: "name: x\ndescription: x\nsteps:\n  - invoke: explode\n",
			wantErr: `unknown command "explode"`,
		},
		{
			name:    "duplicate alias",
			content: "name: x\ndescription: x\nsteps:\n  - invoke: create\n    as: a\n  - invoke: create\n    as: a\n",
			wantErr: `alias "a" already bound`,
		},
		{
			name:    "unknown field",
			content: "name: x\ndescription: x\nflow: []\nsteps:\n  - invoke: audit\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "final_state without expect",
			content: "name: x\ndescription: x\nsteps:\n  - invoke: audit\nassertions:\n  - type: final_state\n    harness: a\n",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: x\nsteps:\n  - invoke: audit\nassertions:\n  - type: vibes\n",
			wantErr: `unknown assertion type "vibes"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenarioFiles_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: mismatch
description: expects a failure that does not happen
steps:
  - invoke: create
    as: a
    args:
      name: A
    expect:
      outcome: VALIDATION_FAILED
`))
	require.NoError(t, err)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected outcome VALIDATION_FAILED, got ok")
}

func TestRun_UnknownAliasIsLiteralID(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: missing
description: submitting an unknown harness reports NOT_FOUND
steps:
  - invoke: submit
    args:
      harness: nobody
    expect:
      outcome: NOT_FOUND
`))
	require.NoError(t, err)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "NOT_FOUND", result.Trace[0].Outcome)
}

func TestRun_ValidationCodesRecorded(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: invalid
description: a nameless document fails validation
steps:
  - invoke: create
    args:
      name: A
      document:
        name: ""
        connectors: []
        cables: []
        connections: []
    expect:
      outcome: VALIDATION_FAILED
`))
	require.NoError(t, err)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[0].ValidationCodes, "V101")
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
description: every assertion is wrong
steps:
  - invoke: create
    as: a
    args:
      name: A
assertions:
  - type: trace_count
    command: create
    count: 2
  - type: trace_order
    commands: [submit, create]
  - type: final_state
    harness: a
    expect:
      releaseState: released
  - type: history
    harness: a
    changes: [released]
  - type: parents
    harness: a
    parents: [b]
`))
	require.NoError(t, err)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 5)
}

func TestAssertTraceOrder_InterveningStepsAllowed(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Command: "create", Outcome: OutcomeOK},
		{Seq: 2, Command: "update", Outcome: OutcomeOK},
		{Seq: 3, Command: "submit", Outcome: OutcomeOK},
	}
	assert.NoError(t, assertTraceOrder(trace, Assertion{Commands: []string{"create", "submit"}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Commands: []string{"submit", "create"}}))
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 create steps",
		Actual:   "1",
		Trace:    []TraceEvent{{Seq: 1, Command: "create", Harness: "a", Outcome: OutcomeOK}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 create steps")
	assert.Contains(t, msg, "[1] create a -> ok")
}
