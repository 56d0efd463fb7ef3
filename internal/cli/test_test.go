package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: simple_release
description: a harness moves through review to released
steps:
  - invoke: create
    as: loom
    args:
      name: Loom
  - invoke: submit
    args:
      harness: loom
  - invoke: release
    args:
      harness: loom
assertions:
  - type: final_state
    harness: loom
    expect:
      releaseState: released
`

const failingScenario = `
name: wrong_state
description: asserts a state the harness never reaches
steps:
  - invoke: create
    as: loom
    args:
      name: Loom
assertions:
  - type: final_state
    harness: loom
    expect:
      releaseState: released
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, tempDB(t), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, tempDB(t), "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, tempDB(t), "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandPackagedScenarios(t *testing.T) {
	out, err := execute(t, tempDB(t), "test", filepath.Join("..", "scenario", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ cascade_diamond")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)
	writeScenario(t, dir, "fail.yaml", failingScenario)

	out, err := execute(t, tempDB(t), "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "simple.yaml", passingScenario)

	out, err := execute(t, tempDB(t), "test", "--update", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "simple.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"simple_release"`)

	out, err = execute(t, tempDB(t), "test", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "simple.golden"), []byte("{}"), 0644))
	out, err = execute(t, tempDB(t), "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "Golden file mismatch")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)
	writeScenario(t, dir, "fail.yaml", failingScenario)

	out, err := execute(t, tempDB(t), "test", "--filter", "pass", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(tmpDir, "test*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
