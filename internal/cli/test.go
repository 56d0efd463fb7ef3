package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/letwinventory/harnessgraph/internal/scenario"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run command scenarios",
		Long: `Run YAML command scenarios, each against a fresh in-memory store.

Each scenario's trace is compared with golden/<file>.golden next to the
scenario file when that file exists, and its assertions are evaluated.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  harnessctl test ./scenarios
  harnessctl test ./scenarios --filter "cascade_*"
  harnessctl test ./scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, file := range scenarioFiles {
		sr := runScenario(opts, file, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	fail := func(name string, errs ...string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	s, err := scenario.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
	}
	opts.Logger.Debug("running scenario", "name", s.Name, "file", file)

	result, err := scenario.Run(cmd.Context(), s)
	if err != nil {
		return fail(s.Name, fmt.Sprintf("execution failed: %v", err))
	}

	data, err := scenario.MarshalTrace(s.Name, result)
	if err != nil {
		return fail(s.Name, fmt.Sprintf("failed to marshal trace: %v", err))
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGoldenFile(goldenPath, data); err != nil {
			return fail(s.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		if opts.Format != "json" {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
		}
		return ScenarioResult{Name: s.Name, Pass: result.Pass, Errors: result.Errors}
	}

	if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, data) {
			return fail(s.Name, "Golden file mismatch (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		return fail(s.Name, fmt.Sprintf("failed to read golden file: %v", err))
	}

	if !result.Pass {
		return fail(s.Name, result.Errors...)
	}
	if opts.Format != "json" {
		fmt.Fprintf(w, "✓ %s\n", s.Name)
	}
	return ScenarioResult{Name: s.Name, Pass: true}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed), Reported: true}
	}
	return nil
}

// outputTestText outputs the test summary as human-readable text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed), Reported: true}
	}
	return nil
}
