package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "cannot read file", map[string]string{"file": "x.yaml"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "cannot read file", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E001", "cannot read file", map[string]string{"file": "x"}))
	assert.Contains(t, buf.String(), "Error [E001]: cannot read file")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E001", "cannot read file", map[string]string{"file": "x"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	h := &model.Harness{ID: "h1", Name: "Loom", Revision: "02", ReleaseState: model.StateDraft}
	require.NoError(t, formatter.Success(harnessView(h)))
	assert.Equal(t, "h1  Loom  rev 02  draft  (inactive)\n", buf.String())
}

func TestOutputFormatter_ViewMarshalsData(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	v := view{data: map[string]int{"count": 2}, text: func(io.Writer) {}}
	require.NoError(t, formatter.Success(v))
	assert.JSONEq(t, `{"status":"ok","data":{"count":2}}`, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("Loaded %s", "loom.yaml")
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("Loaded %s", "loom.yaml")
	assert.Contains(t, errOut.String(), "Loaded loom.yaml")
	assert.Empty(t, out.String())
}

func TestCommandError_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", engine.NewNotFoundError("harness", "h1"), ExitFailure, "NOT_FOUND"},
		{"illegal transition", engine.NewIllegalTransitionError("h1", "release", model.StateDraft, model.StateReview), ExitFailure, "ILLEGAL_TRANSITION"},
		{"internal", &engine.Error{Code: engine.ErrCodeInternal, Message: "disk"}, ExitCommandError, "INTERNAL"},
		{"plain error", errors.New("boom"), ExitCommandError, ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.CommandError("op", tt.err)
			assert.Equal(t, tt.want, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCommandError_ValidationDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf}

	err := formatter.CommandError("create", engine.NewValidationError("h1", []validate.ValidationError{
		{Field: "name", Message: "name is required", Code: validate.ErrNameRequired},
	}))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [VALIDATION_FAILED]")
	assert.Contains(t, errBuf.String(), "[V101] name: name is required")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
