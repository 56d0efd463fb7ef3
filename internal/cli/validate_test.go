package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidDocument(t *testing.T) {
	out, err := execute(t, tempDB(t), "validate", writeDoc(t, "Loom"))
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestValidateInvalidDocumentJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"","connectors":[],"cables":[],"connections":[{"from":{"connectorId":"J1"}}]}`), 0644))

	out, err := execute(t, tempDB(t), "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Code string `json:"code"`
			} `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)

	codes := make([]string, len(resp.Data.Errors))
	for i, e := range resp.Data.Errors {
		codes[i] = e.Code
	}
	assert.Contains(t, codes, "V101")
	assert.Contains(t, codes, "V107")
}

func TestValidateMissingSubHarness(t *testing.T) {
	out, err := execute(t, tempDB(t), "validate", writeDoc(t, "Top", "ghost"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[V105]")
}

func TestValidateCueDocument(t *testing.T) {
	out, err := execute(t, tempDB(t), "validate", filepath.Join("..", "docload", "testdata", "loom.cue"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "is valid")
}

func TestValidateUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = 'x'"), 0644))

	out, err := execute(t, tempDB(t), "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}
