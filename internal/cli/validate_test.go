package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateCommandValid(t *testing.T) {
	out, err := executeValidate(t, "text", "../harness/testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ generator_duality")
	assert.Contains(t, out, "✓ 3 scenario(s) valid")
}

func TestValidateCommandValidJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "../harness/testdata/scenarios")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"generator_duality", "generator_exceptions", "rule_precedence"}, resp.Data.Scenarios)
}

func TestValidateCommandInvalid(t *testing.T) {
	out, err := executeValidate(t, "text", "../harness/testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "4 scenario file(s) invalid")

	assert.Contains(t, out, "bad_check.yaml")
	assert.Contains(t, out, `unknown check "invoked"`)
	assert.Contains(t, out, "does not match schema")
}

func TestValidateCommandInvalidJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "../harness/testdata/invalid")
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string            `json:"code"`
			Details []ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 4)
}

func TestValidateCommandDuplicateNames(t *testing.T) {
	out, err := executeValidate(t, "text", "../harness/testdata/equivalent")
	require.Error(t, err)
	assert.Contains(t, out, `scenario "echo" already defined in`)
}

func TestValidateCommandNonExistentDir(t *testing.T) {
	_, err := executeValidate(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
