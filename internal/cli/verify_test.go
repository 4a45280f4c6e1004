package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/matcher"
)

func TestVerifyCommand_MissingArgs(t *testing.T) {
	_, err := execute(NewVerifyCommand(testRoot(t, "text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestVerifyCommand_NonExistentDir(t *testing.T) {
	_, err := execute(NewVerifyCommand(testRoot(t, "text")), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerifyCommand_EmptyDir(t *testing.T) {
	dir := writeScenarios(t, nil)

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestVerifyCommand_EmptyDirJSON(t *testing.T) {
	dir := writeScenarios(t, nil)

	out, err := execute(NewVerifyCommand(testRoot(t, "json")), dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestVerifyCommand_Passing(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_window.yaml": createWindowYAML})

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_window")
	assert.Contains(t, out, "Verify Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestVerifyCommand_Failing(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"create_window.yaml": createWindowYAML,
		"size_mismatch.yaml": sizeMismatchYAML,
	})

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ create_window")
	assert.Contains(t, out, "✗ size_mismatch")
	assert.Contains(t, out, "  size_mismatch: [0] failure: WM_SIZE (0x0005): param_a expected 3, got 4")
	assert.Contains(t, out, "Verify Summary: 1 passed, 1 failed, 2 total")
}

func TestVerifyCommand_LoadErrorFails(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"bad_flag.yaml": badFlagYAML})

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad_flag")
	assert.Contains(t, out, "load error")
}

func TestVerifyCommand_JSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"create_window.yaml": createWindowYAML,
		"size_mismatch.yaml": sizeMismatchYAML,
	})

	out, err := execute(NewVerifyCommand(testRoot(t, "json")), dir)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Summary.Total)
	assert.Equal(t, 1, resp.Data.Summary.Failed)

	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "create_window", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].RunID)
	assert.Len(t, resp.Data.Scenarios[1].Findings, 1)
}

func TestVerifyCommand_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"create_window.yaml": createWindowYAML,
		"size_mismatch.yaml": sizeMismatchYAML,
	})

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir, "--filter", "create_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "size_mismatch")
}

func TestVerifyCommand_InvalidFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_window.yaml": createWindowYAML})

	_, err := execute(NewVerifyCommand(testRoot(t, "text")), dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerifyCommand_GoldenLifecycle(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_window.yaml": createWindowYAML})
	golden := filepath.Join(dir, "golden", "create_window.golden")

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_window (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t,
		`{"events":[{"flags":["sent"],"id":1,"param_a":0,"param_b":0},{"flags":["sent"],"id":5,"param_a":3,"param_b":0}],`+
			`"findings":[],"passed":true,"scenario_name":"create_window"}`,
		string(data))

	_, err = execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{}`), 0644))
	out, err = execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ create_window")
	assert.Contains(t, out, "golden file mismatch")
}

func TestVerifyCommand_StrictStale(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"stale_marker.yaml": staleMarkerYAML})

	out, err := execute(NewVerifyCommand(testRoot(t, "text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "  stale_marker: [0] stale-marker: 0x0005: soft marker no longer mismatches")
	assert.Contains(t, out, "(0 diagnostics, 1 stale markers)")

	out, err = execute(NewVerifyCommand(testRoot(t, "text")), dir, "--strict-stale")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "stale soft markers")
	assert.Contains(t, out, "Verify Summary: 0 passed, 1 failed, 1 total")
}

func TestTally(t *testing.T) {
	var s matcher.Summary

	tally(&s, ScenarioResult{Pass: true}, &matcher.Report{Passed: true})
	tally(&s, ScenarioResult{Pass: false}, &matcher.Report{Passed: true})
	tally(&s, ScenarioResult{Pass: false}, &matcher.Report{Passed: false})
	tally(&s, ScenarioResult{Pass: false}, nil)

	assert.Equal(t, matcher.Summary{Passed: 1, Failed: 3, Total: 4}, s)
}

func TestVerifyCommand_BadDatabase(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_window.yaml": createWindowYAML})

	_, err := execute(NewVerifyCommand(testRoot(t, "text")), dir, "--db", filepath.Join(t.TempDir(), "missing", "runs.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"b.yaml":   createWindowYAML,
		"a.cue":    "",
		"c.yml":    "",
		"notes.md": "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "b.golden"), nil, 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.yml"),
	}, files)
}
