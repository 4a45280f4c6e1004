package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/store"
)

// archiveRuns verifies two scenarios into a fresh archive and returns its path.
func archiveRuns(t *testing.T) string {
	t.Helper()
	dir := writeScenarios(t, map[string]string{
		"create_window.yaml": createWindowYAML,
		"size_mismatch.yaml": sizeMismatchYAML,
	})
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(NewVerifyCommand(testRoot(t, "text")), dir, "--db", db)
	require.Error(t, err, "size_mismatch fails")
	return db
}

func runIDOf(t *testing.T, db, scenario string) string {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), store.Filter{Scenario: scenario})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0].ID
}

func TestHistoryCommand(t *testing.T) {
	db := archiveRuns(t)

	out, err := execute(NewHistoryCommand(testRoot(t, "text")), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "create_window")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "size_mismatch")
	assert.Contains(t, out, "FAIL")
}

func TestHistoryCommand_Filters(t *testing.T) {
	db := archiveRuns(t)

	out, err := execute(NewHistoryCommand(testRoot(t, "text")), "--db", db, "--failed")
	require.NoError(t, err)
	assert.NotContains(t, out, "create_window")
	assert.Contains(t, out, "size_mismatch")

	out, err = execute(NewHistoryCommand(testRoot(t, "text")), "--db", db, "--scenario", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found.")
}

func TestHistoryCommand_JSON(t *testing.T) {
	db := archiveRuns(t)

	out, err := execute(NewHistoryCommand(testRoot(t, "json")), "--db", db, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "size_mismatch", resp.Data[0].Scenario)
	assert.Equal(t, int64(2), resp.Data[0].Seq)
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	_, err := execute(NewHistoryCommand(testRoot(t, "text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database given")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShowCommand(t *testing.T) {
	db := archiveRuns(t)
	id := runIDOf(t, db, "size_mismatch")

	out, err := execute(NewShowCommand(testRoot(t, "text")), "--db", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+id)
	assert.Contains(t, out, "result:   FAIL")
	assert.Contains(t, out, "Events (1):")
	assert.Contains(t, out, "0x0005 sent a=4 b=0")
	assert.Contains(t, out, "Findings (1):")
	assert.Contains(t, out, "[0] failure: WM_SIZE (0x0005): param_a expected 3, got 4")
}

func TestShowCommand_JSON(t *testing.T) {
	db := archiveRuns(t)
	id := runIDOf(t, db, "create_window")

	out, err := execute(NewShowCommand(testRoot(t, "json")), "--db", db, id)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, id, resp.Data.ID)
	assert.True(t, resp.Data.Passed)
	assert.Len(t, resp.Data.Events, 2)
}

func TestShowCommand_NotFound(t *testing.T) {
	db := archiveRuns(t)

	_, err := execute(NewShowCommand(testRoot(t, "text")), "--db", db, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run missing not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
