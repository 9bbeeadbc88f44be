package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: passing
description: "create a window and see it acknowledged"
steps:
  - op: init
  - op: send
    batch:
      - { id: 1, type: cmd-window-create, content: { size: [64, 64] } }
  - op: receive
  - op: dispose
assertions:
  - type: events
    events: [window-created]
`

const failingScenario = `
name: failing
description: "dispose before init"
steps:
  - op: dispose
`

func writeScenario(t *testing.T, dir, file, body string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func executeRun(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRun_Passing(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)

	out, err := executeRun(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRun_FailingExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a_passing.yaml", passingScenario)
	writeScenario(t, dir, "b_failing.yml", failingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	out, err := executeRun(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "want Success, got NotInitialized")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)

	out, err := executeRun(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "passing", resp.Data.Scenarios[0].Name)
}

func TestRun_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "window_ok.yaml", passingScenario)
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeRun(t, "text", dir, "--filter", "window_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRun_UnloadableScenarioFails(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "typo.yaml", "name: typo\ndescription: d\nstep: []\n")

	out, err := executeRun(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
}

func TestRun_MissingPath(t *testing.T) {
	_, err := executeRun(t, "text", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestRun_EmptyDirectory(t *testing.T) {
	out, err := executeRun(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRun_Golden(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(dir, "golden")
	path := writeScenario(t, dir, "passing.yaml", passingScenario)

	_, err := executeRun(t, "text", path, "--golden", golden, "--update")
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join(golden, "passing.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(want), `"scenario":"passing"`)

	_, err = executeRun(t, "text", path, "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "passing.golden"), []byte("{}\n"), 0o644))
	out, err := executeRun(t, "text", path, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "report differs")
}

func TestRun_UpdateRequiresGolden(t *testing.T) {
	_, err := executeRun(t, "text", t.TempDir(), "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_JournalFlag(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "session.db")
	path := writeScenario(t, dir, "passing.yaml", passingScenario)

	_, err := executeRun(t, "text", path, "--journal", db)
	require.NoError(t, err)

	info, err := os.Stat(db)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
