package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracks/internal/revert"
	"github.com/roach88/tracks/internal/testutil"
)

const darkModePlan = "# Plan: Add dark mode\n" +
	"\n" +
	"## Setup\n" +
	"- [ ] Create theme tokens\n" +
	"- [ ] Wire toggle\n" +
	"\n" +
	"## Testing\n" +
	"- [ ] Snapshot tests\n"

// cliEnv runs commands against one scratch root with a fixed clock and ids.
type cliEnv struct {
	root  string
	opts  *RootOptions
	stdin io.Reader
}

func newCLIEnv(t *testing.T, ids ...string) *cliEnv {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"t1", "t2", "t3"}
	}
	clock := testutil.NewClock(testutil.Epoch, time.Minute)
	return &cliEnv{
		root: t.TempDir(),
		opts: &RootOptions{
			Clock: clock.Now,
			IDs:   testutil.NewSequenceGenerator(ids...),
		},
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWithOptions(e.opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if e.stdin != nil {
		cmd.SetIn(e.stdin)
		e.stdin = nil
	}
	cmd.SetArgs(append([]string{"--root", e.root}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

// runJSON runs with --format json and decodes the response envelope.
func (e *cliEnv) runJSON(t *testing.T, args ...string) (CLIResponse, error) {
	t.Helper()
	out, runErr := e.run(t, append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, runErr
}

func (e *cliEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *cliEnv) createDarkMode(t *testing.T) {
	t.Helper()
	planFile := e.writeFile(t, "plan.md", darkModePlan)
	e.mustRun(t, "new", "--plan-file", planFile, "Add", "dark", "mode")
}

func dataMap(t *testing.T, resp CLIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestNew_CreatesUnit(t *testing.T) {
	env := newCLIEnv(t)
	planFile := env.writeFile(t, "plan.md", darkModePlan)

	out := env.mustRun(t, "new", "--plan-file", planFile, "--attr", "issue=142", "Add", "dark", "mode")
	assert.Contains(t, out, "Created t1 (feature): Add dark mode")
	assert.Contains(t, out, filepath.Join(env.root, "units", "t1", "plan.md"))

	resp, err := env.runJSON(t, "show", "t1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	data := dataMap(t, resp)
	unit := data["unit"].(map[string]interface{})
	assert.Equal(t, "planning", unit["status"])
	assert.Equal(t, "Add dark mode", unit["title"])
	assert.Equal(t, map[string]interface{}{"issue": "142"}, unit["attributes"])
	assert.Contains(t, data["plan_document"], "- [ ] Create theme tokens")
	assert.Equal(t, float64(3), data["progress"].(map[string]interface{})["total_tasks"])
}

func TestNew_ReadsPlanFromStdin(t *testing.T) {
	env := newCLIEnv(t)
	env.stdin = strings.NewReader(darkModePlan)
	env.mustRun(t, "new", "--plan-file", "-", "--category", "bugfix", "Fix", "login")

	out := env.mustRun(t, "plan", "t1")
	assert.Contains(t, out, "## Setup")
	assert.Contains(t, out, "- [ ] Snapshot tests")
}

func TestNew_Errors(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new", "--id", "taken", "First")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"id taken", []string{"new", "--id", "taken", "Second"}, ErrCodeAlreadyExists},
		{"bad attribute", []string{"new", "--attr", "novalue", "Third"}, ErrCodeInvalid},
		{"bad category", []string{"new", "--category", "Not Valid", "Fourth"}, ErrCodeInvalid},
		{"both stdin", []string{"new", "--spec-file", "-", "--plan-file", "-", "Fifth"}, ErrCodeUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.runJSON(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.True(t, IsReported(err))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestNew_MalformedPlanReportsLine(t *testing.T) {
	env := newCLIEnv(t)
	planFile := env.writeFile(t, "plan.md", "# Plan\n- [ ] orphan task\n")

	resp, err := env.runJSON(t, "new", "--plan-file", planFile, "Broken")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMalformedPlan, resp.Error.Code)
	details := resp.Error.Details.(map[string]interface{})
	assert.Equal(t, "MALFORMED_PLAN", details["kind"])
	assert.Equal(t, float64(2), details["line"])
}

func TestDone_AutoTransitions(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)

	out := env.mustRun(t, "done", "t1", "1.1")
	assert.Contains(t, out, "Checked 1.1 in t1: 1/3 tasks (33%), In Progress")

	env.mustRun(t, "done", "t1", "1.2")
	out = env.mustRun(t, "done", "t1", "2.1")
	assert.Contains(t, out, "3/3 tasks (100%), Completed")

	resp, err := env.runJSON(t, "undo", "t1", "2.1")
	require.NoError(t, err)
	data := dataMap(t, resp)
	assert.Equal(t, "2.1", data["path"])
	assert.Equal(t, false, data["done"])
	assert.Equal(t, "in_progress", data["status"])
}

func TestDone_Errors(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"path out of range", []string{"done", "t1", "9.1"}, ErrCodeIndexOutOfRange},
		{"unknown unit", []string{"done", "nope", "1.1"}, ErrCodeNotFound},
		{"bad path", []string{"done", "t1", "first"}, ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestPlan_ReplaceRejectsMalformed(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)
	before := env.mustRun(t, "plan", "t1")

	bad := env.writeFile(t, "bad.md", "- [ ] outside any phase\n")
	out, err := env.run(t, "plan", "t1", "--file", bad)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeMalformedPlan+"]")
	assert.Equal(t, before, env.mustRun(t, "plan", "t1"))

	good := env.writeFile(t, "good.md", "## Only\n- [x] Done already\n")
	out = env.mustRun(t, "plan", "t1", "--file", good)
	assert.Contains(t, out, "- [x] Done already")
}

func TestSetStatus(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)

	out := env.mustRun(t, "set-status", "t1", "blocked")
	assert.Contains(t, out, "t1 is now Blocked")

	out, err := env.run(t, "set-status", "t1", "paused")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeInvalid+"]")
}

func TestDelete(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)

	out := env.mustRun(t, "delete", "t1")
	assert.Contains(t, out, "Deleted t1")

	resp, err := env.runJSON(t, "show", "t1")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	// Deleting again is not an error.
	env.mustRun(t, "delete", "t1")
	assert.Contains(t, env.mustRun(t, "check"), "Registry consistent")
}

type fakeGit struct {
	commits []revert.Commit
}

func (g fakeGit) Log(context.Context, time.Time) ([]revert.Commit, error) {
	return g.commits, nil
}

func TestRevert(t *testing.T) {
	env := newCLIEnv(t)
	env.opts.Git = fakeGit{commits: []revert.Commit{
		{Hash: "abcdef1234567", AuthoredAt: testutil.Epoch.Add(time.Hour), Subject: "t1: add theme tokens"},
		{Hash: "0123456789abc", AuthoredAt: testutil.Epoch.Add(time.Hour), Subject: "unrelated cleanup"},
	}}
	env.createDarkMode(t)
	env.mustRun(t, "done", "t1", "1.1")

	out := env.mustRun(t, "revert", "t1", "--dry-run")
	assert.Contains(t, out, "abcdef1  t1: add theme tokens")
	assert.NotContains(t, out, "unrelated cleanup")
	assert.NotContains(t, out, "Reverted")

	out = env.mustRun(t, "revert", "t1")
	assert.Contains(t, out, "Reverted t1; plan reset")

	resp, err := env.runJSON(t, "show", "t1")
	require.NoError(t, err)
	data := dataMap(t, resp)
	assert.Equal(t, "reverted", data["unit"].(map[string]interface{})["status"])
	assert.Equal(t, float64(0), data["progress"].(map[string]interface{})["completed_tasks"])
}

func TestStatus(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "--no-color", "status")
	assert.Contains(t, out, "No work units.")

	env.createDarkMode(t)
	out = env.mustRun(t, "--no-color", "status")
	assert.Contains(t, out, "Units: 1")
	assert.Contains(t, out, "t1")
	assert.Contains(t, out, "Add dark mode")

	resp, err := env.runJSON(t, "status")
	require.NoError(t, err)
	data := dataMap(t, resp)
	assert.Equal(t, float64(1), data["total"])
}

func TestShow_Text(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)
	env.mustRun(t, "done", "t1", "1.1")

	out := env.mustRun(t, "--no-color", "show", "t1", "--plan")
	assert.Contains(t, out, "t1  Add dark mode")
	assert.Contains(t, out, "progress:  1/3 tasks (33%)")
	assert.Contains(t, out, "phase:     Setup")
	assert.Contains(t, out, "1.2  Wire toggle")
	assert.Contains(t, out, "- [x] Create theme tokens")
}

func TestCheckAndRebuild(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)
	assert.Contains(t, env.mustRun(t, "check"), "Registry consistent")

	require.NoError(t, os.Remove(filepath.Join(env.root, "tracks.md")))

	resp, err := env.runJSON(t, "check")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDrift, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing: t1")

	out := env.mustRun(t, "rebuild")
	assert.Contains(t, out, "Rebuilt registry: 1 rows")
	assert.Contains(t, env.mustRun(t, "check"), "Registry consistent")
}

func TestHistory(t *testing.T) {
	env := newCLIEnv(t)
	env.createDarkMode(t)
	env.mustRun(t, "done", "t1", "1.1")

	out := env.mustRun(t, "history", "t1")
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "planning -> in_progress")

	resp, err := env.runJSON(t, "history", "--limit", "1")
	require.NoError(t, err)
	entries, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].(map[string]interface{})["unit_id"])
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "Initialized tracks root at "+env.root)
	assert.FileExists(t, filepath.Join(env.root, "config.yaml"))

	out = env.mustRun(t, "init")
	assert.Contains(t, out, "kept existing")
}

func TestBoard_RejectsJSON(t *testing.T) {
	env := newCLIEnv(t)
	resp, err := env.runJSON(t, "board")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUsage, resp.Error.Code)
}

func TestParseAttributes(t *testing.T) {
	attrs, err := parseAttributes([]string{"issue=142", " owner = sam ", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"issue": "142", "owner": "sam", "empty": ""}, attrs)

	attrs, err = parseAttributes(nil)
	require.NoError(t, err)
	assert.Nil(t, attrs)

	_, err = parseAttributes([]string{"=value"})
	require.Error(t, err)
}
