package checklist

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, steps []Step) *Runner {
	t.Helper()
	c, err := FromSteps(steps)
	require.NoError(t, err)
	dir := t.TempDir()
	return &Runner{
		Checklist:  c,
		State:      NewState(c, "7.4.1"),
		ProjectDir: dir,
		ReportDir:  filepath.Join(dir, "reports"),
		Out:        &bytes.Buffer{},
		Confirm:    func(Step) (bool, error) { return true, nil },
	}
}

func TestRunCommands(t *testing.T) {
	r := newTestRunner(t, []Step{
		{Name: "first", Command: "echo hello"},
		{Name: "second", Command: "echo goodbye 1>&2"},
	})
	require.NoError(t, r.Run(""))

	assert.True(t, r.State.Done("first"))
	assert.True(t, r.State.Done("second"))

	out, err := os.ReadFile(r.ReportPath(Step{Name: "first"}, "out"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	errOut, err := os.ReadFile(r.ReportPath(Step{Name: "second"}, "err"))
	require.NoError(t, err)
	assert.Equal(t, "goodbye\n", string(errOut))

	// Progress was persisted.
	loaded, err := LoadState(r.ProjectDir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Done("second"))
}

func TestRunStopsAtFailure(t *testing.T) {
	r := newTestRunner(t, []Step{
		{Name: "passes", Command: "true"},
		{Name: "fails", Command: "false"},
		{Name: "never-runs", Command: "true"},
	})
	err := r.Run("")
	require.Error(t, err)

	assert.True(t, r.State.Done("passes"))
	assert.False(t, r.State.Done("fails"))
	assert.False(t, r.State.Done("never-runs"))
	assert.FileExists(t, r.ReportPath(Step{Name: "fails"}, "fail"))
}

func TestRunResumes(t *testing.T) {
	r := newTestRunner(t, []Step{
		{Name: "done-already", Command: "false"},
		{Name: "remaining", Command: "true"},
	})
	// The failing step is already recorded, so it must not run again.
	r.State.MarkDone("done-already")
	require.NoError(t, r.Run(""))
	assert.True(t, r.State.Done("remaining"))
}

func TestRunManualSteps(t *testing.T) {
	confirmed := []StepName{}
	r := newTestRunner(t, []Step{
		{Name: "ship-it", Description: "visit the dashboard", Manual: true},
	})
	r.Confirm = func(s Step) (bool, error) {
		confirmed = append(confirmed, s.Name)
		return true, nil
	}
	require.NoError(t, r.Run(""))
	assert.Equal(t, []StepName{"ship-it"}, confirmed)
	assert.True(t, r.State.Done("ship-it"))
}

func TestRunStopsWhenNotConfirmed(t *testing.T) {
	r := newTestRunner(t, []Step{
		{Name: "ship-it", Manual: true},
		{Name: "after", Command: "true"},
	})
	r.Confirm = func(Step) (bool, error) { return false, nil }
	err := r.Run("")
	require.ErrorIs(t, err, ErrNotConfirmed)
	assert.False(t, r.State.Done("ship-it"))
	assert.False(t, r.State.Done("after"))
}

func TestRunFrom(t *testing.T) {
	r := newTestRunner(t, []Step{
		{Name: "skipped", Command: "false"},
		{Name: "started-here", Command: "true"},
	})
	require.NoError(t, r.Run("started-here"))
	assert.False(t, r.State.Done("skipped"))
	assert.True(t, r.State.Done("started-here"))

	assert.Error(t, r.Run("no-such-step"))
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	out := &bytes.Buffer{}
	r := newTestRunner(t, []Step{
		{Name: "would-fail", Command: "false"},
		{Name: "manual", Manual: true},
	})
	r.Out = out
	r.DryRun = true
	r.Confirm = func(Step) (bool, error) {
		t.Fatal("dry run must not prompt")
		return false, nil
	}
	require.NoError(t, r.Run(""))
	assert.False(t, r.State.Done("would-fail"))
	assert.Contains(t, out.String(), "would-fail: false")
	assert.NoFileExists(t, filepath.Join(r.ProjectDir, StateDir, "state.yaml"))
}

func TestRunRefusesStaleState(t *testing.T) {
	r := newTestRunner(t, []Step{{Name: "a", Command: "true"}})
	r.State.Fingerprint = "something-else"
	require.ErrorIs(t, r.Run(""), ErrStaleState)
}
