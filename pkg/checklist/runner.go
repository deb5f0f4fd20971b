package checklist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meln5674/gosh"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	ErrNotConfirmed = errors.New("step was not confirmed")
	ErrStaleState   = errors.New("checklist changed since the release was started")
)

// ConfirmFunc asks the operator to confirm a manual step. Returning false
// without an error stops the run at that step.
type ConfirmFunc func(Step) (bool, error)

// Runner executes a checklist serially in listed order, recording completed
// steps so an interrupted release can resume where it stopped.
type Runner struct {
	Checklist  *Checklist
	State      *State
	ProjectDir string
	ReportDir  string
	Out        io.Writer
	Confirm    ConfirmFunc
	DryRun     bool
}

// Run executes every step that is not already completed, starting at the
// named step if from is non-empty. It stops at the first failing or
// unconfirmed step; the recorded state makes the next Run resume there.
func (r *Runner) Run(from StepName) error {
	if !r.State.Matches(r.Checklist.Fingerprint()) {
		return ErrStaleState
	}
	start := 0
	if from != "" {
		start = r.Checklist.Index(from)
		if start < 0 {
			return fmt.Errorf("No step named %s", from)
		}
		for _, step := range r.Checklist.Steps[:start] {
			if !r.State.Done(step.Name) {
				klog.Warningf("skipping incomplete step %s", step.Name)
			}
		}
	}
	for _, step := range r.Checklist.Steps[start:] {
		if r.State.Done(step.Name) {
			klog.V(1).Infof("step %s already completed", step.Name)
			continue
		}
		if err := r.RunStep(step); err != nil {
			return err
		}
		if r.DryRun {
			continue
		}
		r.State.MarkDone(step.Name)
		if err := r.State.Save(r.ProjectDir); err != nil {
			return err
		}
	}
	return nil
}

// RunStep executes a single step without touching the recorded state.
func (r *Runner) RunStep(step Step) error {
	if step.Manual {
		return r.runManual(step)
	}
	return r.runCommand(step)
}

func (r *Runner) runManual(step Step) error {
	fmt.Fprintf(r.Out, "%s: %s\n", step.Name, step.Description)
	if step.Command != "" {
		fmt.Fprintf(r.Out, "  suggested: %s\n", step.Command)
	}
	if r.DryRun {
		return nil
	}
	ok, err := r.Confirm(step)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("confirm step %s", step.Name))
	}
	if !ok {
		return errors.Wrap(ErrNotConfirmed, step.Name)
	}
	return nil
}

func (r *Runner) runCommand(step Step) error {
	fmt.Fprintf(r.Out, "%s: %s\n", step.Name, step.Command)
	if r.DryRun {
		return nil
	}
	if err := os.MkdirAll(r.ReportDir, 0700); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	err := r.commander(step).Run()
	if err == nil {
		return nil
	}
	writeErr := os.WriteFile(r.ReportPath(step, "fail"), []byte(err.Error()), 0600)
	if writeErr != nil {
		return errors.Wrap(err, fmt.Sprintf("write error file for step %s: %v", step.Name, writeErr))
	}
	return errors.Wrap(err, fmt.Sprintf("step %s failed, reports under %s", step.Name, r.ReportDir))
}

func (r *Runner) commander(step Step) gosh.Commander {
	return gosh.Command("sh", "-c", step.Command).
		WithStreams(
			gosh.FileOut(r.ReportPath(step, "out")),
			gosh.FileErr(r.ReportPath(step, "err")),
		)
}

// ReportPath names a per-step report file under the report directory.
func (r *Runner) ReportPath(step Step, basename string) string {
	ix := r.Checklist.Index(step.Name)
	return filepath.Join(r.ReportDir, fmt.Sprintf("%02d-%s.%s", ix+1, step.Name, basename))
}
