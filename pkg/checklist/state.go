package checklist

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

const (
	// StateDir is created in the project root to track an in-progress
	// release.
	StateDir  = ".relkit"
	stateFile = "state.yaml"
)

type CompletedStep struct {
	Name       StepName  `json:"name"`
	FinishedAt time.Time `json:"finishedAt"`
}

// State records an in-progress checklist run. Completed is the ordered list
// of finished steps.
type State struct {
	Fingerprint string          `json:"fingerprint"`
	Version     string          `json:"version,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	Completed   []CompletedStep `json:"completed,omitempty"`
}

// NewState opens a fresh run of the given checklist.
func NewState(c *Checklist, version string) *State {
	return &State{
		Fingerprint: c.Fingerprint(),
		Version:     version,
		StartedAt:   time.Now(),
	}
}

func statePath(projectDir string) string {
	return filepath.Join(projectDir, StateDir, stateFile)
}

// LoadState reads the state file under projectDir. A missing file is not an
// error; it returns nil to mean "no release in progress".
func LoadState(projectDir string) (*State, error) {
	raw, err := os.ReadFile(statePath(projectDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read checklist state")
	}
	s := new(State)
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, errors.Wrap(err, "parse checklist state")
	}
	return s, nil
}

// Save writes the state file, creating the state directory if needed.
func (s *State) Save(projectDir string) error {
	dir := filepath.Join(projectDir, StateDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, fmt.Sprintf("create %s", dir))
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal checklist state")
	}
	if err := os.WriteFile(statePath(projectDir), raw, 0600); err != nil {
		return errors.Wrap(err, "write checklist state")
	}
	return nil
}

// ClearState removes any recorded run.
func ClearState(projectDir string) error {
	err := os.Remove(statePath(projectDir))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "remove checklist state")
}

// Done reports whether the named step has been completed.
func (s *State) Done(name StepName) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Completed {
		if c.Name == name {
			return true
		}
	}
	return false
}

// MarkDone appends the step to the completed list. Marking a step twice is
// a no-op.
func (s *State) MarkDone(name StepName) {
	if s.Done(name) {
		return
	}
	s.Completed = append(s.Completed, CompletedStep{Name: name, FinishedAt: time.Now()})
}

// Matches reports whether the state was recorded against a checklist with
// the given fingerprint.
func (s *State) Matches(fingerprint string) bool {
	return s != nil && s.Fingerprint == fingerprint
}
