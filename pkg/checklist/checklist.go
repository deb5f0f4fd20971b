package checklist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	V1Alpha1APIVersion = "relkit.github.com/v1alpha1"
	ChecklistKind      = "Checklist"
)

type StepName = string

// Step is one entry of a release checklist. A step either carries a command
// to run, or is manual and only requires operator confirmation. A manual
// step may still name a command as a hint; it is shown but never executed.
type Step struct {
	Name        StepName `json:"name"`
	Description string   `json:"description,omitempty"`
	Command     string   `json:"command,omitempty"`
	Manual      bool     `json:"manual,omitempty"`
}

// Checklist is an ordered list of release steps. Steps are meant to be
// executed in listed order.
type Checklist struct {
	metav1.TypeMeta
	Steps []Step `json:"steps"`
}

// Load reads and validates a standalone checklist document.
func Load(path string) (*Checklist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("read checklist %s", path))
	}
	c := new(Checklist)
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("parse checklist %s", path))
	}
	if c.APIVersion != V1Alpha1APIVersion {
		return nil, fmt.Errorf("Unknown apiVersion: %s", c.APIVersion)
	}
	if c.Kind != ChecklistKind {
		return nil, fmt.Errorf("Unknown kind: %s", c.Kind)
	}
	if err := Validate(c.Steps); err != nil {
		return nil, err
	}
	return c, nil
}

// FromSteps builds a checklist from steps declared inline in a project file.
func FromSteps(steps []Step) (*Checklist, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}
	c := new(Checklist)
	c.APIVersion = V1Alpha1APIVersion
	c.Kind = ChecklistKind
	c.Steps = steps
	return c, nil
}

// Validate checks the step list invariants: at least one step, unique
// non-empty names, and every non-manual step carrying a command.
func Validate(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("No checklist steps specified")
	}
	seen := make(map[StepName]struct{}, len(steps))
	for i, step := range steps {
		if step.Name == "" {
			return fmt.Errorf("Step %d has no name", i+1)
		}
		if _, ok := seen[step.Name]; ok {
			return fmt.Errorf("Step name %s is duplicated", step.Name)
		}
		seen[step.Name] = struct{}{}
		if !step.Manual && step.Command == "" {
			return fmt.Errorf("Step %s has no command and is not manual", step.Name)
		}
	}
	return nil
}

// Index returns the position of the named step, or -1.
func (c *Checklist) Index(name StepName) int {
	for i, step := range c.Steps {
		if step.Name == name {
			return i
		}
	}
	return -1
}

// Fingerprint identifies the step list so a state file can detect that the
// checklist changed underneath an in-progress release.
func (c *Checklist) Fingerprint() string {
	raw, err := json.Marshal(c.Steps)
	if err != nil {
		// Steps contain only plain strings and bools.
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
