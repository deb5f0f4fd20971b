// Package tui is the interactive checklist runner. It follows The Elm
// Architecture via bubbletea: the model holds the checklist and its
// recorded state, Update reacts to key presses and step results, and View
// renders the step list with completion markers.
package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relkit/relkit/pkg/checklist"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursorStyle  = lipgloss.NewStyle().Bold(true)
	descStyle    = lipgloss.NewStyle().Faint(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// stepDoneMsg reports a finished step back to Update.
type stepDoneMsg struct {
	name checklist.StepName
	err  error
}

type model struct {
	runner *checklist.Runner
	cursor int
	// start is where the operator chose to begin; steps before it are
	// not required to be complete.
	start   int
	running bool
	spin    spinner.Model
	lastErr error
	quit    bool
}

func newModel(runner *checklist.Runner, from checklist.StepName) (model, error) {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := model{runner: runner, spin: sp, cursor: firstIncomplete(runner)}
	if from != "" {
		ix := runner.Checklist.Index(from)
		if ix < 0 {
			return model{}, fmt.Errorf("No step named %s", from)
		}
		m.cursor = ix
		m.start = ix
	}
	return m, nil
}

func firstIncomplete(runner *checklist.Runner) int {
	for i, step := range runner.Checklist.Steps {
		if !runner.State.Done(step.Name) {
			return i
		}
	}
	return 0
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.running {
			// A step is executing, only allow quitting.
			if msg.String() == "ctrl+c" {
				m.quit = true
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.runner.Checklist.Steps)-1 {
				m.cursor++
			}
		case "enter", " ":
			return m.startStep()
		}
	case stepDoneMsg:
		m.running = false
		m.lastErr = msg.err
		if msg.err == nil {
			m.lastErr = m.recordDone(msg.name)
			if m.cursor < len(m.runner.Checklist.Steps)-1 {
				m.cursor++
			}
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// startStep launches the focused step, unless an earlier step is still
// incomplete: the checklist is meant to be walked in listed order.
func (m model) startStep() (tea.Model, tea.Cmd) {
	step := m.runner.Checklist.Steps[m.cursor]
	if m.runner.State.Done(step.Name) {
		return m, nil
	}
	for _, earlier := range m.runner.Checklist.Steps[m.start:m.cursor] {
		if !m.runner.State.Done(earlier.Name) {
			m.lastErr = fmt.Errorf("step %s must be completed first", earlier.Name)
			return m, nil
		}
	}
	m.lastErr = nil
	if step.Manual {
		// Enter on a manual step is the operator's confirmation.
		m.lastErr = m.recordDone(step.Name)
		if m.cursor < len(m.runner.Checklist.Steps)-1 {
			m.cursor++
		}
		return m, nil
	}
	m.running = true
	runner := m.runner
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		return stepDoneMsg{name: step.Name, err: runner.RunStep(step)}
	})
}

// recordDone persists a completed step. A dry run leaves the recorded
// state alone, matching Runner.Run.
func (m model) recordDone(name checklist.StepName) error {
	if m.runner.DryRun {
		return nil
	}
	m.runner.State.MarkDone(name)
	return m.runner.State.Save(m.runner.ProjectDir)
}

func (m model) View() string {
	if m.quit {
		return ""
	}
	title := "Release checklist"
	if m.runner.DryRun {
		title += " (dry run, nothing is recorded)"
	}
	s := titleStyle.Render(title) + "\n\n"
	for i, step := range m.runner.Checklist.Steps {
		mark := "[ ]"
		if m.runner.State.Done(step.Name) {
			mark = doneStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", mark, step.Name)
		if i == m.cursor {
			if m.running {
				line = fmt.Sprintf("%s %s %s", m.spin.View(), mark, step.Name)
			}
			line = cursorStyle.Render("> " + line)
			if step.Description != "" {
				line += "\n" + descStyle.Render("      "+step.Description)
			}
			if step.Command != "" {
				line += "\n" + commandStyle.Render("      $ "+step.Command)
			}
		} else {
			line = "  " + line
		}
		s += line + "\n"
	}
	if m.lastErr != nil {
		s += "\n" + errStyle.Render(m.lastErr.Error()) + "\n"
	}
	s += "\n" + descStyle.Render("enter: run/confirm step · j/k: move · q: quit") + "\n"
	return s
}

// Run drives the checklist through a terminal UI using the given runner,
// starting at the named step if from is non-empty. The runner's plain-text
// output is silenced; the view is the output.
func Run(runner *checklist.Runner, from checklist.StepName) error {
	runner.Out = io.Discard
	m, err := newModel(runner, from)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m).Run()
	return err
}
