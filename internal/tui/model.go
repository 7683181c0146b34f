package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/probe"
)

// StepStatus is the display state of one checklist step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
)

// Step is one line of the probe checklist.
type Step struct {
	Phase  probe.Phase
	Label  string
	Status StepStatus
}

// StatusUpdateMsg carries a probe transition to the TUI.
type StatusUpdateMsg struct {
	Status probe.Status
}

// RunDoneMsg signals that the probe completed.
type RunDoneMsg struct {
	Status probe.Status
}

// RunErrorMsg signals that the probe failed or was aborted.
type RunErrorMsg struct {
	Status probe.Status
	Err    error
}

func (StatusUpdateMsg) isDisplayEvent() {}
func (RunDoneMsg) isDisplayEvent()      {}
func (RunErrorMsg) isDisplayEvent()     {}

var (
	passedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the Bubble Tea model for a headless probe run.
type Model struct {
	steps      []Step
	status     probe.Status
	spinner    spinner.Model
	done       bool
	aborting   bool
	err        error
	cancelFunc context.CancelFunc
	width      int
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCancelFunc sets the function called when the user presses q or ctrl+c
// during a run.
func WithCancelFunc(fn context.CancelFunc) ModelOption {
	return func(m *Model) { m.cancelFunc = fn }
}

// WithDelay labels the wait step with the settle window.
func WithDelay(d time.Duration) ModelOption {
	return func(m *Model) {
		for i := range m.steps {
			if m.steps[i].Phase == probe.PhaseWaiting {
				m.steps[i].Label = fmt.Sprintf("Wait %s", d)
			}
		}
	}
}

// NewModel creates a Model with every step pending.
func NewModel(opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		steps: []Step{
			{Phase: probe.PhaseClearing, Label: "Clear cache", Status: StepPending},
			{Phase: probe.PhaseFirstFetch, Label: "First request", Status: StepPending},
			{Phase: probe.PhaseWaiting, Label: fmt.Sprintf("Wait %s", probe.DefaultDelay), Status: StepPending},
			{Phase: probe.PhaseSecondFetch, Label: "Second request", Status: StepPending},
		},
		spinner: s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusUpdateMsg:
		m.apply(msg.Status)
		return m, nil

	case RunDoneMsg:
		m.apply(msg.Status)
		m.done = true
		m.aborting = false
		return m, tea.Quit

	case RunErrorMsg:
		m.apply(msg.Status)
		m.done = true
		m.aborting = false
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		if m.done {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "x":
			// A second press quits without waiting for the run to unwind.
			if m.cancelFunc == nil || m.aborting {
				m.done = true
				return m, tea.Quit
			}
			m.aborting = true
			m.cancelFunc()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds a transition into the checklist. Steps before the entered
// phase are passed; a failure marks the step that was running.
func (m *Model) apply(st probe.Status) {
	m.status = st
	switch st.Phase {
	case probe.PhaseDone:
		for i := range m.steps {
			m.steps[i].Status = StepPassed
		}
		return
	case probe.PhaseFailed:
		for i := range m.steps {
			if m.steps[i].Status == StepRunning {
				m.steps[i].Status = StepFailed
			}
		}
		return
	}
	reached := false
	for i := range m.steps {
		switch {
		case m.steps[i].Phase == st.Phase:
			m.steps[i].Status = StepRunning
			reached = true
		case !reached:
			m.steps[i].Status = StepPassed
		}
	}
}

// View renders the checklist, result lines and overall message.
func (m Model) View() string {
	var b strings.Builder

	for _, step := range m.steps {
		fmt.Fprintf(&b, "  %s %s\n", stepIndicator(step.Status, m.spinner.View()), step.Label)
	}

	var results []string
	for _, line := range []string{m.status.First, m.status.Second} {
		if line != "" {
			results = append(results, line)
		}
	}
	if len(results) > 0 {
		b.WriteByte('\n')
		for _, line := range results {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	switch {
	case m.aborting:
		b.WriteString("\n  " + mutedStyle.Render("Aborting...") + "\n")
	case m.done && m.err != nil:
		msg := m.status.Message
		if msg == "" {
			msg = probe.MessageFailed
		}
		if m.status.Message != probe.MessageAborted {
			msg += ": " + catalog.UserMessage(m.err, m.err.Error())
		}
		b.WriteString("\n  " + failedStyle.Render(msg) + "\n")
	case m.done:
		b.WriteString("\n  " + passedStyle.Render(m.status.Message) + "\n")
	}

	return b.String()
}

// stepIndicator returns the Unicode indicator for a step status.
func stepIndicator(status StepStatus, spinnerView string) string {
	switch status {
	case StepPending:
		return "○"
	case StepRunning:
		return spinnerView
	case StepPassed:
		return passedStyle.Render("✓")
	case StepFailed:
		return failedStyle.Render("✗")
	default:
		return "?"
	}
}
