package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/storeprobe/internal/probe"
)

// probeSteps are the non-terminal phases shown as a checklist.
var probeSteps = []struct {
	phase probe.Phase
	label string
}{
	{probe.PhaseClearing, "Clear cache"},
	{probe.PhaseFirstFetch, "First request"},
	{probe.PhaseWaiting, "Wait"},
	{probe.PhaseSecondFetch, "Second request"},
}

// probeEventBuffer holds every transition a run can report plus its done
// message, so the run goroutine never blocks on a slow reader.
const probeEventBuffer = 8

// probeState is the CacheProbe view: the current or last run and the result
// of the last standalone clear.
type probeState struct {
	run      int // id of the current or last run
	running  bool
	status   probe.Status
	reached  probe.Phase // last non-terminal phase entered
	readSeq  uint64      // catalog seq when the run's current read was issued
	delay    time.Duration
	clearing bool
	cleared  string
}

// newProbeState returns an idle probeState.
func newProbeState(delay time.Duration) probeState {
	return probeState{status: probe.Status{Phase: probe.PhaseIdle}, delay: delay}
}

// startProbe launches run on a goroutine and returns the channel its
// transitions and completion are delivered on. The channel is closed after
// the ProbeDoneMsg.
func startProbe(ctx context.Context, runner ProbeRunner, run int) <-chan tea.Msg {
	ch := make(chan tea.Msg, probeEventBuffer)
	go func() {
		defer close(ch)
		st, err := runner.RunProbe(ctx, func(s probe.Status) {
			ch <- ProbeStatusMsg{Run: run, Status: s}
		})
		ch <- ProbeDoneMsg{Run: run, Status: st, Err: err}
	}()
	return ch
}

// waitForProbe returns a tea.Cmd that delivers the next event from ch.
func waitForProbe(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// clearCache returns a tea.Cmd for a standalone cache clear.
func clearCache(ctx context.Context, runner ProbeRunner) tea.Cmd {
	return func() tea.Msg {
		return CacheClearedMsg{Err: runner.ClearCache(ctx)}
	}
}

// begin starts a new run. ok is false while a run is already active.
func (ps probeState) begin() (next probeState, run int, ok bool) {
	if ps.running {
		return ps, 0, false
	}
	ps.run++
	ps.running = true
	ps.status = probe.Status{Phase: probe.PhaseClearing}
	ps.reached = probe.PhaseClearing
	ps.readSeq = 0
	return ps, ps.run, true
}

// applyStatus records a transition of the current run. Entering a fetch
// phase notes catalogSeq so the read's outcome can later be checked against
// catalog fetches issued after it.
func (ps probeState) applyStatus(msg ProbeStatusMsg, catalogSeq uint64) probeState {
	if msg.Run != ps.run {
		return ps
	}
	switch msg.Status.Phase {
	case probe.PhaseFirstFetch, probe.PhaseSecondFetch:
		ps.readSeq = catalogSeq
	}
	ps.status = msg.Status
	if !msg.Status.Phase.Terminal() {
		ps.reached = msg.Status.Phase
	}
	return ps
}

// finish records the end of the current run.
func (ps probeState) finish(msg ProbeDoneMsg) probeState {
	if msg.Run != ps.run {
		return ps
	}
	ps.running = false
	if msg.Status.Phase != "" {
		ps.status = msg.Status
	}
	return ps
}

// startClear marks a standalone clear in flight. ok is false when one
// already is or a run is active.
func (ps probeState) startClear() (next probeState, ok bool) {
	if ps.clearing || ps.running {
		return ps, false
	}
	ps.clearing = true
	ps.cleared = ""
	return ps, true
}

func (ps probeState) applyCleared(msg CacheClearedMsg) probeState {
	ps.clearing = false
	ps.cleared = probe.ClearMessage(msg.Err)
	return ps
}

var (
	stepPassedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	stepFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	stepRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	stepPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// stepIndicator returns the checklist marker for step i given the run state.
func (ps probeState) stepIndicator(i int, spinnerView string) string {
	current := -1
	for j, s := range probeSteps {
		if s.phase == ps.reached {
			current = j
		}
	}
	switch {
	case ps.status.Phase == probe.PhaseIdle || current < 0 || i > current:
		return stepPendingStyle.Render("○")
	case i < current || ps.status.Phase == probe.PhaseDone:
		return stepPassedStyle.Render("✓")
	case ps.status.Phase == probe.PhaseFailed:
		return stepFailedStyle.Render("✗")
	default:
		return spinnerView
	}
}

// View renders the phase checklist.
func (ps probeState) View(width, height int, spinnerView string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Cache probe"))
	b.WriteByte('\n')
	for i, s := range probeSteps {
		label := s.label
		if s.phase == probe.PhaseWaiting {
			label = fmt.Sprintf("Wait %s", ps.delay)
		}
		if ps.running && s.phase == ps.reached {
			label = stepRunningStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s %s\n", ps.stepIndicator(i, spinnerView), label)
	}
	if !ps.running && ps.status.Phase == probe.PhaseIdle {
		b.WriteString("\nPress p to run")
	}
	return b.String()
}

// DetailView renders the result lines of the run and the last clear.
func (ps probeState) DetailView(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Results"))
	b.WriteString("\n\n")
	for _, line := range []string{ps.status.First, ps.status.Second} {
		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if ps.status.Message != "" {
		b.WriteByte('\n')
		switch ps.status.Phase {
		case probe.PhaseFailed:
			b.WriteString(errorText.Render(ps.status.Message))
		default:
			b.WriteString(ps.status.Message)
		}
		b.WriteByte('\n')
	}
	if ps.clearing {
		b.WriteString("\n" + mutedText.Render("Clearing cache..."))
	} else if ps.cleared != "" {
		b.WriteString("\n" + ps.cleared)
	}
	return b.String()
}
