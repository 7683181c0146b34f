// Package tui renders a headless cache probe run, either as a Bubble Tea
// checklist on a terminal or as timestamped text lines.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/probe"
)

// DisplayEvent is an event sent to a Display via the update channel.
// Implemented by StatusUpdateMsg, RunDoneMsg, and RunErrorMsg.
type DisplayEvent interface {
	isDisplayEvent()
}

// Verify at compile time that message types implement DisplayEvent.
var (
	_ DisplayEvent = StatusUpdateMsg{}
	_ DisplayEvent = RunDoneMsg{}
	_ DisplayEvent = RunErrorMsg{}
)

// Display renders probe status updates.
type Display interface {
	Run(ctx context.Context, events <-chan DisplayEvent) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Writer     io.Writer          // Output destination (default: os.Stdout).
	ForcePlain bool               // Force plain text even if TTY.
	Delay      time.Duration      // Settle window shown on the wait step.
	CancelFunc context.CancelFunc // Called by TUI on abort keypress (ignored by PlainDisplay).
}

// NewDisplay returns a TUI display when stdout is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Delay <= 0 {
		opts.Delay = probe.DefaultDelay
	}

	if opts.ForcePlain || !isTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer, delay: opts.Delay}
	}

	return &TUIDisplay{w: opts.Writer, delay: opts.Delay, cancelFunc: opts.CancelFunc}
}

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Bridge manages the channel between a probe run and a Display consumer.
type Bridge struct {
	ch chan DisplayEvent
}

// NewBridge creates a Bridge with a buffered event channel. The buffer holds
// every transition of a run, so the probe never waits on the display.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan DisplayEvent, 16)}
}

// Events returns the read-only channel for Display.Run() to consume.
func (b *Bridge) Events() <-chan DisplayEvent {
	return b.ch
}

// Send delivers a status snapshot to the display. Its signature matches
// probe.StatusCallback.
func (b *Bridge) Send(st probe.Status) {
	b.ch <- StatusUpdateMsg{Status: st}
}

// Done signals a completed run and closes the channel.
func (b *Bridge) Done(st probe.Status) {
	b.ch <- RunDoneMsg{Status: st}
	close(b.ch)
}

// Error signals a failed run and closes the channel.
func (b *Bridge) Error(st probe.Status, err error) {
	b.ch <- RunErrorMsg{Status: st, Err: err}
	close(b.ch)
}

// PlainDisplay renders status updates as timestamped text lines.
type PlainDisplay struct {
	w     io.Writer
	delay time.Duration
	now   func() time.Time
}

// Run loops over events, printing each transition as a text line.
// Returns the run error if the probe failed, or context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch msg := ev.(type) {
			case StatusUpdateMsg:
				d.renderUpdate(msg.Status)
			case RunDoneMsg:
				return nil
			case RunErrorMsg:
				return msg.Err
			}
		}
	}
}

func (d *PlainDisplay) renderUpdate(st probe.Status) {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	ts := now().Format("15:04:05")
	for _, line := range plainLines(st, d.delay) {
		_, _ = fmt.Fprintf(d.w, "[%s] %s\n", ts, line)
	}
}

// plainLines returns the text lines announcing a transition.
func plainLines(st probe.Status, delay time.Duration) []string {
	switch st.Phase {
	case probe.PhaseClearing:
		return []string{"Clearing cache"}
	case probe.PhaseFirstFetch:
		return []string{"First request"}
	case probe.PhaseWaiting:
		return []string{st.First, fmt.Sprintf("Waiting %s", delay)}
	case probe.PhaseSecondFetch:
		return []string{"Second request"}
	case probe.PhaseDone:
		return []string{st.Second, st.Message}
	case probe.PhaseFailed:
		if st.Err != nil && st.Message != probe.MessageAborted {
			return []string{st.Message + ": " + catalog.UserMessage(st.Err, st.Err.Error())}
		}
		return []string{st.Message}
	}
	return nil
}

// TUIDisplay renders status updates using a Bubble Tea terminal UI.
// Falls back to PlainDisplay if the TUI program fails to start.
type TUIDisplay struct {
	w          io.Writer
	delay      time.Duration
	cancelFunc context.CancelFunc
}

// Run starts the Bubble Tea program and feeds events from the channel.
// If the TUI fails to initialize, it falls back to plain text output.
func (d *TUIDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	opts := []ModelOption{WithDelay(d.delay)}
	if d.cancelFunc != nil {
		opts = append(opts, WithCancelFunc(d.cancelFunc))
	}
	p := tea.NewProgram(NewModel(opts...), tea.WithOutput(d.w), tea.WithContext(ctx))

	// Forward events through an intermediate channel so we can stop
	// the goroutine cleanly on TUI failure before falling back.
	fwd := make(chan DisplayEvent, 16)
	stop := make(chan struct{})

	go func() {
		defer close(fwd)
		for ev := range events {
			select {
			case fwd <- ev:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for ev := range fwd {
			p.Send(ev)
		}
	}()

	final, err := p.Run()
	if err != nil {
		close(stop)
		plain := &PlainDisplay{w: d.w, delay: d.delay}
		return plain.Run(ctx, events)
	}
	if m, ok := final.(Model); ok {
		return m.err
	}
	return nil
}
