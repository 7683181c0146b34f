// Package probe classifies the behavior of the server's response cache by
// clearing it, reading the catalog, waiting, and reading it again.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// DefaultDelay is the settle window between the two catalog reads.
const DefaultDelay = 2000 * time.Millisecond

// Phase is a step of a probe run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseClearing    Phase = "clearing"
	PhaseFirstFetch  Phase = "first_fetch"
	PhaseWaiting     Phase = "waiting"
	PhaseSecondFetch Phase = "second_fetch"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Terminal reports whether no further transitions follow p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Overall status messages.
const (
	MessageComplete   = "Cache test complete"
	MessageFailed     = "Cache test failed"
	MessageAborted    = "Cache test aborted"
	MessageCleared    = "Cache cleared"
	MessageClearError = "Failed to clear cache"
)

// Service is the subset of the API the probe drives.
type Service interface {
	ListProducts(ctx context.Context) (catalog.FetchOutcome, error)
	ClearCache(ctx context.Context) error
}

// Clock waits out the settle window. Sleep returns early with the context's
// error when ctx is done.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns a Clock backed by real timers.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status is a snapshot of a probe run, reported on every phase transition.
type Status struct {
	Phase        Phase
	FirstResult  catalog.CacheStatus
	SecondResult catalog.CacheStatus
	First        string // Phase-1 status line.
	Second       string // Phase-2 status line.
	Message      string // Overall status line.
	// Outcome is the catalog read that completed with this transition,
	// nil when the transition did not follow a read.
	Outcome *catalog.FetchOutcome
	Err     error
}

// AsExpected reports whether the run observed a miss followed by a hit.
func (s Status) AsExpected() bool {
	return s.FirstResult == catalog.CacheMiss && s.SecondResult == catalog.CacheHit
}

// StatusCallback receives a Status on each transition.
type StatusCallback func(Status)

// Error is a probe failure with the phase it happened in.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe: phase %s: %s", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner sequences a probe run.
type Runner struct {
	svc            Service
	clock          Clock
	delay          time.Duration
	statusCallback StatusCallback
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for the waiting phase.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithDelay overrides the settle window.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) { r.delay = d }
}

// WithStatusCallback sets the callback for phase transitions.
func WithStatusCallback(cb StatusCallback) Option {
	return func(r *Runner) { r.statusCallback = cb }
}

// New creates a Runner for svc.
func New(svc Service, opts ...Option) *Runner {
	r := &Runner{
		svc:            svc,
		clock:          SystemClock(),
		delay:          DefaultDelay,
		statusCallback: func(Status) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Delay returns the configured settle window.
func (r *Runner) Delay() time.Duration {
	return r.delay
}

// Run performs clear, first read, wait, second read. Each step starts only
// after the previous one completed. The first failure ends the run in
// PhaseFailed without retrying or restoring cache state.
func (r *Runner) Run(ctx context.Context) (Status, error) {
	st := Status{Phase: PhaseClearing}
	r.notify(st)

	if err := r.svc.ClearCache(ctx); err != nil {
		return r.fail(ctx, st, err)
	}

	st.Phase = PhaseFirstFetch
	r.notify(st)

	first, err := r.svc.ListProducts(ctx)
	if err != nil {
		return r.fail(ctx, st, err)
	}
	st.FirstResult = first.CacheStatus
	st.First = resultLine("First", first.CacheStatus, catalog.CacheMiss)
	st.Phase = PhaseWaiting
	st.Outcome = &first
	r.notify(st)
	st.Outcome = nil

	if err := r.clock.Sleep(ctx, r.delay); err != nil {
		return r.fail(ctx, st, err)
	}

	st.Phase = PhaseSecondFetch
	r.notify(st)

	second, err := r.svc.ListProducts(ctx)
	if err != nil {
		return r.fail(ctx, st, err)
	}
	st.SecondResult = second.CacheStatus
	st.Second = resultLine("Second", second.CacheStatus, catalog.CacheHit)
	st.Phase = PhaseDone
	st.Message = MessageComplete
	if !st.AsExpected() {
		st.Message += ": unexpected cache behavior"
	}
	st.Outcome = &second
	r.notify(st)
	return st, nil
}

// Clear issues a standalone cache clear, outside any run.
func (r *Runner) Clear(ctx context.Context) error {
	if err := r.svc.ClearCache(ctx); err != nil {
		return &Error{Phase: PhaseClearing, Err: err}
	}
	return nil
}

// ClearMessage returns the status line for a standalone clear.
func ClearMessage(err error) string {
	if err == nil {
		return MessageCleared
	}
	return catalog.UserMessage(err, MessageClearError)
}

func (r *Runner) fail(ctx context.Context, st Status, err error) (Status, error) {
	failedIn := st.Phase
	st.Phase = PhaseFailed
	st.Outcome = nil
	st.Err = err
	st.Message = MessageFailed
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		st.Message = MessageAborted
	}
	r.notify(st)
	return st, &Error{Phase: failedIn, Err: err}
}

func (r *Runner) notify(st Status) {
	r.statusCallback(st)
}

func resultLine(label string, got, want catalog.CacheStatus) string {
	return fmt.Sprintf("%s request: %s (expected %s)", label, got.Label(), want.Label())
}
