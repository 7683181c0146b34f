package dashboard

import (
	"errors"
	"testing"

	"github.com/smileynet/storeprobe/internal/probe"
)

func TestProbeState_BeginGuard(t *testing.T) {
	ps := newProbeState(probe.DefaultDelay)
	ps, run, ok := ps.begin()
	if !ok || run != 1 {
		t.Fatalf("begin() = %d, %v; want 1, true", run, ok)
	}
	if _, _, ok := ps.begin(); ok {
		t.Error("begin() while running should be ignored")
	}
}

func TestProbeState_IgnoresOtherRuns(t *testing.T) {
	ps, _, _ := newProbeState(probe.DefaultDelay).begin()

	ps = ps.applyStatus(ProbeStatusMsg{Run: 7, Status: probe.Status{Phase: probe.PhaseDone}}, 0)
	ps = ps.finish(ProbeDoneMsg{Run: 7})

	if !ps.running || ps.status.Phase != probe.PhaseClearing {
		t.Errorf("state changed by another run: running = %v, phase = %s", ps.running, ps.status.Phase)
	}
}

func TestProbeState_StepIndicators(t *testing.T) {
	ps, run, _ := newProbeState(probe.DefaultDelay).begin()
	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseWaiting}}, 0)

	view := stripANSI(ps.View(60, 20, "*"))
	for _, want := range []string{"✓ Clear cache", "✓ First request", "* Wait 2s", "○ Second request"} {
		if !containsText(view, want) {
			t.Errorf("view should contain %q, got:\n%s", want, view)
		}
	}

	// When: the run fails in the waiting phase
	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseFailed, Message: probe.MessageAborted}}, 0)
	ps = ps.finish(ProbeDoneMsg{Run: run, Status: probe.Status{Phase: probe.PhaseFailed, Message: probe.MessageAborted}})

	// Then: the failed step is marked and later steps stay pending
	view = stripANSI(ps.View(60, 20, "*"))
	if !containsText(view, "✗ Wait") || !containsText(view, "○ Second request") {
		t.Errorf("failed view = \n%s", view)
	}
	if !containsPlainText(ps.DetailView(60, 20), probe.MessageAborted) {
		t.Error("detail should show the overall message")
	}
}

func TestProbeState_ClearGuard(t *testing.T) {
	ps := newProbeState(probe.DefaultDelay)
	ps, ok := ps.startClear()
	if !ok {
		t.Fatal("startClear() should succeed when idle")
	}
	if _, ok := ps.startClear(); ok {
		t.Error("startClear() while clearing should be ignored")
	}

	running, _, _ := newProbeState(probe.DefaultDelay).begin()
	if _, ok := running.startClear(); ok {
		t.Error("startClear() during a run should be ignored")
	}
}

func TestProbeState_ClearMessages(t *testing.T) {
	ps, _ := newProbeState(probe.DefaultDelay).startClear()

	if got := ps.applyCleared(CacheClearedMsg{}).cleared; got != probe.MessageCleared {
		t.Errorf("cleared = %q, want %q", got, probe.MessageCleared)
	}
	if got := ps.applyCleared(CacheClearedMsg{Err: errors.New("down")}).cleared; got != probe.MessageClearError {
		t.Errorf("cleared = %q, want %q", got, probe.MessageClearError)
	}
}

func TestWaitForProbe_NilChannel(t *testing.T) {
	if waitForProbe(nil) != nil {
		t.Error("waitForProbe(nil) should return nil")
	}
}

func TestProbeState_RecordsCatalogSeqOnRead(t *testing.T) {
	ps, run, _ := newProbeState(probe.DefaultDelay).begin()

	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseClearing}}, 3)
	if ps.readSeq != 0 {
		t.Errorf("readSeq after clearing = %d, want 0", ps.readSeq)
	}
	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseFirstFetch}}, 4)
	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseWaiting}}, 5)
	if ps.readSeq != 4 {
		t.Errorf("readSeq after first read = %d, want 4", ps.readSeq)
	}
	ps = ps.applyStatus(ProbeStatusMsg{Run: run, Status: probe.Status{Phase: probe.PhaseSecondFetch}}, 6)
	if ps.readSeq != 6 {
		t.Errorf("readSeq after second read = %d, want 6", ps.readSeq)
	}
}
