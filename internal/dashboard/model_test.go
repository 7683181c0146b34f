package dashboard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func newSizedModel(w, h int) Model {
	m := NewModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

func TestNewModel_DefaultMode(t *testing.T) {
	m := NewModel()
	if m.mode != ModeCatalog {
		t.Errorf("mode = %d, want ModeCatalog (%d)", m.mode, ModeCatalog)
	}
}

func TestNewModel_DefaultFocus(t *testing.T) {
	m := NewModel()
	if m.focus != PaneLeft {
		t.Errorf("focus = %d, want PaneLeft (%d)", m.focus, PaneLeft)
	}
}

func TestNewModel_InitialFetchInFlight(t *testing.T) {
	// Given: a model with a catalog service
	svc := newStubCatalog(product("1", "Widget", "9.99"))
	m := NewModel(WithCatalogService(svc))

	// Then: the first fetch is already marked in flight
	if !m.catalog.loading || m.catalog.seq != 1 {
		t.Errorf("loading = %v, seq = %d; want in-flight fetch 1", m.catalog.loading, m.catalog.seq)
	}

	// When: Init's commands run
	msgs := execBatch(t, m.Init())

	// Then: a CatalogFetchedMsg for that fetch is produced
	var found bool
	for _, msg := range msgs {
		if f, ok := msg.(CatalogFetchedMsg); ok && f.Seq == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("Init() messages = %v, want CatalogFetchedMsg{Seq: 1}", msgs)
	}
}

func TestNewModel_NoServiceNoFetch(t *testing.T) {
	m := NewModel()
	if m.catalog.loading {
		t.Error("model without a catalog service should not be loading")
	}
}

func TestModel_TabTogglesFocus(t *testing.T) {
	m := newSizedModel(90, 40)

	// Tab should switch from left to right.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focus != PaneRight {
		t.Errorf("after first Tab: focus = %d, want PaneRight (%d)", m.focus, PaneRight)
	}
	if !m.editor.focused {
		t.Error("editor should be focused when the right pane is in catalog mode")
	}

	// Tab again should switch back to left.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focus != PaneLeft {
		t.Errorf("after second Tab: focus = %d, want PaneLeft (%d)", m.focus, PaneLeft)
	}
	if m.editor.focused {
		t.Error("editor should lose focus with the right pane")
	}
}

func TestModel_QuitCancelsRootContext(t *testing.T) {
	m := newSizedModel(90, 40)
	ctx := m.ctx

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q command should produce tea.QuitMsg")
	}
	if ctx.Err() == nil {
		t.Error("quitting should cancel the root context")
	}
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newSizedModel(90, 40)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a quit command")
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("ctrl+c command produced %T, want tea.QuitMsg", msg)
	}
}

func TestModel_TypingInEditorDoesNotQuitOrSwitch(t *testing.T) {
	// Given: the editor has focus
	m := newSizedModel(90, 40)
	m = press(t, m, "tab")

	// When: keys bound globally are typed
	m = typeText(t, m, "q2")

	// Then: they land in the form instead
	if m.mode != ModeCatalog {
		t.Errorf("mode = %d, want ModeCatalog", m.mode)
	}
	if got := m.editor.name.Value(); got != "q2" {
		t.Errorf("name = %q, want %q", got, "q2")
	}
}

func TestModel_NumberKeysSwitchMode(t *testing.T) {
	tests := []struct {
		key  string
		want Mode
	}{
		{"2", ModeQueue},
		{"3", ModeProbe},
		{"1", ModeCatalog},
	}
	m := newSizedModel(90, 40)
	for _, tt := range tests {
		m = press(t, m, tt.key)
		if m.mode != tt.want {
			t.Errorf("after %q: mode = %d, want %d", tt.key, m.mode, tt.want)
		}
		if m.focus != PaneLeft {
			t.Errorf("after %q: focus = %d, want PaneLeft", tt.key, m.focus)
		}
	}
}

func TestModel_WindowSizeMsg(t *testing.T) {
	m := NewModel()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	m = updated.(Model)

	if m.width != 120 {
		t.Errorf("width = %d, want 120", m.width)
	}
	if m.height != 50 {
		t.Errorf("height = %d, want 50", m.height)
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	if got := NewModel().View(); got != "Initializing..." {
		t.Errorf("View() = %q, want %q", got, "Initializing...")
	}
}

func TestModel_ModeRouting(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		wantText string
	}{
		{"catalog", ModeCatalog, "Add product"},
		{"queue", ModeQueue, "Press f to fetch"},
		{"probe", ModeProbe, "Press p to run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newSizedModel(90, 40)
			m.mode = tt.mode

			view := m.View()
			if !containsPlainText(view, tt.wantText) {
				t.Errorf("View() should contain %q, got:\n%s", tt.wantText, stripANSI(view))
			}
		})
	}
}

func TestModel_HelpBarReflectsMode(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		focus    Focus
		wantText string
	}{
		{"catalog", ModeCatalog, PaneLeft, "refresh"},
		{"editor", ModeCatalog, PaneRight, "save"},
		{"queue", ModeQueue, PaneLeft, "fetch"},
		{"probe", ModeProbe, PaneLeft, "run probe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newSizedModel(120, 40)
			m.mode = tt.mode
			m.focus = tt.focus

			view := m.View()
			if !containsPlainText(view, tt.wantText) {
				t.Errorf("View() should contain %q", tt.wantText)
			}
		})
	}
}

func TestModel_TabsShowModes(t *testing.T) {
	view := newSizedModel(90, 40).View()
	for _, want := range []string{"1 Catalog", "2 Queue", "3 Cache"} {
		if !containsPlainText(view, want) {
			t.Errorf("View() should contain tab %q", want)
		}
	}
}

func TestModel_FetchFailureShowsError(t *testing.T) {
	// Given: a catalog service that fails
	svc := newStubCatalog()
	svc.listErr = errTest

	// When: the initial fetch lands
	m := loadedModel(t, WithCatalogService(svc))

	// Then: the error is shown and the UI stays interactive
	if !containsPlainText(m.View(), "Failed to load products") {
		t.Errorf("View() should show the load error:\n%s", stripANSI(m.View()))
	}
	m = press(t, m, "2")
	if m.mode != ModeQueue {
		t.Error("mode switch should still work after a failed fetch")
	}
}
