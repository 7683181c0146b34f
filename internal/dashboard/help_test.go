package dashboard

import (
	"testing"

	"github.com/charmbracelet/bubbles/help"
)

func TestHelpBindings_CatalogList(t *testing.T) {
	// Given: help bindings for the catalog list
	km := HelpBindings(ModeCatalog, PaneLeft)
	allKeys := collectKeys(km.ShortHelp())

	// Then: list actions and quit are present
	if !containsKey(allKeys, "r") {
		t.Error("catalog help should contain 'r' key")
	}
	if !containsKey(allKeys, "q") {
		t.Error("catalog help should contain 'q' key")
	}
}

func TestHelpBindings_CatalogEditor(t *testing.T) {
	// Given: help bindings for the catalog with the form focused
	km := HelpBindings(ModeCatalog, PaneRight)
	allKeys := collectKeys(km.ShortHelp())

	// Then: form keys are shown instead of list keys
	if !containsKey(allKeys, "esc") {
		t.Error("editor help should contain 'esc' key")
	}
	if containsKey(allKeys, "d") {
		t.Error("editor help should not contain 'd' key")
	}
}

func TestHelpBindings_QueueAndProbe(t *testing.T) {
	if !containsKey(collectKeys(HelpBindings(ModeQueue, PaneLeft).ShortHelp()), "f") {
		t.Error("queue help should contain 'f' key")
	}
	// Focus does not change probe help.
	for _, f := range []Focus{PaneLeft, PaneRight} {
		if !containsKey(collectKeys(HelpBindings(ModeProbe, f).ShortHelp()), "p") {
			t.Errorf("probe help (focus %d) should contain 'p' key", f)
		}
	}
}

func TestHelpBindings_ImplementsKeyMap(t *testing.T) {
	// Given: all dashboard modes
	modes := []Mode{ModeCatalog, ModeQueue, ModeProbe}

	// Then: each returns a type satisfying help.KeyMap (ShortHelp + FullHelp)
	for _, mode := range modes {
		km := HelpBindings(mode, PaneLeft)
		_ = km.ShortHelp()
		_ = km.FullHelp()
	}
}

// Verify our key map types satisfy help.KeyMap at compile time.
var (
	_ help.KeyMap = catalogKeys{}
	_ help.KeyMap = editorKeys{}
	_ help.KeyMap = queueKeys{}
	_ help.KeyMap = probeKeys{}
)
