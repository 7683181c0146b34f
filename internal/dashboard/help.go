package dashboard

import (
	"github.com/charmbracelet/bubbles/help"
)

// HelpBindings returns the help.KeyMap for the given mode and focus,
// providing context-aware help bar content.
func HelpBindings(mode Mode, focus Focus) help.KeyMap {
	switch mode {
	case ModeQueue:
		return QueueKeyMap()
	case ModeProbe:
		return ProbeKeyMap()
	default:
		if focus == PaneRight {
			return EditorKeyMap()
		}
		return CatalogKeyMap()
	}
}
