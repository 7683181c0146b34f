package dashboard

import "github.com/charmbracelet/bubbles/key"

// catalogKeys holds key bindings for the product list.
type catalogKeys struct {
	Up      key.Binding
	Down    key.Binding
	Edit    key.Binding
	New     key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Filter  key.Binding
	Tab     key.Binding
	Modes   key.Binding
	Quit    key.Binding
}

// ShortHelp returns the catalog bindings for the help bar.
func (k catalogKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.New, k.Delete, k.Refresh, k.Filter, k.Tab, k.Modes, k.Quit}
}

// FullHelp returns the catalog bindings grouped for expanded help.
func (k catalogKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit},
		{k.New, k.Delete, k.Refresh, k.Filter},
		{k.Tab, k.Modes, k.Quit},
	}
}

// editorKeys holds key bindings for the add/update form.
type editorKeys struct {
	Field  key.Binding
	Submit key.Binding
	Cancel key.Binding
	Tab    key.Binding
}

// ShortHelp returns the editor bindings for the help bar.
func (k editorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Field, k.Submit, k.Cancel, k.Tab}
}

// FullHelp returns the editor bindings grouped for expanded help.
func (k editorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Field, k.Submit},
		{k.Cancel, k.Tab},
	}
}

// queueKeys holds key bindings for queue mode.
type queueKeys struct {
	Up    key.Binding
	Down  key.Binding
	Fetch key.Binding
	Clear key.Binding
	Tab   key.Binding
	Modes key.Binding
	Quit  key.Binding
}

// ShortHelp returns the queue bindings for the help bar.
func (k queueKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Fetch, k.Clear, k.Tab, k.Modes, k.Quit}
}

// FullHelp returns the queue bindings grouped for expanded help.
func (k queueKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Fetch, k.Clear},
		{k.Tab, k.Modes, k.Quit},
	}
}

// probeKeys holds key bindings for cache probe mode.
type probeKeys struct {
	Run   key.Binding
	Clear key.Binding
	Abort key.Binding
	Modes key.Binding
	Quit  key.Binding
}

// ShortHelp returns the probe bindings for the help bar.
func (k probeKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Clear, k.Abort, k.Modes, k.Quit}
}

// FullHelp returns the probe bindings grouped for expanded help.
func (k probeKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Clear, k.Abort},
		{k.Modes, k.Quit},
	}
}

func upBinding() key.Binding {
	return key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	)
}

func downBinding() key.Binding {
	return key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	)
}

func tabBinding() key.Binding {
	return key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	)
}

func modesBinding() key.Binding {
	return key.NewBinding(
		key.WithKeys("1", "2", "3"),
		key.WithHelp("1-3", "mode"),
	)
}

func quitBinding() key.Binding {
	return key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	)
}

// CatalogKeyMap returns the key bindings for the product list.
func CatalogKeyMap() catalogKeys {
	return catalogKeys{
		Up:   upBinding(),
		Down: downBinding(),
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Tab:   tabBinding(),
		Modes: modesBinding(),
		Quit:  quitBinding(),
	}
}

// EditorKeyMap returns the key bindings for the add/update form.
func EditorKeyMap() editorKeys {
	return editorKeys{
		Field: key.NewBinding(
			key.WithKeys("up", "down"),
			key.WithHelp("↑/↓", "field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel edit"),
		),
		Tab: tabBinding(),
	}
}

// QueueKeyMap returns the key bindings for queue mode.
func QueueKeyMap() queueKeys {
	return queueKeys{
		Up:   upBinding(),
		Down: downBinding(),
		Fetch: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fetch"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear view"),
		),
		Tab:   tabBinding(),
		Modes: modesBinding(),
		Quit:  quitBinding(),
	}
}

// ProbeKeyMap returns the key bindings for cache probe mode.
func ProbeKeyMap() probeKeys {
	return probeKeys{
		Run: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "run probe"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear cache"),
		),
		Abort: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "abort"),
		),
		Modes: modesBinding(),
		Quit:  quitBinding(),
	}
}
