package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/storeprobe/internal/probe"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// tabBarHeight is the number of lines reserved for the mode tabs at the top.
const tabBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// DefaultQueueName is the queue shown when none is configured.
const DefaultQueueName = "orders"

// Model is the root Bubble Tea model for the dashboard TUI.
// It manages a two-pane layout with mode-based routing and focus management.
// All state holders are mutated only from Update.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	mode     Mode
	focus    Focus
	width    int
	height   int
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model

	catalogSvc CatalogService
	queueSvc   QueueService
	prober     ProbeRunner
	logger     *slog.Logger

	catalog catalogState
	editor  editorState
	queue   queueState
	probe   probeState

	probeCancel context.CancelFunc
	probeEvents <-chan tea.Msg
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCatalogService sets the service for catalog reads and writes.
func WithCatalogService(s CatalogService) ModelOption {
	return func(m *Model) { m.catalogSvc = s }
}

// WithQueueService sets the service for queue reads.
func WithQueueService(s QueueService) ModelOption {
	return func(m *Model) { m.queueSvc = s }
}

// WithProbeRunner sets the cache probe runner.
func WithProbeRunner(r ProbeRunner) ModelOption {
	return func(m *Model) { m.prober = r }
}

// WithQueueName sets the queue shown in queue mode.
func WithQueueName(name string) ModelOption {
	return func(m *Model) { m.queue.name = name }
}

// WithProbeDelay sets the settle window shown in probe mode.
func WithProbeDelay(d time.Duration) ModelOption {
	return func(m *Model) { m.probe.delay = d }
}

// WithLogger sets the logger for failures that are not shown in the view.
func WithLogger(l *slog.Logger) ModelOption {
	return func(m *Model) { m.logger = l }
}

// WithContext sets the parent of the root context. Cancelling it aborts
// in-flight work.
func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) { m.ctx = ctx }
}

// NewModel creates a dashboard Model in catalog mode with left-pane focus.
// When a catalog service is set, the initial fetch is marked in flight and
// issued by Init.
func NewModel(opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:      context.Background(),
		mode:     ModeCatalog,
		focus:    PaneLeft,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		spinner:  s,
		logger:   slog.New(slog.DiscardHandler),
		catalog:  newCatalogState(),
		editor:   newEditorState(),
		queue:    newQueueState(DefaultQueueName),
		probe:    newProbeState(probe.DefaultDelay),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.ctx, m.cancel = context.WithCancel(m.ctx)

	if m.catalogSvc != nil {
		m.catalog, _, _ = m.catalog.startFetch()
	}
	return m
}

// Init returns the initial catalog fetch and starts the spinner.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.catalogSvc != nil && m.catalog.loading {
		cmds = append(cmds, fetchCatalog(m.ctx, m.catalogSvc, m.catalog.seq))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages with mode-based routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		vpWidth := rightWidth - borderChrome
		if vpWidth < 0 {
			vpWidth = 0
		}
		m.viewport.Width = vpWidth
		m.viewport.Height = m.contentHeight()
		return m.syncViewport(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RefreshCatalogMsg:
		return m.refreshCatalog()

	case CatalogFetchedMsg:
		var applied, again bool
		m.catalog, applied, again = m.catalog.applyFetch(msg)
		if !applied {
			m.logger.Debug("stale catalog result dropped", "seq", msg.Seq)
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Error("catalog fetch failed", "error", msg.Err)
		}
		if again {
			return m.refreshCatalog()
		}
		return m, nil

	case EditProductMsg:
		if m.editor.saving {
			m.editor.message = msgSaveRunning
			return m, nil
		}
		m.editor = m.editor.selectProduct(msg.Product)
		return m.setFocus(PaneRight), nil

	case NewProductMsg:
		if m.editor.saving {
			m.editor.message = msgSaveRunning
			return m, nil
		}
		m.editor = m.editor.reset()
		m.editor.message = ""
		return m.setFocus(PaneRight), nil

	case DeleteProductMsg:
		if m.catalogSvc == nil {
			m.catalog.deleting = false
			return m, nil
		}
		return m, deleteProduct(m.ctx, m.catalogSvc, msg.ID)

	case ProductDeletedMsg:
		m.catalog = m.catalog.applyDeleted(msg)
		if msg.Err != nil {
			m.logger.Error("product delete failed", "id", msg.ID, "error", msg.Err)
			return m, nil
		}
		return m.refreshCatalog()

	case ProductSavedMsg:
		var ok bool
		m.editor, ok = m.editor.applySaved(msg)
		if !ok {
			m.logger.Error("product save failed", "id", msg.ID, "error", msg.Err)
			return m, nil
		}
		return m.refreshCatalog()

	case QueueFetchedMsg:
		if msg.Err != nil {
			m.logger.Warn("queue fetch failed", "queue", msg.Queue, "error", msg.Err)
		}
		m.queue = m.queue.applyFetch(msg)
		return m.syncViewport(), nil

	case ProbeStatusMsg:
		if msg.Run != m.probe.run {
			return m, nil
		}
		m.probe = m.probe.applyStatus(msg, m.catalog.seq)
		if msg.Status.Outcome != nil {
			m.catalog = m.catalog.applyProbeOutcome(*msg.Status.Outcome, m.probe.readSeq)
		}
		return m, waitForProbe(m.probeEvents)

	case ProbeDoneMsg:
		if msg.Run != m.probe.run {
			return m, nil
		}
		m.probe = m.probe.finish(msg)
		if m.probeCancel != nil {
			m.probeCancel()
			m.probeCancel = nil
		}
		m.probeEvents = nil
		if msg.Err != nil {
			m.logger.Error("cache probe failed", "error", msg.Err)
		}
		return m, nil

	case CacheClearedMsg:
		m.probe = m.probe.applyCleared(msg)
		if msg.Err != nil {
			m.logger.Error("cache clear failed", "error", msg.Err)
		}
		return m, nil
	}

	return m, nil
}

// refreshCatalog issues a catalog fetch, or queues one when a fetch is
// already in flight.
func (m Model) refreshCatalog() (tea.Model, tea.Cmd) {
	if m.catalogSvc == nil {
		return m, nil
	}
	var (
		seq uint64
		ok  bool
	)
	m.catalog, seq, ok = m.catalog.startFetch()
	if !ok {
		return m, nil
	}
	return m, fetchCatalog(m.ctx, m.catalogSvc, seq)
}

// capturingText reports whether keys should go to a text input rather than
// the global bindings.
func (m Model) capturingText() bool {
	return m.mode == ModeCatalog && (m.focus == PaneRight || m.catalog.filtering)
}

// handleKey processes key messages with global and mode-specific routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "tab":
		if m.mode == ModeCatalog && m.catalog.filtering {
			break
		}
		if m.focus == PaneLeft {
			return m.setFocus(PaneRight), nil
		}
		return m.setFocus(PaneLeft), nil
	}

	if !m.capturingText() {
		switch msg.String() {
		case "q":
			return m.quit()
		case "1":
			return m.setMode(ModeCatalog), nil
		case "2":
			return m.setMode(ModeQueue), nil
		case "3":
			return m.setMode(ModeProbe), nil
		}
	}

	switch m.mode {
	case ModeQueue:
		return m.handleQueueKey(msg)
	case ModeProbe:
		return m.handleProbeKey(msg)
	default:
		return m.handleCatalogKey(msg)
	}
}

func (m Model) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == PaneLeft {
		var cmd tea.Cmd
		m.catalog, cmd = m.catalog.Update(msg)
		return m, cmd
	}

	var (
		cmd    tea.Cmd
		submit bool
	)
	m.editor, cmd, submit = m.editor.Update(msg)
	if submit {
		m.editor, cmd = m.editor.submit(m.ctx, m.catalogSvc)
	}
	return m, cmd
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f":
		if m.queueSvc == nil {
			return m, nil
		}
		var ok bool
		m.queue, ok = m.queue.startFetch()
		if !ok {
			return m, nil
		}
		return m, fetchQueue(m.ctx, m.queueSvc, m.queue.name)
	case "c":
		m.queue = m.queue.clear()
		return m.syncViewport(), nil
	}

	if m.focus == PaneRight {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.queue, _ = m.queue.Update(msg)
	return m.syncViewport(), nil
}

func (m Model) handleProbeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prober == nil {
		return m, nil
	}
	switch msg.String() {
	case "p":
		var (
			run int
			ok  bool
		)
		m.probe, run, ok = m.probe.begin()
		if !ok {
			return m, nil
		}
		var ctx context.Context
		ctx, m.probeCancel = context.WithCancel(m.ctx)
		m.probeEvents = startProbe(ctx, m.prober, run)
		return m, waitForProbe(m.probeEvents)

	case "c":
		var ok bool
		m.probe, ok = m.probe.startClear()
		if !ok {
			return m, nil
		}
		return m, clearCache(m.ctx, m.prober)

	case "x":
		if m.probe.running && m.probeCancel != nil {
			m.probeCancel()
		}
		return m, nil
	}
	return m, nil
}

// quit cancels the root context, aborting in-flight work, and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m Model) setMode(mode Mode) Model {
	m.mode = mode
	m = m.setFocus(PaneLeft)
	return m.syncViewport()
}

func (m Model) setFocus(f Focus) Model {
	m.focus = f
	m.editor = m.editor.setFocused(m.mode == ModeCatalog && f == PaneRight)
	return m
}

// syncViewport loads the selected queue message into the detail viewport.
func (m Model) syncViewport() Model {
	if m.mode != ModeQueue {
		return m
	}
	content := m.queue.Selected()
	if m.viewport.Width > 0 {
		content = lipgloss.NewStyle().Width(m.viewport.Width).Render(content)
	}
	m.viewport.SetContent(content)
	return m
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome, tabs and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight - tabBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the tab bar, two-pane layout and help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.viewLeft(leftWidth-borderChrome, contentHeight))
	rightPane := rightStyle.Render(m.viewRight(rightWidth-borderChrome, contentHeight))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpView := m.help.View(HelpBindings(m.mode, m.focus))

	return lipgloss.JoinVertical(lipgloss.Left, m.viewTabs(), panes, helpView)
}

func (m Model) viewTabs() string {
	tabs := make([]string, 0, 3)
	for i, mode := range []Mode{ModeCatalog, ModeQueue, ModeProbe} {
		label := string(rune('1'+i)) + " " + mode.String()
		if mode == m.mode {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, inactiveTab.Render(label))
		}
	}
	return strings.Join(tabs, "  ")
}

// viewLeft renders the left pane content based on mode.
func (m Model) viewLeft(width, height int) string {
	switch m.mode {
	case ModeQueue:
		return m.queue.View(width, height, m.spinner.View())
	case ModeProbe:
		return m.probe.View(width, height, m.spinner.View())
	default:
		return m.catalog.View(width, height, m.spinner.View())
	}
}

// viewRight renders the right pane content based on mode.
func (m Model) viewRight(width, height int) string {
	switch m.mode {
	case ModeQueue:
		if len(m.queue.messages) == 0 {
			return "No message selected"
		}
		return m.viewport.View()
	case ModeProbe:
		return m.probe.DetailView(width, height)
	default:
		stale := m.editor.Editing() && m.catalog.loaded && !m.catalog.Has(m.editor.editingID)
		return m.editor.View(width, height, stale)
	}
}
