package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/smileynet/storeprobe/internal/api"
	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/fakeapi"
	"github.com/smileynet/storeprobe/internal/probe"
)

// containsText is a test alias for strings.Contains.
func containsText(s, sub string) bool {
	return strings.Contains(s, sub)
}

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				// Skip spinner ticks to avoid recursion.
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// keyPress builds a tea.KeyMsg for a named key or a run of runes.
func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key to the model and settles every resulting command.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	updated, cmd := m.Update(keyPress(k))
	return settle(t, updated.(Model), cmd)
}

// typeText sends each rune of s as a separate key press. Text inputs only
// answer with cursor blink commands, which are dropped.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		updated, _ := m.Update(keyPress(string(r)))
		m = updated.(Model)
	}
	return m
}

// settle runs cmd and every command that follows from it, feeding each
// result back into the model, until nothing is left. Spinner ticks, cursor
// blinks and quit messages are dropped.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("settle: command chain did not terminate")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		updated, next := m.Update(msg)
		m = updated.(Model)
		queue = append(queue, next)
	}
	return m
}

// step runs a single command and feeds its result to the model, returning
// the follow-up command unexecuted.
func step(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("step: nil command")
	}
	updated, next := m.Update(cmd())
	return updated.(Model), next
}

// --- Stubs ---

var errTest = errors.New("test failure")

// stubCatalog is an in-memory CatalogService that records its calls.
type stubCatalog struct {
	mu        sync.Mutex
	products  []catalog.Product
	nextID    int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	calls     []string
}

func newStubCatalog(products ...catalog.Product) *stubCatalog {
	return &stubCatalog{products: products, nextID: len(products) + 1}
}

func (s *stubCatalog) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *stubCatalog) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubCatalog) ListProducts(context.Context) (catalog.FetchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list")
	if s.listErr != nil {
		return catalog.FetchOutcome{}, s.listErr
	}
	return catalog.FetchOutcome{
		Products:    append([]catalog.Product(nil), s.products...),
		CacheStatus: catalog.CacheMiss,
	}, nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create %s %s", in.Name, in.Price)
	if s.createErr != nil {
		return catalog.Product{}, s.createErr
	}
	p := catalog.Product{ID: fmt.Sprint(s.nextID), Name: in.Name, Price: in.Price}
	s.nextID++
	s.products = append(s.products, p)
	return p, nil
}

func (s *stubCatalog) UpdateProduct(_ context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update %s %s %s", id, in.Name, in.Price)
	if s.updateErr != nil {
		return catalog.Product{}, s.updateErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Name = in.Name
			s.products[i].Price = in.Price
			return s.products[i], nil
		}
	}
	return catalog.Product{}, api.ErrNotFound
}

func (s *stubCatalog) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete %s", id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i:i], s.products[i+1:]...)
			return nil
		}
	}
	return api.ErrNotFound
}

// stubQueue is a QueueService returning a fixed batch.
type stubQueue struct {
	msgs  []string
	err   error
	calls int
}

func (s *stubQueue) FetchQueue(context.Context, string) ([]string, error) {
	s.calls++
	return s.msgs, s.err
}

// probeAdapter runs a fresh probe.Runner per run, as the CLI does.
type probeAdapter struct {
	svc   probe.Service
	clock probe.Clock
}

func (a probeAdapter) RunProbe(ctx context.Context, statusFn func(probe.Status)) (probe.Status, error) {
	return probe.New(a.svc, probe.WithClock(a.clock), probe.WithStatusCallback(statusFn)).Run(ctx)
}

func (a probeAdapter) ClearCache(ctx context.Context) error {
	return probe.New(a.svc).Clear(ctx)
}

// instantClock completes every wait immediately unless ctx is done.
type instantClock struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (c *instantClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return ctx.Err()
}

// blockingClock waits until ctx is done.
type blockingClock struct{}

func (blockingClock) Sleep(ctx context.Context, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

// newFakeBackend serves fakeapi over httptest and returns a client for it.
func newFakeBackend(t *testing.T, opts ...fakeapi.Option) (*fakeapi.Server, *api.Client) {
	t.Helper()
	fake := fakeapi.New(opts...)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL, api.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return fake, c
}

func product(id, name, price string) catalog.Product {
	return catalog.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

// loadedModel returns a sized model whose initial fetch has completed.
func loadedModel(t *testing.T, opts ...ModelOption) Model {
	t.Helper()
	m := NewModel(opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)
	return settle(t, m, m.Init())
}
