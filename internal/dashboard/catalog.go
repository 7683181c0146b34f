package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

const (
	msgDeleted       = "Product deleted"
	msgDeleteFailed  = "Failed to delete product"
	msgLoadFailed    = "Failed to load products"
	msgDeleteRunning = "Delete already in progress"
)

// catalogState is the CatalogStore: the product list, its load status and
// the cache classification of the last applied read.
type catalogState struct {
	products    []catalog.Product
	cacheStatus catalog.CacheStatus
	cursor      int
	loaded      bool
	loading     bool
	seq         uint64 // sequence number of the most recently issued fetch
	queued      bool   // a refresh was requested while one was in flight
	err         error

	filter    textinput.Model
	filtering bool

	confirmID string // product awaiting delete confirmation
	deleting  bool
	notice    string
}

// newCatalogState returns an empty catalogState.
func newCatalogState() catalogState {
	f := textinput.New()
	f.Prompt = "/"
	f.Placeholder = "filter by name"
	f.CharLimit = 64
	return catalogState{filter: f}
}

// fetchCatalog returns a tea.Cmd that lists products and wraps the result,
// tagged with seq, in a CatalogFetchedMsg.
func fetchCatalog(ctx context.Context, svc CatalogService, seq uint64) tea.Cmd {
	return func() tea.Msg {
		out, err := svc.ListProducts(ctx)
		return CatalogFetchedMsg{Seq: seq, Outcome: out, Err: err}
	}
}

// deleteProduct returns a tea.Cmd that deletes id and wraps the result in a
// ProductDeletedMsg.
func deleteProduct(ctx context.Context, svc CatalogService, id string) tea.Cmd {
	return func() tea.Msg {
		return ProductDeletedMsg{ID: id, Err: svc.DeleteProduct(ctx, id)}
	}
}

// startFetch marks a fetch in flight and returns its sequence number.
// When a fetch is already in flight, ok is false and a single follow-up
// fetch is queued for when it lands.
func (cs catalogState) startFetch() (catalogState, uint64, bool) {
	if cs.loading {
		cs.queued = true
		return cs, 0, false
	}
	cs.loading = true
	cs.queued = false
	cs.seq++
	return cs, cs.seq, true
}

// applyFetch applies a fetch result. Results for any request other than the
// latest issued one are dropped. again reports that a queued follow-up fetch
// should be issued now.
func (cs catalogState) applyFetch(msg CatalogFetchedMsg) (next catalogState, applied, again bool) {
	if msg.Seq != cs.seq || !cs.loading {
		return cs, false, false
	}
	cs.loading = false
	if msg.Err != nil {
		cs.loaded = true
		cs.err = msg.Err
		cs.products = nil
		cs.cacheStatus = ""
		cs.cursor = 0
	} else {
		cs = cs.applyOutcome(msg.Outcome)
	}
	return cs, true, cs.queued
}

// applyProbeOutcome applies a catalog read made by the cache probe. since is
// the catalog seq at the time the read was issued. The outcome is skipped
// when any catalog fetch was issued after that point, landed or not, since
// that result is at least as new.
func (cs catalogState) applyProbeOutcome(out catalog.FetchOutcome, since uint64) catalogState {
	if cs.loading || cs.seq != since {
		return cs
	}
	return cs.applyOutcome(out)
}

// applyOutcome replaces the product list wholesale, keeping the cursor on
// the previously selected product when it is still present.
func (cs catalogState) applyOutcome(out catalog.FetchOutcome) catalogState {
	selected := cs.SelectedID()
	cs.loaded = true
	cs.err = nil
	cs.products = append([]catalog.Product(nil), out.Products...)
	cs.cacheStatus = out.CacheStatus
	cs.cursor = 0
	for i, p := range cs.visible() {
		if p.ID == selected {
			cs.cursor = i
			break
		}
	}
	return cs
}

// applyDeleted records the result of a delete.
func (cs catalogState) applyDeleted(msg ProductDeletedMsg) catalogState {
	cs.deleting = false
	if msg.Err != nil {
		cs.notice = catalog.UserMessage(msg.Err, msgDeleteFailed)
		return cs
	}
	cs.notice = msgDeleted
	return cs
}

// Update processes messages for the catalog list pane.
func (cs catalogState) Update(msg tea.Msg) (catalogState, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cs.filtering {
			return cs.handleFilterKey(msg)
		}
		if cs.confirmID != "" {
			return cs.handleConfirmKey(msg)
		}
		return cs.handleKey(msg)
	}
	return cs, nil
}

func (cs catalogState) handleFilterKey(msg tea.KeyMsg) (catalogState, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cs.filtering = false
		cs.filter.Blur()
		return cs, nil
	case "esc":
		cs.filtering = false
		cs.filter.Blur()
		cs.filter.SetValue("")
		cs.cursor = 0
		return cs, nil
	}
	var cmd tea.Cmd
	cs.filter, cmd = cs.filter.Update(msg)
	cs.cursor = 0
	return cs, cmd
}

func (cs catalogState) handleConfirmKey(msg tea.KeyMsg) (catalogState, tea.Cmd) {
	id := cs.confirmID
	cs.confirmID = ""
	if msg.String() != "y" {
		cs.notice = ""
		return cs, nil
	}
	if cs.deleting {
		cs.notice = msgDeleteRunning
		return cs, nil
	}
	cs.deleting = true
	cs.notice = ""
	return cs, func() tea.Msg { return DeleteProductMsg{ID: id} }
}

func (cs catalogState) handleKey(msg tea.KeyMsg) (catalogState, tea.Cmd) {
	visible := cs.visible()
	switch msg.String() {
	case "up", "k":
		if len(visible) > 0 {
			cs.cursor--
			if cs.cursor < 0 {
				cs.cursor = len(visible) - 1
			}
		}
		return cs, nil

	case "down", "j":
		if len(visible) > 0 {
			cs.cursor++
			if cs.cursor >= len(visible) {
				cs.cursor = 0
			}
		}
		return cs, nil

	case "enter", "e":
		if p, ok := cs.Selected(); ok {
			return cs, func() tea.Msg { return EditProductMsg{Product: p} }
		}
		return cs, nil

	case "n":
		return cs, func() tea.Msg { return NewProductMsg{} }

	case "d":
		if p, ok := cs.Selected(); ok {
			cs.confirmID = p.ID
			cs.notice = fmt.Sprintf("Delete %s? y to confirm", p.Name)
		}
		return cs, nil

	case "r":
		return cs, func() tea.Msg { return RefreshCatalogMsg{} }

	case "/":
		cs.filtering = true
		return cs, cs.filter.Focus()
	}
	return cs, nil
}

// visible returns the products matching the current filter, in list order.
func (cs catalogState) visible() []catalog.Product {
	return catalog.Filter(cs.products, cs.filter.Value())
}

// Selected returns the product at the cursor.
func (cs catalogState) Selected() (catalog.Product, bool) {
	visible := cs.visible()
	if cs.cursor < 0 || cs.cursor >= len(visible) {
		return catalog.Product{}, false
	}
	return visible[cs.cursor], true
}

// SelectedID returns the ID of the product at the cursor, or "".
func (cs catalogState) SelectedID() string {
	p, _ := cs.Selected()
	return p.ID
}

// Has reports whether id is in the current list.
func (cs catalogState) Has(id string) bool {
	for _, p := range cs.products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// View renders the product list for the given dimensions.
// spinnerView is the current spinner frame.
func (cs catalogState) View(width, height int, spinnerView string) string {
	if !cs.loaded {
		if cs.loading {
			return fmt.Sprintf("%s Loading products...", spinnerView)
		}
		return "Press r to load products"
	}

	var b strings.Builder
	header := fmt.Sprintf("Products (%d)", len(cs.products))
	if cs.cacheStatus != "" {
		header += "  cache: " + CacheBadge(cs.cacheStatus.Label())
	}
	if cs.loading {
		header += " " + spinnerView
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteByte('\n')

	if cs.filtering || cs.filter.Value() != "" {
		b.WriteString(cs.filter.View())
		b.WriteByte('\n')
	}

	if cs.err != nil {
		b.WriteString(errorText.Render("Error: " + catalog.UserMessage(cs.err, msgLoadFailed)))
		b.WriteString("\n\nPress r to retry")
		return b.String()
	}

	visible := cs.visible()
	switch {
	case len(cs.products) == 0:
		b.WriteString("No products, press n to add one")
	case len(visible) == 0:
		b.WriteString("No products match the filter")
	}
	for i, p := range visible {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == cs.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%s %s", p.Name, priceText.Render(catalog.FormatPrice(p.Price)))
	}

	if cs.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(cs.notice)
	}
	return b.String()
}
