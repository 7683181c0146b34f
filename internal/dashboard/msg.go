// Package dashboard implements the interactive TUI for the product catalog,
// queue viewer and cache probe. Separate from internal/tui which handles
// the headless probe run display.
package dashboard

import (
	"context"

	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/probe"
)

// Mode represents the current dashboard view mode.
type Mode int

const (
	ModeCatalog Mode = iota // Product list with the editor form.
	ModeQueue               // Last-fetched batch of queue messages.
	ModeProbe               // Cache probe phases and results.
)

// String returns the tab label for the mode.
func (m Mode) String() string {
	switch m {
	case ModeQueue:
		return "Queue"
	case ModeProbe:
		return "Cache"
	default:
		return "Catalog"
	}
}

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Left pane (product list, queue batch, probe phases) has focus.
	PaneRight              // Right pane (editor form or detail) has focus.
)

// --- Consumer-side interfaces ---

// CatalogService reads and mutates the remote catalog.
type CatalogService interface {
	ListProducts(ctx context.Context) (catalog.FetchOutcome, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// QueueService reads the visible messages of a named queue.
type QueueService interface {
	FetchQueue(ctx context.Context, queueName string) ([]string, error)
}

// ProbeRunner runs the cache probe and the standalone cache clear.
type ProbeRunner interface {
	RunProbe(ctx context.Context, statusFn func(probe.Status)) (probe.Status, error)
	ClearCache(ctx context.Context) error
}

// --- tea.Msg types ---

// CatalogFetchedMsg carries the result of a catalog fetch. Seq identifies
// the request; results for a superseded request are ignored.
type CatalogFetchedMsg struct {
	Seq     uint64
	Outcome catalog.FetchOutcome
	Err     error
}

// ProductSavedMsg carries the result of an editor submission. ID is the
// product being edited, empty for a create.
type ProductSavedMsg struct {
	ID      string
	Product catalog.Product
	Err     error
}

// ProductDeletedMsg carries the result of a delete.
type ProductDeletedMsg struct {
	ID  string
	Err error
}

// QueueFetchedMsg carries the result of a queue fetch.
type QueueFetchedMsg struct {
	Queue    string
	Messages []string
	Err      error
}

// ProbeStatusMsg carries one phase transition of probe run Run.
type ProbeStatusMsg struct {
	Run    int
	Status probe.Status
}

// ProbeDoneMsg signals that probe run Run has returned.
type ProbeDoneMsg struct {
	Run    int
	Status probe.Status
	Err    error
}

// CacheClearedMsg carries the result of a standalone cache clear.
type CacheClearedMsg struct {
	Err error
}

// RefreshCatalogMsg requests a catalog refresh.
// Sub-states emit it; Model.Update intercepts it and issues the fetch.
type RefreshCatalogMsg struct{}

// EditProductMsg signals that a product was picked from the list for editing.
type EditProductMsg struct {
	Product catalog.Product
}

// NewProductMsg signals that the editor should switch to create mode.
type NewProductMsg struct{}

// DeleteProductMsg signals a confirmed delete from the list.
type DeleteProductMsg struct {
	ID string
}
