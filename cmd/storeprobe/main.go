package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/storeprobe/internal/api"
	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/config"
	"github.com/smileynet/storeprobe/internal/dashboard"
	"github.com/smileynet/storeprobe/internal/probe"
	"github.com/smileynet/storeprobe/internal/telemetry"
	"github.com/smileynet/storeprobe/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for storeprobe.
type CLI struct {
	Globals

	Version   kong.VersionFlag `help:"Show version." short:"V"`
	Dashboard DashboardCmd     `cmd:"" help:"Open interactive dashboard TUI."`
	Products  ProductsCmd      `cmd:"" help:"List and edit catalog products."`
	Queue     QueueCmd         `cmd:"" help:"Inspect queue messages."`
	Cache     CacheCmd         `cmd:"" help:"Clear or probe the server response cache."`
	Fake      FakeCmd          `cmd:"" help:"Serve an in-memory storefront API for local testing."`
}

// Globals are flags shared by every command. Flags override config files and
// environment variables.
type Globals struct {
	BaseURL string        `help:"Storefront API base URL." name:"base-url"`
	Timeout time.Duration `help:"HTTP request timeout."`
	EnvFile string        `help:"Dotenv file loaded before reading the environment." default:".env" type:"path"`
	LogFile string        `help:"Write JSON logs to this file."`
}

// Exit codes.
const (
	exitSuccess   = 0
	exitOperation = 1
	exitSetup     = 2
)

// setupError marks failures that happen before any request is made.
type setupError struct {
	err error
}

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

func setupErr(format string, args ...any) error {
	return &setupError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *setupError
	if errors.As(err, &se) {
		return exitSetup
	}
	var ae *api.Error
	var pe *probe.Error
	if errors.As(err, &ae) || errors.As(err, &pe) || errors.Is(err, api.ErrTransport) {
		return exitOperation
	}
	return exitSetup
}

// loadConfig loads layered config, the dotenv file and env overrides, then
// applies flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(config.DefaultPaths()...)
	if err != nil {
		return nil, err
	}
	if g.EnvFile != "" {
		if err := config.LoadDotEnv(g.EnvFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g.BaseURL != "" {
		cfg.API.BaseURL = g.BaseURL
	}
	if g.Timeout > 0 {
		cfg.API.Timeout = g.Timeout
	}
	if g.LogFile != "" {
		cfg.Log.File = g.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the dependencies built from configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client telemetry.CatalogAPI
	close  func()
}

// setup builds the logger, telemetry and the instrumented API client.
func (g *Globals) setup(ctx context.Context) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, &setupError{err: err}
	}

	logger, logCloser, err := telemetry.OpenLogger(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, &setupError{err: err}
	}

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, &setupError{err: err}
	}

	metrics, err := telemetry.NewGlobalMetrics()
	if err != nil {
		_ = tel.Shutdown(ctx)
		_ = logCloser.Close()
		return nil, &setupError{err: err}
	}

	client, err := api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout))
	if err != nil {
		_ = tel.Shutdown(ctx)
		_ = logCloser.Close()
		return nil, &setupError{err: err}
	}

	logger.Info("storeprobe starting",
		"version", version,
		"base_url", client.BaseURL(),
		"telemetry", tel.Enabled(),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		client: telemetry.NewObservableClient(client, metrics, logger),
		close: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
			_ = logCloser.Close()
		},
	}, nil
}

// --- dashboard ---

// DashboardCmd opens the interactive dashboard TUI.
type DashboardCmd struct {
	Queue string `help:"Queue shown in queue mode (default from config)."`
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the dashboard TUI.
func (d *DashboardCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return setupErr("dashboard: requires a terminal (TTY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.setup(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer a.close()

	queue := a.cfg.Queue.Name
	if d.Queue != "" {
		queue = d.Queue
	}

	m := dashboard.NewModel(
		dashboard.WithContext(ctx),
		dashboard.WithCatalogService(a.client),
		dashboard.WithQueueService(a.client),
		dashboard.WithProbeRunner(&probeRunnerAdapter{svc: a.client, delay: a.cfg.Probe.Delay}),
		dashboard.WithQueueName(queue),
		dashboard.WithProbeDelay(a.cfg.Probe.Delay),
		dashboard.WithLogger(a.logger.With("component", "dashboard")),
	)

	prog := tea.NewProgram(m, tea.WithAltScreen())
	return d.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (d *DashboardCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return setupErr("dashboard: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// --- products ---

// ProductsCmd groups the catalog commands.
type ProductsCmd struct {
	List   ProductsListCmd   `cmd:"" default:"1" help:"List products."`
	Add    ProductsAddCmd    `cmd:"" help:"Add a product."`
	Update ProductsUpdateCmd `cmd:"" help:"Replace a product's name and price."`
	Delete ProductsDeleteCmd `cmd:"" help:"Delete a product."`
}

// ProductsListCmd prints the catalog.
type ProductsListCmd struct{}

func (c *ProductsListCmd) Run(g *Globals) error {
	return withApp(g, "products list", func(ctx context.Context, a *app) error {
		return printCatalog(ctx, os.Stdout, a.client)
	})
}

// ProductsAddCmd creates a product and prints the refreshed catalog.
type ProductsAddCmd struct {
	Name  string `help:"Product name." required:""`
	Price string `help:"Price, a non-negative decimal." required:""`
}

func (c *ProductsAddCmd) Run(g *Globals) error {
	return withApp(g, "products add", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a.client)
	})
}

func (c *ProductsAddCmd) run(ctx context.Context, w io.Writer, svc dashboard.CatalogService) error {
	in, err := productInput(c.Name, c.Price)
	if err != nil {
		return err
	}
	p, err := svc.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Product added: %s\n", p.ID)
	return printCatalog(ctx, w, svc)
}

// ProductsUpdateCmd replaces a product and prints the refreshed catalog.
type ProductsUpdateCmd struct {
	ID    string `arg:"" help:"Product ID."`
	Name  string `help:"Product name." required:""`
	Price string `help:"Price, a non-negative decimal." required:""`
}

func (c *ProductsUpdateCmd) Run(g *Globals) error {
	return withApp(g, "products update", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a.client)
	})
}

func (c *ProductsUpdateCmd) run(ctx context.Context, w io.Writer, svc dashboard.CatalogService) error {
	in, err := productInput(c.Name, c.Price)
	if err != nil {
		return err
	}
	if _, err := svc.UpdateProduct(ctx, c.ID, in); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Product updated: %s\n", c.ID)
	return printCatalog(ctx, w, svc)
}

// ProductsDeleteCmd deletes a product and prints the refreshed catalog.
type ProductsDeleteCmd struct {
	ID string `arg:"" help:"Product ID."`
}

func (c *ProductsDeleteCmd) Run(g *Globals) error {
	return withApp(g, "products delete", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a.client)
	})
}

func (c *ProductsDeleteCmd) run(ctx context.Context, w io.Writer, svc dashboard.CatalogService) error {
	if err := svc.DeleteProduct(ctx, c.ID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Product deleted: %s\n", c.ID)
	return printCatalog(ctx, w, svc)
}

// productInput validates form-style input the same way the dashboard editor does.
func productInput(name, price string) (catalog.ProductInput, error) {
	if name == "" || price == "" {
		return catalog.ProductInput{}, setupErr("name and price are required")
	}
	d, err := catalog.ParsePrice(price)
	if err != nil {
		return catalog.ProductInput{}, &setupError{err: err}
	}
	return catalog.ProductInput{Name: name, Price: d}, nil
}

// printCatalog fetches the catalog and prints one product per line.
func printCatalog(ctx context.Context, w io.Writer, svc dashboard.CatalogService) error {
	out, err := svc.ListProducts(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Products (%d)  cache: %s\n", len(out.Products), out.CacheStatus.Label())
	for _, p := range out.Products {
		_, _ = fmt.Fprintf(w, "  %-6s %-30s %10s\n", p.ID, p.Name, catalog.FormatPrice(p.Price))
	}
	return nil
}

// --- queue ---

// QueueCmd groups the queue commands.
type QueueCmd struct {
	Show QueueShowCmd `cmd:"" default:"withargs" help:"Print the visible messages of a queue."`
}

// QueueShowCmd prints one batch of queue messages.
type QueueShowCmd struct {
	Name string `arg:"" optional:"" help:"Queue name (default from config)."`
}

func (c *QueueShowCmd) Run(g *Globals) error {
	return withApp(g, "queue show", func(ctx context.Context, a *app) error {
		name := c.Name
		if name == "" {
			name = a.cfg.Queue.Name
		}
		return showQueue(ctx, os.Stdout, a.client, name)
	})
}

func showQueue(ctx context.Context, w io.Writer, svc dashboard.QueueService, name string) error {
	msgs, err := svc.FetchQueue(ctx, name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Queue %s: %d messages\n", name, len(msgs))
	for i, m := range msgs {
		_, _ = fmt.Fprintf(w, "%3d  %s\n", i+1, m)
	}
	return nil
}

// --- cache ---

// CacheCmd groups the cache commands.
type CacheCmd struct {
	Clear CacheClearCmd `cmd:"" help:"Clear the server response cache."`
	Probe CacheProbeCmd `cmd:"" help:"Check that the list endpoint misses then hits."`
}

// CacheClearCmd issues a standalone cache clear.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(g *Globals) error {
	return withApp(g, "cache clear", func(ctx context.Context, a *app) error {
		return clearCache(ctx, os.Stdout, a.client)
	})
}

func clearCache(ctx context.Context, w io.Writer, svc probe.Service) error {
	err := probe.New(svc).Clear(ctx)
	_, _ = fmt.Fprintln(w, probe.ClearMessage(err))
	return err
}

// CacheProbeCmd runs the cache probe with a status display.
type CacheProbeCmd struct {
	NoTUI bool          `help:"Force plain text output even if stdout is a TTY." default:"false"`
	Delay time.Duration `help:"Wait between the two requests (default from config)."`
}

func (c *CacheProbeCmd) Run(g *Globals) error {
	return withApp(g, "cache probe", func(ctx context.Context, a *app) error {
		delay := a.cfg.Probe.Delay
		if c.Delay > 0 {
			delay = c.Delay
		}

		// The TUI calls probeCancel on q / ctrl+c so the run aborts cleanly.
		probeCtx, probeCancel := context.WithCancel(ctx)
		defer probeCancel()

		bridge := tui.NewBridge()
		display := tui.NewDisplay(tui.DisplayOptions{
			Writer:     os.Stdout,
			ForcePlain: c.NoTUI,
			Delay:      delay,
			CancelFunc: probeCancel,
		})
		st, err := runProbe(probeCtx, a.client, display, bridge, probe.WithDelay(delay))
		a.logger.Info("cache probe finished",
			"phase", st.Phase,
			"first", st.FirstResult,
			"second", st.SecondResult,
			"as_expected", st.AsExpected(),
		)
		return err
	})
}

// runProbe runs the probe with display lifecycle management, enabling
// testable wiring.
func runProbe(ctx context.Context, svc probe.Service, display tui.Display, bridge *tui.Bridge, opts ...probe.Option) (probe.Status, error) {
	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(context.Background(), bridge.Events())
	}()

	opts = append(opts, probe.WithStatusCallback(bridge.Send))
	st, err := probe.New(svc, opts...).Run(ctx)

	if err != nil {
		bridge.Error(st, err)
	} else {
		bridge.Done(st)
	}

	// Wait for display to finish (so it releases the terminal).
	<-displayDone

	return st, err
}

// withApp runs fn with configured dependencies and an interrupt-aware context.
func withApp(g *Globals, name string, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.setup(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer a.close()

	if err := fn(ctx, a); err != nil {
		a.logger.Error("command failed", "command", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("storeprobe"),
		kong.Description("Client for a storefront catalog API with a cache probe."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
