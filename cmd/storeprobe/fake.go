package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/smileynet/storeprobe/internal/catalog"
	"github.com/smileynet/storeprobe/internal/fakeapi"
	"github.com/smileynet/storeprobe/internal/telemetry"
)

// FakeCmd serves the in-memory storefront API.
type FakeCmd struct {
	Addr     string        `help:"Listen address." default:"127.0.0.1:8080"`
	CacheTTL time.Duration `help:"Expire cached list responses after this long (0 keeps them until cleared)."`
	Seed     bool          `help:"Start with sample products and queue messages." default:"true" negatable:""`
}

func (c *FakeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, closer, err := telemetry.OpenLogger(g.LogFile, "info")
	if err != nil {
		return &setupError{err: fmt.Errorf("fake: %w", err)}
	}
	defer func() { _ = closer.Close() }()

	ln, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return &setupError{err: fmt.Errorf("fake: %w", err)}
	}
	fmt.Printf("Serving fake storefront API on http://%s\n", ln.Addr())

	return c.serve(ctx, ln, logger)
}

// serve runs the fake server on ln until ctx is done.
func (c *FakeCmd) serve(ctx context.Context, ln net.Listener, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           c.handler(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("fake: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("fake: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("fake: %w", err)
	}
	return nil
}

func (c *FakeCmd) handler(logger *slog.Logger) http.Handler {
	opts := []fakeapi.Option{fakeapi.WithCacheTTL(c.CacheTTL)}
	if c.Seed {
		opts = append(opts, seedOptions()...)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Mount("/", fakeapi.New(opts...).Handler())
	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func seedOptions() []fakeapi.Option {
	return []fakeapi.Option{
		fakeapi.WithProducts(
			catalog.Product{ID: "1", Name: "Espresso beans", Price: decimal.RequireFromString("14.50")},
			catalog.Product{ID: "2", Name: "Pour-over kettle", Price: decimal.RequireFromString("39.00")},
			catalog.Product{ID: "3", Name: "Paper filters", Price: decimal.RequireFromString("4.25")},
		),
		fakeapi.WithQueue("orders",
			`{"orderId":"A-1001","items":2}`,
			`{"orderId":"A-1002","items":1}`,
		),
	}
}
