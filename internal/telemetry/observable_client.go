package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// CatalogAPI is the storefront surface the decorator wraps. *api.Client
// satisfies it.
type CatalogAPI interface {
	ListProducts(ctx context.Context) (catalog.FetchOutcome, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	FetchQueue(ctx context.Context, queueName string) ([]string, error)
	ClearCache(ctx context.Context) error
}

// ObservableClient wraps a CatalogAPI with a span, metrics and a debug log
// line per call.
type ObservableClient struct {
	next    CatalogAPI
	metrics *Metrics
	logger  *slog.Logger
}

var _ CatalogAPI = (*ObservableClient)(nil)

func NewObservableClient(next CatalogAPI, metrics *Metrics, logger *slog.Logger) *ObservableClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ObservableClient{next: next, metrics: metrics, logger: logger}
}

func (c *ObservableClient) ListProducts(ctx context.Context) (catalog.FetchOutcome, error) {
	ctx, span := StartSpan(ctx, "CatalogAPI.ListProducts")
	defer span.End()

	start := time.Now()
	out, err := c.next.ListProducts(ctx)
	c.observe(ctx, "list_products", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return out, err
	}
	AddSpanAttributes(span,
		attribute.Int("result.count", len(out.Products)),
		attribute.String("cache.status", string(out.CacheStatus)),
	)
	SetSpanSuccess(span)
	return out, nil
}

func (c *ObservableClient) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	ctx, span := StartSpan(ctx, "CatalogAPI.CreateProduct")
	defer span.End()

	start := time.Now()
	p, err := c.next.CreateProduct(ctx, in)
	c.observe(ctx, "create_product", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return p, err
	}
	AddSpanAttributes(span, attribute.String("product.id", p.ID))
	SetSpanSuccess(span)
	return p, nil
}

func (c *ObservableClient) UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	ctx, span := StartSpan(ctx, "CatalogAPI.UpdateProduct")
	defer span.End()
	AddSpanAttributes(span, attribute.String("product.id", id))

	start := time.Now()
	p, err := c.next.UpdateProduct(ctx, id, in)
	c.observe(ctx, "update_product", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return p, err
	}
	SetSpanSuccess(span)
	return p, nil
}

func (c *ObservableClient) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := StartSpan(ctx, "CatalogAPI.DeleteProduct")
	defer span.End()
	AddSpanAttributes(span, attribute.String("product.id", id))

	start := time.Now()
	err := c.next.DeleteProduct(ctx, id)
	c.observe(ctx, "delete_product", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return err
	}
	SetSpanSuccess(span)
	return nil
}

func (c *ObservableClient) FetchQueue(ctx context.Context, queueName string) ([]string, error) {
	ctx, span := StartSpan(ctx, "CatalogAPI.FetchQueue")
	defer span.End()
	AddSpanAttributes(span, attribute.String("queue.name", queueName))

	start := time.Now()
	msgs, err := c.next.FetchQueue(ctx, queueName)
	c.observe(ctx, "fetch_queue", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return msgs, err
	}
	AddSpanAttributes(span, attribute.Int("result.count", len(msgs)))
	SetSpanSuccess(span)
	return msgs, nil
}

func (c *ObservableClient) ClearCache(ctx context.Context) error {
	ctx, span := StartSpan(ctx, "CatalogAPI.ClearCache")
	defer span.End()

	start := time.Now()
	err := c.next.ClearCache(ctx)
	c.observe(ctx, "clear_cache", start, err)

	if err != nil {
		RecordSpanError(span, err)
		return err
	}
	SetSpanSuccess(span)
	return nil
}

func (c *ObservableClient) observe(ctx context.Context, operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, operation, elapsed.Seconds(), err)
	}
	if err != nil {
		c.logger.DebugContext(ctx, "api call failed", "operation", operation, "duration", elapsed, "error", err)
		return
	}
	c.logger.DebugContext(ctx, "api call", "operation", operation, "duration", elapsed)
}
