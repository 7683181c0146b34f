// Package api is the HTTP client for the catalog, queue and cache endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// RequestIDHeader carries a per-request identifier for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// CacheHeader is consulted when a list response omits cacheStatus.
const CacheHeader = "X-Cache"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 << 10

// Client calls the storefront HTTP API rooted at a base URL.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	requestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRequestIDFunc overrides how request IDs are generated.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) { c.requestID = fn }
}

// NewClient creates a Client for baseURL, which must be an absolute http(s) URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("api: base URL %q must be an absolute http(s) URL", baseURL)
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 10 * time.Second},
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListProducts reads the full catalog along with the cache classification of
// this request.
func (c *Client) ListProducts(ctx context.Context) (catalog.FetchOutcome, error) {
	var body productList
	header, err := c.do(ctx, http.MethodGet, "/api/products", nil, &body)
	if err != nil {
		return catalog.FetchOutcome{}, err
	}

	products := make([]catalog.Product, len(body.Products))
	for i, p := range body.Products {
		products[i] = p.toProduct()
	}

	status := body.CacheStatus
	if status == "" {
		status = header.Get(CacheHeader)
	}
	return catalog.FetchOutcome{
		Products:    products,
		CacheStatus: catalog.ParseCacheStatus(status),
	}, nil
}

// CreateProduct adds a product and returns it as stored by the server.
func (c *Client) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	var out wireProduct
	if _, err := c.do(ctx, http.MethodPost, "/api/products", newProductBody(in), &out); err != nil {
		return catalog.Product{}, err
	}
	return out.toProduct(), nil
}

// UpdateProduct replaces the name and price of an existing product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	path, err := productPath(id)
	if err != nil {
		return catalog.Product{}, err
	}
	var out wireProduct
	if _, err := c.do(ctx, http.MethodPut, path, newProductBody(in), &out); err != nil {
		return catalog.Product{}, err
	}
	return out.toProduct(), nil
}

// DeleteProduct removes a product. Success is signaled by a 2xx status.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	path, err := productPath(id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// FetchQueue returns the messages currently visible in the named queue,
// in server order.
func (c *Client) FetchQueue(ctx context.Context, queueName string) ([]string, error) {
	name, err := runtime.StyleParamWithLocation("simple", false, "queueName", runtime.ParamLocationPath, queueName)
	if err != nil {
		return nil, fmt.Errorf("api: queue name %q: %w", queueName, err)
	}
	var raw []json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "/api/queue/"+name, nil, &raw); err != nil {
		return nil, err
	}
	msgs := make([]string, len(raw))
	for i, r := range raw {
		msgs[i] = queueMessageText(r)
	}
	return msgs, nil
}

// ClearCache asks the server to drop its response cache.
func (c *Client) ClearCache(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/cache/clear", nil, nil)
	return err
}

func productPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("api: product id cannot be empty")
	}
	styled, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return "", fmt.Errorf("api: product id %q: %w", id, err)
	}
	return "/api/products/" + styled, nil
}

// do sends one request. A nil in sends no body; a nil out discards the
// response body. Non-2xx responses are returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (http.Header, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("api: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, c.requestID())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, newError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("api: decoding %s %s response: %w", method, path, err)
	}
	return resp.Header, nil
}
