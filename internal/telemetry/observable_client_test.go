package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/smileynet/storeprobe/internal/catalog"
)

var errBackend = errors.New("backend down")

type fakeAPI struct {
	err error
}

func (f fakeAPI) ListProducts(context.Context) (catalog.FetchOutcome, error) {
	if f.err != nil {
		return catalog.FetchOutcome{}, f.err
	}
	return catalog.FetchOutcome{
		Products:    []catalog.Product{{ID: "1", Name: "Widget"}},
		CacheStatus: catalog.CacheHit,
	}, nil
}

func (f fakeAPI) CreateProduct(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
	return catalog.Product{ID: "7", Name: in.Name, Price: in.Price}, f.err
}

func (f fakeAPI) UpdateProduct(_ context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	return catalog.Product{ID: id, Name: in.Name, Price: in.Price}, f.err
}

func (f fakeAPI) DeleteProduct(context.Context, string) error { return f.err }

func (f fakeAPI) FetchQueue(context.Context, string) ([]string, error) {
	return []string{"a", "b"}, f.err
}

func (f fakeAPI) ClearCache(context.Context) error { return f.err }

// observed wires an ObservableClient to in-memory span and metric readers.
func observed(t *testing.T, next CatalogAPI) (*ObservableClient, *tracetest.SpanRecorder, *sdkmetric.ManualReader, *bytes.Buffer) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	var buf bytes.Buffer
	return NewObservableClient(next, metrics, NewLogger(&buf, slog.LevelDebug)), sr, reader, &buf
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestObservableClient_RecordsSpanPerCall(t *testing.T) {
	client, sr, _, _ := observed(t, fakeAPI{})
	ctx := context.Background()

	if _, err := client.ListProducts(ctx); err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if _, err := client.CreateProduct(ctx, catalog.ProductInput{Name: "Gadget"}); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if err := client.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	spans := sr.Ended()
	want := []string{"CatalogAPI.ListProducts", "CatalogAPI.CreateProduct", "CatalogAPI.ClearCache"}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans, want %d", len(spans), len(want))
	}
	for i, name := range want {
		if spans[i].Name() != name {
			t.Errorf("span[%d] = %q, want %q", i, spans[i].Name(), name)
		}
		if spans[i].Status().Code != codes.Ok {
			t.Errorf("span[%d] status = %v, want Ok", i, spans[i].Status().Code)
		}
	}
}

func TestObservableClient_RecordsErrors(t *testing.T) {
	client, sr, reader, logs := observed(t, fakeAPI{err: errBackend})

	err := client.DeleteProduct(context.Background(), "3")
	if !errors.Is(err, errBackend) {
		t.Fatalf("DeleteProduct() error = %v, want %v", err, errBackend)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
	if got := collectSum(t, reader, "storeprobe_api_requests_total"); got != 1 {
		t.Errorf("storeprobe_api_requests_total = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), "api call failed") {
		t.Errorf("expected failure log line, got %s", logs.String())
	}
}

func TestObservableClient_CountsRequests(t *testing.T) {
	client, _, reader, _ := observed(t, fakeAPI{})
	ctx := context.Background()

	for range 3 {
		if _, err := client.FetchQueue(ctx, "orders"); err != nil {
			t.Fatalf("FetchQueue() error = %v", err)
		}
	}
	if _, err := client.UpdateProduct(ctx, "1", catalog.ProductInput{Name: "X"}); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}

	if got := collectSum(t, reader, "storeprobe_api_requests_total"); got != 4 {
		t.Errorf("storeprobe_api_requests_total = %d, want 4", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "storeprobe_api_request_duration_seconds" {
				found = true
				if _, ok := m.Data.(metricdata.Histogram[float64]); !ok {
					t.Errorf("expected Histogram[float64], got %T", m.Data)
				}
			}
		}
	}
	if !found {
		t.Error("storeprobe_api_request_duration_seconds metric not found")
	}
}

func TestObservableClient_NilMetricsAndLogger(t *testing.T) {
	client := NewObservableClient(fakeAPI{}, nil, nil)
	if _, err := client.ListProducts(context.Background()); err != nil {
		t.Errorf("ListProducts() error = %v", err)
	}
}
