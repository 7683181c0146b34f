// Package fakeapi is an in-memory implementation of the storefront HTTP
// contract for local development and tests. It keeps products, queues and a
// single-entry response cache for the product list.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// Server holds the fake backend state. It is safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	products []catalog.Product
	nextID   int
	queues   map[string][]string

	cacheTTL time.Duration
	now      func() time.Time
	cached   []catalog.Product
	cachedAt time.Time
	hasCache bool

	failures map[string]failure
	requests []string
}

type failure struct {
	status  int
	message string
}

// Option configures a Server.
type Option func(*Server)

// WithProducts seeds the catalog. IDs that parse as integers advance the
// id sequence.
func WithProducts(products ...catalog.Product) Option {
	return func(s *Server) {
		for _, p := range products {
			s.products = append(s.products, p)
			if n, err := strconv.Atoi(p.ID); err == nil && n >= s.nextID {
				s.nextID = n + 1
			}
		}
	}
}

// WithQueue seeds a named queue.
func WithQueue(name string, msgs ...string) Option {
	return func(s *Server) { s.queues[name] = append([]string(nil), msgs...) }
}

// WithCacheTTL expires cached list responses after ttl. Zero means no expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) { s.cacheTTL = ttl }
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		nextID:   1,
		queues:   make(map[string][]string),
		now:      time.Now,
		failures: make(map[string]failure),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNext makes the next request matching method and path answer with
// status and an optional message instead of being served.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// Requests returns "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Products returns a copy of the current catalog.
func (s *Server) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product(nil), s.products...)
}

// Handler returns the HTTP handler serving the contract.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Post("/products", s.createProduct)
		r.Put("/products/{id}", s.updateProduct)
		r.Delete("/products/{id}", s.deleteProduct)
		r.Get("/queue/{queueName}", s.fetchQueue)
		r.Get("/cache/clear", s.clearCache)
	})
	return r
}

// record logs the request and serves any injected failure.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, key)
		f, fail := s.failures[key]
		if fail {
			delete(s.failures, key)
		}
		s.mu.Unlock()

		if fail {
			if f.message != "" {
				writeJSON(w, f.status, map[string]string{"message": f.message})
			} else {
				w.WriteHeader(f.status)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := catalog.CacheMiss
	if s.hasCache && (s.cacheTTL == 0 || s.now().Sub(s.cachedAt) < s.cacheTTL) {
		status = catalog.CacheHit
	} else {
		s.cached = append([]catalog.Product(nil), s.products...)
		s.cachedAt = s.now()
		s.hasCache = true
	}
	products := s.cached
	s.mu.Unlock()

	body := struct {
		Products    []productJSON `json:"products"`
		CacheStatus string        `json:"cacheStatus"`
	}{
		Products:    make([]productJSON, len(products)),
		CacheStatus: string(status),
	}
	for i, p := range products {
		body.Products[i] = toJSON(p)
	}
	w.Header().Set("X-Cache", strings.ToUpper(string(status)))
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	p := catalog.Product{ID: strconv.Itoa(s.nextID), Name: in.Name, Price: in.Price}
	s.nextID++
	s.products = append(s.products, p)
	s.hasCache = false
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, toJSON(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	s.products[idx].Name = in.Name
	s.products[idx].Price = in.Price
	p := s.products[idx]
	s.hasCache = false
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, toJSON(p))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	s.products = append(s.products[:idx:idx], s.products[idx+1:]...)
	s.hasCache = false
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queueName")

	s.mu.Lock()
	msgs := append([]string{}, s.queues[name]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) clearCache(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.hasCache = false
	s.cached = nil
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// indexOf returns the position of id in the catalog, or -1. Callers hold mu.
func (s *Server) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

type productJSON struct {
	ID    any         `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// toJSON renders numeric ids as JSON numbers and anything else as strings.
func toJSON(p catalog.Product) productJSON {
	var id any = p.ID
	if _, err := strconv.Atoi(p.ID); err == nil {
		id = json.Number(p.ID)
	}
	return productJSON{ID: id, Name: p.Name, Price: json.Number(p.Price.String())}
}

func decodeInput(w http.ResponseWriter, r *http.Request) (catalog.ProductInput, bool) {
	var in struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return catalog.ProductInput{}, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
		return catalog.ProductInput{}, false
	}
	if in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "price must not be negative"})
		return catalog.ProductInput{}, false
	}
	return catalog.ProductInput{Name: in.Name, Price: in.Price}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
