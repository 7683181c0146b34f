// Package catalog defines the product catalog domain shared by the API
// client, the probe runner and the dashboard.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors for price validation.
var (
	ErrInvalidPrice  = errors.New("catalog: price is not a number")
	ErrNegativePrice = errors.New("catalog: price must not be negative")
)

// Product is a single catalog entry. Identity is ID; uniqueness is enforced
// by the remote store.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// ProductInput is the body of a create or update request.
type ProductInput struct {
	Name  string
	Price decimal.Decimal
}

// CacheStatus is the remote response cache's classification of a request.
type CacheStatus string

const (
	CacheHit     CacheStatus = "hit"
	CacheMiss    CacheStatus = "miss"
	CacheUnknown CacheStatus = "unknown"
)

// ParseCacheStatus maps a wire value to a CacheStatus. Anything other than
// hit or miss is unknown.
func ParseCacheStatus(s string) CacheStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit":
		return CacheHit
	case "miss":
		return CacheMiss
	default:
		return CacheUnknown
	}
}

// Label returns the upper-case form used in status lines ("HIT", "MISS").
func (s CacheStatus) Label() string {
	if s == "" {
		return strings.ToUpper(string(CacheUnknown))
	}
	return strings.ToUpper(string(s))
}

// FetchOutcome is the result of one catalog read.
type FetchOutcome struct {
	Products    []Product
	CacheStatus CacheStatus
}

// ParsePrice parses a user-entered price. Surrounding whitespace is ignored.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrNegativePrice, d)
	}
	return d, nil
}

// FormatPrice renders a price with two decimal places.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
