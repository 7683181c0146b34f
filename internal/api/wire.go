package api

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/smileynet/storeprobe/internal/catalog"
)

// opaqueID accepts identifiers encoded as JSON strings or numbers.
type opaqueID string

func (id *opaqueID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = opaqueID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	*id = opaqueID(data)
	return nil
}

// wireProduct is the JSON shape of a product.
type wireProduct struct {
	ID    opaqueID        `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func (w wireProduct) toProduct() catalog.Product {
	return catalog.Product{ID: string(w.ID), Name: w.Name, Price: w.Price}
}

// productList is the JSON body returned by GET /api/products.
type productList struct {
	Products    []wireProduct `json:"products"`
	CacheStatus string        `json:"cacheStatus"`
}

// productBody is the JSON body of create and update requests. Price is sent
// as a JSON number.
type productBody struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

func newProductBody(in catalog.ProductInput) productBody {
	return productBody{Name: in.Name, Price: json.Number(in.Price.String())}
}

// queueMessageText renders one queue entry. Strings are unquoted; any other
// JSON value is kept verbatim.
func queueMessageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
