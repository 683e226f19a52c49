package model

import "time"

// Product is a row from the merchant catalog (read-only here; the
// catalog is owned by the storefront, not by this engine).
type Product struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	UPC      string `json:"upc,omitempty"`
	Quantity int    `json:"quantity"`
}

// IdentifierPoolEntry is one allocatable UPC. Once used, the code stays
// bound to its product until explicitly released.
type IdentifierPoolEntry struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	IsUsed    bool       `json:"is_used"`
	ProductID int64      `json:"product_id,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// BatchProduct is the caller-supplied identity of one product in a
// submission: the mapped payload item plus the keys used to reconcile
// marketplace results back onto local records.
type BatchProduct struct {
	ProductID int64       `json:"product_id"`
	SKU       string      `json:"sku"`
	UPC       string      `json:"upc,omitempty"`
	Payload   interface{} `json:"payload"`
}
