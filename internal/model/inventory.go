package model

import "time"

// SyncStatus is the state of one (product, sku) inventory push.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "PENDING"
	SyncStatusSuccess  SyncStatus = "SUCCESS"
	SyncStatusFailed   SyncStatus = "FAILED"
	SyncStatusRetrying SyncStatus = "RETRYING"
)

// InventorySyncStatus tracks inventory pushes per (product_id, sku).
// RetryCount increments only on a FAILED transition and resets on SUCCESS.
type InventorySyncStatus struct {
	ProductID    int64      `json:"product_id"`
	SKU          string     `json:"sku"`
	Market       string     `json:"market"`
	Status       SyncStatus `json:"status"`
	Quantity     int        `json:"quantity"`
	RetryCount   int        `json:"retry_count"`
	LastSyncTime time.Time  `json:"last_sync_time"`
	ResponseData []byte     `json:"response_data,omitempty"`
}

// PendingSync is a queued "ready for inventory sync" event, emitted by
// the batch aggregator when an item reaches SUCCESS with an assigned wpid.
type PendingSync struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	WPID      string `json:"wpid,omitempty"`
	Market    string `json:"market"`
}
